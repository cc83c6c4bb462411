package model

import "sort"

// SignalChange records a change in reported signal between two scans.
type SignalChange struct {
	Address string `json:"address"`
	ESSID   string `json:"essid,omitempty"`
	Before  string `json:"before"`
	After   string `json:"after"`
}

// ScanDiff describes how the set of visible access points changed between
// two scans of the same interface.
type ScanDiff struct {
	// Appeared lists access points present only in the newer scan.
	Appeared []*AccessPoint `json:"appeared"`

	// Disappeared lists access points present only in the older scan.
	Disappeared []*AccessPoint `json:"disappeared"`

	// SignalChanges lists access points present in both scans whose signal
	// level differs.
	SignalChanges []SignalChange `json:"signal_changes"`

	// SecurityChanges lists access points whose security label changed,
	// keyed by address. Values are "before -> after".
	SecurityChanges map[string]string `json:"security_changes,omitempty"`
}

// HasChanges reports whether the two scans differ at all.
func (d *ScanDiff) HasChanges() bool {
	return len(d.Appeared) > 0 || len(d.Disappeared) > 0 ||
		len(d.SignalChanges) > 0 || len(d.SecurityChanges) > 0
}

// Diff compares older against newer. Access points are matched by hardware
// address. Either report may be nil and is then treated as empty.
func Diff(older, newer *ScanReport) *ScanDiff {
	if older == nil {
		older = &ScanReport{}
	}
	if newer == nil {
		newer = &ScanReport{}
	}

	d := &ScanDiff{
		Appeared:        make([]*AccessPoint, 0),
		Disappeared:     make([]*AccessPoint, 0),
		SignalChanges:   make([]SignalChange, 0),
		SecurityChanges: make(map[string]string),
	}

	before := older.ByAddress()
	after := newer.ByAddress()

	for addr, ap := range after {
		prev, ok := before[addr]
		if !ok {
			d.Appeared = append(d.Appeared, ap)
			continue
		}
		if prev.SignalLevel != ap.SignalLevel {
			d.SignalChanges = append(d.SignalChanges, SignalChange{
				Address: addr,
				ESSID:   ap.ESSID,
				Before:  prev.SignalLevel,
				After:   ap.SignalLevel,
			})
		}
		if prevSec, sec := prev.Security(), ap.Security(); prevSec != sec {
			d.SecurityChanges[addr] = prevSec + " -> " + sec
		}
	}
	for addr, ap := range before {
		if _, ok := after[addr]; !ok {
			d.Disappeared = append(d.Disappeared, ap)
		}
	}

	sortByAddress(d.Appeared)
	sortByAddress(d.Disappeared)
	sort.Slice(d.SignalChanges, func(i, j int) bool {
		return d.SignalChanges[i].Address < d.SignalChanges[j].Address
	})

	return d
}

func sortByAddress(aps []*AccessPoint) {
	sort.Slice(aps, func(i, j int) bool {
		return aps[i].Address < aps[j].Address
	})
}
