package model

import (
	"sort"
	"time"
)

// ScanReport is the result of scanning a single wireless interface.
type ScanReport struct {
	// Interface is the wireless interface that was scanned, e.g. "wlan0".
	// Reports built from saved output use the label given by the caller.
	Interface string `json:"interface"`

	// DateScanned is the time the scan text was obtained.
	DateScanned time.Time `json:"date_scanned"`

	// Privileged is true if the scan ran with elevated privileges and is
	// therefore a fresh scan rather than the kernel's cached results.
	Privileged bool `json:"privileged"`

	// Attempts is the number of scanning utility invocations it took to
	// obtain the text.
	Attempts int `json:"attempts"`

	// RawDigest is the hex SHA3-256 digest of the raw scan text.
	// Two reports with the same digest were parsed from identical output.
	RawDigest string `json:"raw_digest,omitempty"`

	// AccessPoints holds the parsed cells in the order they were reported.
	AccessPoints []*AccessPoint `json:"access_points"`

	// Warnings holds parse errors that were skipped in lenient mode.
	Warnings []string `json:"warnings,omitempty"`
}

// NewScanReport creates an empty report for the given interface.
func NewScanReport(iface string) *ScanReport {
	return &ScanReport{
		Interface:    iface,
		DateScanned:  time.Now(),
		AccessPoints: make([]*AccessPoint, 0),
	}
}

// Count returns the number of access points in the report.
func (r *ScanReport) Count() int {
	return len(r.AccessPoints)
}

// EncryptedCount returns the number of access points with encryption enabled.
func (r *ScanReport) EncryptedCount() int {
	n := 0
	for _, ap := range r.AccessPoints {
		if ap.Encrypted() {
			n++
		}
	}
	return n
}

// OpenCount returns the number of access points that explicitly report
// encryption as off.
func (r *ScanReport) OpenCount() int {
	n := 0
	for _, ap := range r.AccessPoints {
		if ap.Security() == "open" {
			n++
		}
	}
	return n
}

// ByAddress indexes the access points by hardware address.
// If an address appears more than once, the first occurrence wins.
func (r *ScanReport) ByAddress() map[string]*AccessPoint {
	m := make(map[string]*AccessPoint, len(r.AccessPoints))
	for _, ap := range r.AccessPoints {
		if _, ok := m[ap.Address]; !ok {
			m[ap.Address] = ap
		}
	}
	return m
}

// ChannelDistribution counts access points per channel.
// Access points without a reported channel are not counted.
func (r *ScanReport) ChannelDistribution() map[int]int {
	dist := make(map[int]int)
	for _, ap := range r.AccessPoints {
		if ap.Channel > 0 {
			dist[ap.Channel]++
		}
	}
	return dist
}

// Channels returns the channels in use, sorted ascending.
func (r *ScanReport) Channels() []int {
	dist := r.ChannelDistribution()
	channels := make([]int, 0, len(dist))
	for ch := range dist {
		channels = append(channels, ch)
	}
	sort.Ints(channels)
	return channels
}

// HasWarnings reports whether lenient parsing skipped any errors.
func (r *ScanReport) HasWarnings() bool {
	return len(r.Warnings) > 0
}
