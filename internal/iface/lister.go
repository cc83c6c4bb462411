package iface

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mdlayher/wifi"
)

// ErrNoInterfaces is returned when the host has no wireless interfaces.
var ErrNoInterfaces = errors.New("no wireless interfaces found")

// Interface describes one wireless network interface.
type Interface struct {
	// Name is the kernel name, e.g. "wlan0".
	Name string `json:"name"`

	// HardwareAddr is the MAC address in colon notation. It may be empty
	// for virtual interfaces.
	HardwareAddr string `json:"hardware_addr,omitempty"`

	// Type is the nl80211 interface type, e.g. "station".
	Type string `json:"type"`

	// PHY is the index of the physical device backing the interface.
	PHY int `json:"phy"`
}

// Lister returns the wireless interfaces present on the host.
type Lister interface {
	List() ([]Interface, error)
}

// client is the subset of *wifi.Client used by NL80211Lister.
type client interface {
	Interfaces() ([]*wifi.Interface, error)
	Close() error
}

// NL80211Lister lists interfaces over nl80211.
type NL80211Lister struct {
	// dial opens the nl80211 connection. Tests replace it.
	dial func() (client, error)
}

// NewLister creates a Lister backed by nl80211.
func NewLister() *NL80211Lister {
	return &NL80211Lister{
		dial: func() (client, error) {
			return wifi.New()
		},
	}
}

// List returns the wireless interfaces sorted by name.
// Interfaces without a name, such as P2P devices, are skipped.
func (l *NL80211Lister) List() ([]Interface, error) {
	c, err := l.dial()
	if err != nil {
		return nil, fmt.Errorf("failed to open nl80211: %w", err)
	}
	defer c.Close() //nolint:errcheck // read-only use

	raw, err := c.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list wireless interfaces: %w", err)
	}

	ifaces := make([]Interface, 0, len(raw))
	for _, ri := range raw {
		if ri == nil || ri.Name == "" {
			continue
		}
		it := Interface{
			Name: ri.Name,
			Type: ri.Type.String(),
			PHY:  ri.PHY,
		}
		if len(ri.HardwareAddr) > 0 {
			it.HardwareAddr = ri.HardwareAddr.String()
		}
		ifaces = append(ifaces, it)
	}

	if len(ifaces) == 0 {
		return nil, ErrNoInterfaces
	}

	sort.Slice(ifaces, func(i, j int) bool {
		return ifaces[i].Name < ifaces[j].Name
	})

	return ifaces, nil
}

// Names returns the names of the given interfaces.
func Names(ifaces []Interface) []string {
	names := make([]string, len(ifaces))
	for i, it := range ifaces {
		names[i] = it.Name
	}
	return names
}
