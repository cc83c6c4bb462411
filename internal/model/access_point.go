package model

import "strings"

// AccessPoint is one wireless cell detected during a scan.
// It is created when the parser sees a "Cell NN - Address: ..." line and is
// populated by the field lines that follow it, up to the next cell.
//
// Only Name and Address are always present. Every other field keeps its zero
// value when the scanning utility did not report it.
type AccessPoint struct {
	// Name is the cell label assigned by the scanning utility, e.g. "Cell01".
	// It is unique within a single scan result.
	Name string `json:"name"`

	// Address is the hardware address (BSSID) of the access point.
	Address string `json:"address"`

	// Channel is the 802.11 channel number.
	// Zero means the channel was not reported; 802.11 has no channel 0.
	Channel int `json:"channel,omitempty"`

	// Frequency combines the numeric value and its unit, e.g. "2.412GHz".
	Frequency string `json:"frequency,omitempty"`

	// Quality is the link quality as reported, e.g. "70/70".
	Quality string `json:"quality,omitempty"`

	// SignalLevel is the signal level as reported, e.g. "-40 dBm".
	SignalLevel string `json:"signal_level,omitempty"`

	// EncryptionKeyStatus is the raw value of the "Encryption key" line,
	// normally "on" or "off".
	EncryptionKeyStatus string `json:"encryption_key_status,omitempty"`

	// ESSID is the network name with its surrounding quotes removed.
	ESSID string `json:"essid,omitempty"`

	// BitRates lists the supported rates in the order they were reported.
	// The scanning utility may spread them over several lines.
	BitRates []string `json:"bit_rates,omitempty"`

	// Mode is the operating mode, e.g. "Master" or "Ad-Hoc".
	Mode string `json:"mode,omitempty"`

	// GroupCipher is the group (broadcast) cipher, e.g. "CCMP".
	GroupCipher string `json:"group_cipher,omitempty"`

	// PairwiseCiphers lists the pairwise ciphers in reported order.
	PairwiseCiphers []string `json:"pairwise_ciphers,omitempty"`

	// AuthenticationSuites lists the authentication suites in reported order.
	// Repeated suites are kept as they appear.
	AuthenticationSuites []string `json:"authentication_suites,omitempty"`

	// Extra holds "Extra" and "IE:" lines verbatim. These lines are not
	// decoded further.
	Extra []string `json:"extra,omitempty"`
}

// NewAccessPoint creates an AccessPoint with its identity fields set.
func NewAccessPoint(name, address string) *AccessPoint {
	return &AccessPoint{
		Name:    name,
		Address: address,
	}
}

// Encrypted reports whether the access point advertises an encryption key.
func (ap *AccessPoint) Encrypted() bool {
	return strings.EqualFold(strings.TrimSpace(ap.EncryptionKeyStatus), "on")
}

// Security returns a short description of the protection in use.
// WPA versions are derived from the information element lines.
func (ap *AccessPoint) Security() string {
	if !ap.Encrypted() {
		if ap.EncryptionKeyStatus == "" {
			return "unknown"
		}
		return "open"
	}

	var wpa, wpa2 bool
	for _, line := range ap.Extra {
		switch {
		case strings.Contains(line, "IEEE 802.11i/WPA2"):
			wpa2 = true
		case strings.Contains(line, "WPA Version"):
			wpa = true
		}
	}

	switch {
	case wpa && wpa2:
		return "WPA/WPA2"
	case wpa2:
		return "WPA2"
	case wpa:
		return "WPA"
	default:
		return "WEP"
	}
}
