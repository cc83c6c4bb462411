package config

import (
	"sort"
	"time"
)

// InterfaceConfig holds settings for a single wireless interface.
// Zero values and nil pointers mean "not set" so that an entry only needs
// to name the settings it changes.
type InterfaceConfig struct {
	// RetryLimit overrides the number of unprivileged scan attempts.
	RetryLimit int `yaml:"retryLimit,omitempty"`

	// RetryDelay overrides the wait between attempts, e.g. "500ms".
	RetryDelay time.Duration `yaml:"retryDelay,omitempty"`

	// NoSudo disables the privileged scan for this interface.
	NoSudo *bool `yaml:"noSudo,omitempty"`

	// Lenient enables lenient parsing for this interface.
	Lenient *bool `yaml:"lenient,omitempty"`

	// PrivilegeCommand overrides the privilege wrapper, e.g. "doas".
	PrivilegeCommand string `yaml:"privilegeCommand,omitempty"`

	// IwlistPath overrides the path of the scanning utility.
	IwlistPath string `yaml:"iwlistPath,omitempty"`
}

// NoSudoEnabled reports whether the privileged scan is disabled.
func (ic InterfaceConfig) NoSudoEnabled() bool {
	return ic.NoSudo != nil && *ic.NoSudo
}

// LenientEnabled reports whether lenient parsing is enabled.
func (ic InterfaceConfig) LenientEnabled() bool {
	return ic.Lenient != nil && *ic.Lenient
}

// File represents the structure of the .iwscan configuration file.
type File struct {
	// Interfaces lists the interfaces scanned when none are given on the
	// command line, mapped to their specific settings.
	Interfaces map[string]InterfaceConfig `yaml:"interfaces,omitempty"`

	// Defaults applies to every interface unless overridden in Interfaces.
	Defaults InterfaceConfig `yaml:"defaults,omitempty"`
}

// InterfaceNames returns the names of the configured interfaces in sorted
// order.
func (cf *File) InterfaceNames() []string {
	names := make([]string, 0, len(cf.Interfaces))
	for name := range cf.Interfaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetInterfaceConfig returns the configuration for a specific interface.
// It merges the interface-specific configuration with defaults.
func (cf *File) GetInterfaceConfig(name string) InterfaceConfig {
	result := cf.Defaults

	if ic, ok := cf.Interfaces[name]; ok {
		result = mergeInterfaceConfig(result, ic)
	}

	return result
}

// mergeInterfaceConfig returns base with every value set in override applied.
func mergeInterfaceConfig(base, override InterfaceConfig) InterfaceConfig {
	result := base

	if override.RetryLimit > 0 {
		result.RetryLimit = override.RetryLimit
	}
	if override.RetryDelay > 0 {
		result.RetryDelay = override.RetryDelay
	}
	if override.NoSudo != nil {
		result.NoSudo = override.NoSudo
	}
	if override.Lenient != nil {
		result.Lenient = override.Lenient
	}
	if override.PrivilegeCommand != "" {
		result.PrivilegeCommand = override.PrivilegeCommand
	}
	if override.IwlistPath != "" {
		result.IwlistPath = override.IwlistPath
	}

	return result
}
