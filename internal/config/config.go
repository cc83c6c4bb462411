package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/iwscan/internal/acquire"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "iwscan"

	// DefaultInterface is scanned when no interface is given and none can
	// be discovered.
	DefaultInterface = "wlan0"

	// DefaultRetryLimit is the number of unprivileged scan attempts.
	// Without privileges the kernel only returns cached results, which are
	// often missing right after the interface comes up, so retrying for a
	// while is normal.
	DefaultRetryLimit = 20

	// DefaultRetryDelay is the wait between unprivileged attempts.
	DefaultRetryDelay = acquire.DefaultRetryDelay

	// DefaultTimeout bounds a single invocation of the scanning utility.
	// A full active scan across 2.4 and 5 GHz takes a few seconds.
	DefaultTimeout = 30 * time.Second

	// DefaultBatchSize is the number of interfaces scanned concurrently.
	DefaultBatchSize = 4

	// DefaultPrivilegeCommand wraps the privileged scan.
	DefaultPrivilegeCommand = acquire.DefaultPrivilegeCommand

	// DefaultIwlistPath is the scanning utility, resolved through PATH.
	DefaultIwlistPath = acquire.DefaultIwlistPath
)

// Names of the per-interface settings that can also be given as flags.
// They are the keys of Config.FlagsSet.
const (
	SettingRetryLimit = "retryLimit"
	SettingRetryDelay = "retryDelay"
	SettingNoSudo     = "noSudo"
	SettingLenient    = "lenient"
)

// Config holds all configuration options for iwscan.
// This struct is populated from CLI flags and the configuration file and
// passed through the application rather than kept in global state.
//
// Per-interface overrides live in InterfaceConfigs.
type Config struct {
	// Interfaces is the list of wireless interfaces to scan.
	// When empty, the interfaces are discovered at run time.
	Interfaces []string

	// RetryLimit is the number of unprivileged scan attempts.
	RetryLimit int

	// RetryDelay is the wait between unprivileged attempts.
	RetryDelay time.Duration

	// Timeout bounds each invocation of the scanning utility.
	Timeout time.Duration

	// NoSudo skips the privileged scan and only reads cached results.
	NoSudo bool

	// PrivilegeCommand wraps the privileged scan, e.g. "sudo" or "doas".
	PrivilegeCommand string

	// IwlistPath is the scanning utility to run.
	IwlistPath string

	// Lenient keeps well-formed cells from malformed output and reports the
	// problems as warnings instead of failing.
	Lenient bool

	// FlagsSet names the per-interface settings given explicitly on the
	// command line. These win over the configuration file.
	FlagsSet map[string]bool

	// MaskAddresses masks the device half of hardware addresses in log output.
	MaskAddresses bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// BatchSize is the number of interfaces scanned concurrently.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the default locations.
	ConfigFilePath string

	// InterfaceConfigs holds the settings loaded from the config file.
	InterfaceConfigs *File

	// JSONReport enables JSON report output.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output with tables and a
	// channel distribution chart.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// DBDir is the directory for the SQLite scan history.
	// Defaults to the XDG data directory (~/.local/share/iwscan on Linux).
	DBDir string

	// SaveToDB indicates whether to save scan reports to the database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		RetryLimit:       DefaultRetryLimit,
		RetryDelay:       DefaultRetryDelay,
		Timeout:          DefaultTimeout,
		BatchSize:        DefaultBatchSize,
		PrivilegeCommand: DefaultPrivilegeCommand,
		IwlistPath:       DefaultIwlistPath,
	}
}

// XDGDataDir returns the XDG data directory for iwscan.
// On Linux: ~/.local/share/iwscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for iwscan.
// On Linux: ~/.config/iwscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.RetryLimit < 1 {
		return ErrInvalidRetryLimit
	}

	if c.RetryDelay < 0 {
		return ErrInvalidRetryDelay
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}

// ForInterface returns the effective scan settings for one interface.
// Values from the configuration file override the Config values they
// correspond to, except for settings named in FlagsSet.
func (c *Config) ForInterface(name string) InterfaceConfig {
	eff := InterfaceConfig{
		RetryLimit:       c.RetryLimit,
		RetryDelay:       c.RetryDelay,
		NoSudo:           boolPtr(c.NoSudo),
		Lenient:          boolPtr(c.Lenient),
		PrivilegeCommand: c.PrivilegeCommand,
		IwlistPath:       c.IwlistPath,
	}

	if c.InterfaceConfigs == nil {
		return eff
	}

	eff = mergeInterfaceConfig(eff, c.InterfaceConfigs.GetInterfaceConfig(name))

	if c.FlagsSet[SettingRetryLimit] {
		eff.RetryLimit = c.RetryLimit
	}
	if c.FlagsSet[SettingRetryDelay] {
		eff.RetryDelay = c.RetryDelay
	}
	if c.FlagsSet[SettingNoSudo] {
		eff.NoSudo = boolPtr(c.NoSudo)
	}
	if c.FlagsSet[SettingLenient] {
		eff.Lenient = boolPtr(c.Lenient)
	}

	return eff
}

func boolPtr(b bool) *bool {
	return &b
}
