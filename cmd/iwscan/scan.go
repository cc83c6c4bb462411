package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/iwscan/internal/acquire"
	"github.com/nao1215/iwscan/internal/config"
	"github.com/nao1215/iwscan/internal/database"
	"github.com/nao1215/iwscan/internal/iface"
	iwlog "github.com/nao1215/iwscan/internal/log"
	"github.com/nao1215/iwscan/internal/model"
	"github.com/nao1215/iwscan/internal/report"
	"github.com/nao1215/iwscan/internal/scan"
	"github.com/spf13/cobra"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [interface...]",
		Short: "Scan wireless interfaces for access points",
		Long: `Scan runs iwlist for each interface and reports the access points in range.

A fresh scan needs root privileges. iwscan first runs "sudo -n iwlist <iface> scan"
(or iwlist directly when already root) and, if that fails, falls back to the
unprivileged scan, which only returns what the kernel has cached. While the
kernel answers "No scan results", the unprivileged scan is retried.

Interfaces are taken from the arguments, then from the configuration file,
then discovered over nl80211. If none can be found, wlan0 is scanned.

Examples:
  # Scan every wireless interface
  iwscan scan

  # Scan one interface
  iwscan scan wlan0

  # Only read cached results, never call sudo
  iwscan scan --no-sudo wlan0

  # Keep going past malformed cells
  iwscan scan --lenient wlan0

  # Write a Markdown report to a file
  iwscan scan -m -o report.md wlan0

Configuration file (.iwscan) example:
  defaults:
    retryLimit: 10
  interfaces:
    wlan0: {}
    wlp3s0:
      noSudo: true

Flags given on the command line override the configuration file.`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Acquisition flags
	cmd.Flags().IntP("retry", "r", config.DefaultRetryLimit,
		"Number of unprivileged attempts while there are no scan results")
	cmd.Flags().Duration("retry-delay", config.DefaultRetryDelay,
		"Wait between unprivileged attempts")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for a single iwlist invocation")
	cmd.Flags().Bool("no-sudo", false,
		"Skip the privileged scan and only read cached results")
	cmd.Flags().Bool("lenient", false,
		"Keep well-formed cells from malformed output and report the rest as warnings")

	// Batch scanning flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of interfaces scanned concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .iwscan in current or home directory)")

	// Report flags
	addReportFlags(cmd)
	cmd.Flags().Bool("no-save", false,
		"Do not save the scan to the history database")

	return cmd
}

// addReportFlags adds the output flags shared by scan and parse.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
}

// scanEnv holds the collaborators of a scan run.
type scanEnv struct {
	runner acquire.CommandRunner
	lister iface.Lister
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.MaskAddresses)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	env := &scanEnv{
		runner: acquire.ExecRunner{Timeout: cfg.Timeout},
		lister: iface.NewLister(),
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
		logger: logger,
	}

	return runScan(ctx, cfg, env)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	return getPersistentBool(cmd, "verbose")
}

// getMaskAddressesFlag retrieves the mask-addresses flag from the command or its parent.
func getMaskAddressesFlag(cmd *cobra.Command) bool {
	return getPersistentBool(cmd, "mask-addresses")
}

func getPersistentBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// settingFlags maps per-interface settings to the flags that set them.
var settingFlags = map[string]string{
	config.SettingRetryLimit: "retry",
	config.SettingRetryDelay: "retry-delay",
	config.SettingNoSudo:     "no-sudo",
	config.SettingLenient:    "lenient",
}

// changedSettings returns the per-interface settings given on the command line.
func changedSettings(cmd *cobra.Command) map[string]bool {
	set := make(map[string]bool)
	for setting, flag := range settingFlags {
		if cmd.Flags().Changed(flag) {
			set[setting] = true
		}
	}
	return set
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	if cfg.RetryLimit, err = flags.GetInt("retry"); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = flags.GetDuration("retry-delay"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.NoSudo, err = flags.GetBool("no-sudo"); err != nil {
		return nil, err
	}
	if cfg.Lenient, err = flags.GetBool("lenient"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	cfg.InterfaceConfigs, err = loadInterfaceConfigs(cfg.ConfigFilePath)
	if err != nil {
		return nil, err
	}

	if err := readReportFlags(cmd, cfg); err != nil {
		return nil, err
	}

	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	cfg.DBDir = config.XDGDataDir()

	cfg.FlagsSet = changedSettings(cmd)
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.MaskAddresses = getMaskAddressesFlag(cmd)
	cfg.Interfaces = args

	return cfg, nil
}

// loadInterfaceConfigs loads the configuration file.
// An explicitly given file must exist. Without one, a missing file yields
// an empty configuration.
func loadInterfaceConfigs(explicitPath string) (*config.File, error) {
	configPath := config.FindConfigFile(explicitPath)

	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		return file, nil
	case explicitPath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicitPath)
	default:
		return &config.File{Interfaces: make(map[string]config.InterfaceConfig)}, nil
	}
}

// readReportFlags copies the output flags into cfg.
func readReportFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	return nil
}

// setupLogger creates a structured logger that masks secrets and, when
// maskAddresses is set, hardware addresses.
func setupLogger(w io.Writer, verbose, maskAddresses bool) *slog.Logger {
	return iwlog.NewSecureLogger(w, verbose, iwlog.WithMaskHardwareAddrs(maskAddresses))
}

// resolveInterfaces picks the interfaces to scan: the arguments, then the
// configuration file, then every interface the lister finds, then
// config.DefaultInterface.
func resolveInterfaces(cfg *config.Config, lister iface.Lister, logger *slog.Logger) []string {
	if len(cfg.Interfaces) > 0 {
		return cfg.Interfaces
	}

	if cfg.InterfaceConfigs != nil {
		if names := cfg.InterfaceConfigs.InterfaceNames(); len(names) > 0 {
			return names
		}
	}

	if lister != nil {
		found, err := lister.List()
		if err == nil {
			return iface.Names(found)
		}
		logger.Warn("interface discovery failed, using default interface",
			"interface", config.DefaultInterface,
			"error", err,
		)
	}

	return []string{config.DefaultInterface}
}

// newScanner builds the Scanner for one interface from its effective settings.
func newScanner(cfg *config.Config, name string, runner acquire.CommandRunner, logger *slog.Logger) *scan.Scanner {
	ic := cfg.ForInterface(name)

	acq := acquire.New(
		acquire.WithRunner(runner),
		acquire.WithIwlistPath(ic.IwlistPath),
		acquire.WithPrivileged(!ic.NoSudoEnabled()),
		acquire.WithPrivilegeCommand(ic.PrivilegeCommand, acquire.DefaultPrivilegeArgs...),
		acquire.WithRetryDelay(ic.RetryDelay),
		acquire.WithLogger(logger),
	)

	return scan.New(acq,
		scan.WithRetryLimit(ic.RetryLimit),
		scan.WithLenient(ic.LenientEnabled()),
		scan.WithLogger(logger),
	)
}

// runScan executes the scan.
func runScan(ctx context.Context, cfg *config.Config, env *scanEnv) error {
	ifaces := resolveInterfaces(cfg, env.lister, env.logger)

	for _, name := range ifaces {
		if err := acquire.ValidateInterface(name); err != nil {
			return err
		}
	}

	env.logger.Info("starting scan",
		"interfaces", ifaces,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.ScanDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		env.logger.Info("database opened", "dir", cfg.DBDir)
	}

	output, closeOutput, err := openOutput(cfg.ReportFile, env.out)
	if err != nil {
		return err
	}
	defer closeOutput() //nolint:errcheck // report already flushed by Write
	writer := newReportWriter(cfg, output)

	var failed int
	if len(ifaces) > 1 && cfg.BatchSize > 1 {
		failed, err = runBatchScan(ctx, cfg, env, ifaces, writer, db)
	} else {
		failed, err = runSequentialScan(ctx, cfg, env, ifaces, writer, db)
	}
	if err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scans failed", failed, len(ifaces))
	}
	return nil
}

// runSequentialScan scans interfaces one at a time and returns the number
// of failed scans.
func runSequentialScan(ctx context.Context, cfg *config.Config, env *scanEnv, ifaces []string, writer report.Writer, db *database.ScanDB) (int, error) {
	failed := 0
	for _, name := range ifaces {
		select {
		case <-ctx.Done():
			return failed, ctx.Err()
		default:
		}

		fmt.Fprintf(env.errOut, "Scanning %s...\n", name)
		startTime := time.Now()

		scanReport, err := newScanner(cfg, name, env.runner, env.logger).Scan(ctx, name)
		if err != nil {
			failed++
			env.logger.Error("scan failed", "interface", name, "error", err)
			fmt.Fprintf(env.errOut, "Scan error for %s: %v\n", name, err)
			continue
		}

		fmt.Fprintf(env.errOut, "Scan completed in %s\n", time.Since(startTime).Round(time.Millisecond))

		handleReport(ctx, env, writer, db, scanReport)
	}

	return failed, nil
}

// runBatchScan scans interfaces concurrently and returns the number of
// failed scans.
func runBatchScan(ctx context.Context, cfg *config.Config, env *scanEnv, ifaces []string, writer report.Writer, db *database.ScanDB) (int, error) {
	fmt.Fprintf(env.errOut, "Starting batch scan of %d interfaces (concurrency: %d)...\n",
		len(ifaces), cfg.BatchSize)

	startTime := time.Now()

	bs := scan.NewBatchScanner(
		newScanner(cfg, "", env.runner, env.logger),
		scan.WithConcurrency(cfg.BatchSize),
		scan.WithBatchLogger(env.logger),
		scan.WithScannerFor(func(name string) *scan.Scanner {
			return newScanner(cfg, name, env.runner, env.logger)
		}),
	)

	var mu sync.Mutex
	failed := 0
	err := bs.ScanAllWithCallback(ctx, ifaces, func(result scan.Result, index int) {
		mu.Lock()
		defer mu.Unlock()

		if result.Err != nil {
			failed++
			fmt.Fprintf(env.errOut, "[%d/%d] Scan error for %s: %v\n", index+1, len(ifaces), result.Interface, result.Err)
			return
		}

		fmt.Fprintf(env.errOut, "[%d/%d] Scan completed: %s\n", index+1, len(ifaces), result.Interface)
		handleReport(ctx, env, writer, db, result.Report)
	})

	fmt.Fprintf(env.errOut, "Batch scan completed in %s\n", time.Since(startTime).Round(time.Millisecond))

	return failed, err
}

// handleReport writes a finished report and stores it.
func handleReport(ctx context.Context, env *scanEnv, writer report.Writer, db *database.ScanDB, scanReport *model.ScanReport) {
	if _, err := writer.Write(scanReport); err != nil {
		env.logger.Error("report failed", "interface", scanReport.Interface, "error", err)
	}

	if err := saveScanReport(ctx, db, scanReport, env.logger); err != nil {
		env.logger.Error("failed to save scan report", "interface", scanReport.Interface, "error", err)
	}
}

// openOutput returns the report destination: the named file, or fallback
// when path is empty. The returned function closes the file.
func openOutput(path string, fallback io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return fallback, func() error { return nil }, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports list nearby hardware addresses, so only the owner may read them.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-chosen output path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// newReportWriter returns the writer for the configured format.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}

// saveScanReport saves the scan report to the database.
// If db is nil, this function is a no-op.
func saveScanReport(ctx context.Context, db *database.ScanDB, scanReport *model.ScanReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}
	if scanReport == nil {
		return errors.New("no report to save")
	}

	id, err := db.SaveScanReport(ctx, scanReport)
	if err != nil {
		return fmt.Errorf("failed to save scan report: %w", err)
	}

	logger.Info("scan report saved to database",
		"interface", scanReport.Interface,
		"id", id,
	)
	return nil
}
