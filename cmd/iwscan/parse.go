package main

import (
	"fmt"
	"io"
	"os"

	"github.com/nao1215/iwscan/internal/config"
	"github.com/nao1215/iwscan/internal/iwlist"
	"github.com/nao1215/iwscan/internal/scan"
	"github.com/spf13/cobra"
)

// NewParseCmd creates the parse command.
func NewParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse saved iwlist scan output",
		Long: `Parse reads the output of "iwlist <iface> scan" from a file or standard input
and reports the access points it describes. Nothing is executed and nothing
is saved to the history database.

Examples:
  # Parse a saved scan
  iwlist wlan0 scan > scan.txt
  iwscan parse scan.txt

  # Parse from a pipe
  iwlist wlan0 scan | iwscan parse -i wlan0 --json

  # Keep going past malformed cells
  iwscan parse --lenient scan.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: runParseCmd,
	}

	cmd.Flags().StringP("interface", "i", config.DefaultInterface,
		"Interface name recorded in the report")
	cmd.Flags().Bool("lenient", false,
		"Keep well-formed cells from malformed output and report the rest as warnings")
	addReportFlags(cmd)

	return cmd
}

// runParseCmd executes the parse command.
func runParseCmd(cmd *cobra.Command, args []string) error {
	cfg := config.NewConfig()

	label, err := cmd.Flags().GetString("interface")
	if err != nil {
		return err
	}
	if cfg.Lenient, err = cmd.Flags().GetBool("lenient"); err != nil {
		return err
	}
	if err := readReportFlags(cmd, cfg); err != nil {
		return err
	}
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.MaskAddresses = getMaskAddressesFlag(cmd)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	source := "-"
	if len(args) == 1 {
		source = args[0]
	}

	raw, err := readScanText(source, cmd.InOrStdin())
	if err != nil {
		return err
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.MaskAddresses)

	scanReport, err := scan.ScanText(label, raw, iwlist.WithLenient(cfg.Lenient))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", sourceName(source), err)
	}
	for _, w := range scanReport.Warnings {
		logger.Warn("skipped malformed scan output", "source", sourceName(source), "warning", w)
	}

	output, closeOutput, err := openOutput(cfg.ReportFile, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOutput() //nolint:errcheck // report already flushed by Write

	_, err = newReportWriter(cfg, output).Write(scanReport)
	return err
}

// readScanText reads the whole scan text from a file, or from stdin when
// source is "-".
func readScanText(source string, stdin io.Reader) (string, error) {
	if source == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read standard input: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(source) //nolint:gosec // user-chosen input path
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", source, err)
	}
	return string(data), nil
}

func sourceName(source string) string {
	if source == "-" {
		return "standard input"
	}
	return source
}
