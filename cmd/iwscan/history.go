package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/iwscan/internal/acquire"
	"github.com/nao1215/iwscan/internal/config"
	"github.com/nao1215/iwscan/internal/database"
	"github.com/nao1215/iwscan/internal/model"
	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
// This command compares scan results with historical data stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [interface]",
		Short: "Compare scan results with earlier scans",
		Long: `History shows how the access points seen by an interface changed over time.

By default the latest scan is compared with the one before it and shows:
- Access points that appeared since the previous scan
- Access points that disappeared
- Access points whose signal level or security changed

Access points are matched by hardware address. Use 'iwscan scan' to record scans.

Examples:
  # Compare the latest two scans of wlan0
  iwscan history wlan0

  # List all scans of wlan0
  iwscan history --list wlan0

  # Compare the latest scan with a specific earlier scan
  iwscan history --with-scan-id 5 wlan0

  # Show every scan in which an access point was seen
  iwscan history --address 00:11:22:33:44:55

  # List all interfaces in the database
  iwscan history --list-interfaces`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List scan history for the specified interface")
	cmd.Flags().BoolP("list-interfaces", "L", false,
		"List all interfaces in the database")
	cmd.Flags().StringP("address", "a", "",
		"Show every scan in which the access point with this address was seen")

	// Comparison target flags
	cmd.Flags().Int64P("with-scan-id", "i", 0,
		"Compare with a specific scan by ID (use --list to see available IDs)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// historyOptions holds the flags of the history command.
type historyOptions struct {
	iface          string
	list           bool
	listInterfaces bool
	address        string
	withScanID     int64
	jsonOutput     bool
	markdownOutput bool
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := readHistoryOptions(cmd, args)
	if err != nil {
		return err
	}

	// Validate before opening the database so that a bad invocation does
	// not create an empty one.
	if !opts.listInterfaces && opts.address == "" && opts.iface == "" {
		return errors.New("interface is required (use --list-interfaces to see available interfaces)")
	}
	if opts.iface != "" {
		if err := acquire.ValidateInterface(opts.iface); err != nil {
			return err
		}
	}
	if opts.jsonOutput && opts.markdownOutput {
		return config.ErrConflictingReportFormats
	}

	db, err := database.Open(config.XDGDataDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return runHistory(cmd.Context(), cmd.OutOrStdout(), db, opts)
}

func readHistoryOptions(cmd *cobra.Command, args []string) (historyOptions, error) {
	var opts historyOptions
	var err error

	if len(args) == 1 {
		opts.iface = args[0]
	}
	if opts.list, err = cmd.Flags().GetBool("list"); err != nil {
		return opts, err
	}
	if opts.listInterfaces, err = cmd.Flags().GetBool("list-interfaces"); err != nil {
		return opts, err
	}
	if opts.address, err = cmd.Flags().GetString("address"); err != nil {
		return opts, err
	}
	if opts.withScanID, err = cmd.Flags().GetInt64("with-scan-id"); err != nil {
		return opts, err
	}
	if opts.jsonOutput, err = cmd.Flags().GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdownOutput, err = cmd.Flags().GetBool("markdown"); err != nil {
		return opts, err
	}
	return opts, nil
}

// runHistory dispatches to the requested history view.
func runHistory(ctx context.Context, out io.Writer, db *database.ScanDB, opts historyOptions) error {
	switch {
	case opts.listInterfaces:
		return listScannedInterfaces(ctx, out, db, opts.jsonOutput)
	case opts.address != "":
		return listSightings(ctx, out, db, opts.address, opts.jsonOutput)
	case opts.list:
		return listScanHistory(ctx, out, db, opts.iface, opts.jsonOutput)
	default:
		return runComparison(ctx, out, db, opts)
	}
}

// listScannedInterfaces lists all interfaces that have scans in the database.
func listScannedInterfaces(ctx context.Context, out io.Writer, db *database.ScanDB, jsonOutput bool) error {
	ifaces, err := db.ListInterfaces(ctx)
	if err != nil {
		return fmt.Errorf("failed to list interfaces: %w", err)
	}

	if jsonOutput {
		if ifaces == nil {
			ifaces = []string{}
		}
		return encodeJSON(out, ifaces)
	}

	if len(ifaces) == 0 {
		fmt.Fprintln(out, "No scanned interfaces found in the database.")
		fmt.Fprintln(out, "\nUse 'iwscan scan <interface>' to scan an interface.")
		return nil
	}

	fmt.Fprintf(out, "Scanned interfaces (%d):\n\n", len(ifaces))
	for _, name := range ifaces {
		fmt.Fprintf(out, "  • %s\n", name)
	}
	fmt.Fprintln(out, "\nUse 'iwscan history --list <interface>' to see the scans of an interface.")

	return nil
}

// listScanHistory lists all scans of an interface.
func listScanHistory(ctx context.Context, out io.Writer, db *database.ScanDB, name string, jsonOutput bool) error {
	metas, err := db.GetScanHistoryWithMetadata(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}

	if jsonOutput {
		if metas == nil {
			metas = []database.ScanReportMetadata{}
		}
		return encodeJSON(out, metas)
	}

	if len(metas) == 0 {
		fmt.Fprintf(out, "No scan history found for %s\n", name)
		fmt.Fprintln(out, "\nUse 'iwscan scan' to scan this interface.")
		return nil
	}

	fmt.Fprintf(out, "Scan history for %s (%d scans):\n\n", name, len(metas))
	fmt.Fprintf(out, "  %-6s  %-20s  %-10s  %s\n", "ID", "Date", "Type", "Access Points")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 60))

	for _, meta := range metas {
		scanType := "cached"
		if meta.Privileged {
			scanType = "fresh"
		}
		fmt.Fprintf(out, "  %-6d  %-20s  %-10s  %s\n",
			meta.ID,
			meta.Timestamp.Local().Format("2006-01-02 15:04:05"),
			scanType,
			formatScanSummary(meta.Summary),
		)
	}

	fmt.Fprintln(out, "\nUse 'iwscan history <interface>' to compare the latest two scans.")
	fmt.Fprintln(out, "Use 'iwscan history --with-scan-id <id> <interface>' to compare with a specific scan.")

	return nil
}

// formatScanSummary formats the stored summary of a scan.
func formatScanSummary(summary map[string]int) string {
	if summary == nil {
		return "N/A"
	}

	s := fmt.Sprintf("%d (%d open)", summary["access_points"], summary["open"])
	if w := summary["warnings"]; w > 0 {
		s += fmt.Sprintf(", %d warning(s)", w)
	}
	return s
}

// listSightings lists every stored scan in which an address was seen.
func listSightings(ctx context.Context, out io.Writer, db *database.ScanDB, address string, jsonOutput bool) error {
	sightings, err := db.FindAccessPointsByAddress(ctx, address)
	if err != nil {
		return err
	}

	if jsonOutput {
		if sightings == nil {
			sightings = []database.Sighting{}
		}
		return encodeJSON(out, sightings)
	}

	if len(sightings) == 0 {
		fmt.Fprintf(out, "Access point %s was never seen.\n", address)
		return nil
	}

	fmt.Fprintf(out, "Sightings of %s (%d):\n\n", address, len(sightings))
	fmt.Fprintf(out, "  %-6s  %-20s  %-10s  %-20s  %3s  %-9s  %s\n",
		"SCAN", "Date", "Interface", "ESSID", "CH", "SIGNAL", "SECURITY")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 90))
	for _, s := range sightings {
		fmt.Fprintf(out, "  %-6d  %-20s  %-10s  %-20s  %3s  %-9s  %s\n",
			s.ReportID,
			s.Timestamp.Local().Format("2006-01-02 15:04:05"),
			s.Interface,
			orDash(s.ESSID),
			channelText(s.Channel),
			orDash(s.SignalLevel),
			s.Security,
		)
	}

	return nil
}

// runComparison compares the latest scan of an interface with an earlier one.
func runComparison(ctx context.Context, out io.Writer, db *database.ScanDB, opts historyOptions) error {
	reports, err := db.GetScanHistory(ctx, opts.iface)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}

	if len(reports) == 0 {
		return fmt.Errorf("no scan history found for %s", opts.iface)
	}

	if len(reports) < 2 && opts.withScanID == 0 {
		return fmt.Errorf("at least 2 scans are required for comparison (found %d)", len(reports))
	}

	current := reports[0]
	var previous *model.ScanReport

	if opts.withScanID > 0 {
		previous, err = db.GetScanReportByID(ctx, opts.withScanID)
		if err != nil {
			return fmt.Errorf("failed to get scan with ID %d: %w", opts.withScanID, err)
		}
		if previous == nil {
			return fmt.Errorf("scan with ID %d not found", opts.withScanID)
		}
		if previous.Interface != opts.iface {
			return fmt.Errorf("scan ID %d belongs to %s, not %s", opts.withScanID, previous.Interface, opts.iface)
		}
	} else {
		previous = reports[1]
	}

	result := compareReports(previous, current)

	switch {
	case opts.jsonOutput:
		return encodeJSON(out, result)
	case opts.markdownOutput:
		return outputComparisonMarkdown(out, result)
	default:
		return outputComparisonText(out, result)
	}
}

// ComparisonResult holds the result of comparing two scans.
type ComparisonResult struct {
	// Interface is the scanned interface.
	Interface string `json:"interface"`

	// PreviousScan contains metadata about the earlier scan.
	PreviousScan ScanMetadata `json:"previous_scan"`

	// CurrentScan contains metadata about the latest scan.
	CurrentScan ScanMetadata `json:"current_scan"`

	// Diff lists the access point changes.
	Diff *model.ScanDiff `json:"diff"`

	// UnchangedCount is the number of access points seen in both scans.
	UnchangedCount int `json:"unchanged_count"`
}

// ScanMetadata contains metadata about a scan for comparison display.
type ScanMetadata struct {
	DateScanned  time.Time `json:"date_scanned"`
	AccessPoints int       `json:"access_points"`
	Encrypted    int       `json:"encrypted"`
	Open         int       `json:"open"`
}

func scanMetadata(r *model.ScanReport) ScanMetadata {
	return ScanMetadata{
		DateScanned:  r.DateScanned,
		AccessPoints: r.Count(),
		Encrypted:    r.EncryptedCount(),
		Open:         r.OpenCount(),
	}
}

// compareReports compares two scan reports.
func compareReports(previous, current *model.ScanReport) *ComparisonResult {
	diff := model.Diff(previous, current)
	return &ComparisonResult{
		Interface:      current.Interface,
		PreviousScan:   scanMetadata(previous),
		CurrentScan:    scanMetadata(current),
		Diff:           diff,
		UnchangedCount: current.Count() - len(diff.Appeared),
	}
}

// outputComparisonText outputs the comparison in human-readable text format.
func outputComparisonText(out io.Writer, result *ComparisonResult) error {
	fmt.Fprintf(out, "Scan Comparison: %s\n", result.Interface)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nPrevious scan: %s\n", result.PreviousScan.DateScanned.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Current scan:  %s\n", result.CurrentScan.DateScanned.Local().Format("2006-01-02 15:04:05"))

	fmt.Fprintln(out, "\nSummary:")
	fmt.Fprintf(out, "  %-14s  %-10s  %-10s  %-10s\n", "", "Previous", "Current", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 50))
	for _, row := range metadataRows(result) {
		fmt.Fprintf(out, "  %-14s  %-10d  %-10d  %-10s\n", row.label, row.previous, row.current, formatDelta(row.current-row.previous))
	}

	d := result.Diff
	if !d.HasChanges() {
		fmt.Fprintln(out, "\nNo changes.")
		return nil
	}

	if len(d.Appeared) > 0 {
		fmt.Fprintf(out, "\nAppeared (%d):\n", len(d.Appeared))
		for _, ap := range d.Appeared {
			fmt.Fprintf(out, "  [+] %s  %s  ch %s  %s\n", ap.Address, essidText(ap.ESSID), channelText(ap.Channel), ap.Security())
		}
	}

	if len(d.Disappeared) > 0 {
		fmt.Fprintf(out, "\nDisappeared (%d):\n", len(d.Disappeared))
		for _, ap := range d.Disappeared {
			fmt.Fprintf(out, "  [-] %s  %s  ch %s  %s\n", ap.Address, essidText(ap.ESSID), channelText(ap.Channel), ap.Security())
		}
	}

	if len(d.SignalChanges) > 0 {
		fmt.Fprintf(out, "\nSignal Changes (%d):\n", len(d.SignalChanges))
		for _, sc := range d.SignalChanges {
			fmt.Fprintf(out, "  [~] %s  %s  %s -> %s\n", sc.Address, essidText(sc.ESSID), orDash(sc.Before), orDash(sc.After))
		}
	}

	if len(d.SecurityChanges) > 0 {
		fmt.Fprintf(out, "\nSecurity Changes (%d):\n", len(d.SecurityChanges))
		for _, addr := range sortedKeys(d.SecurityChanges) {
			fmt.Fprintf(out, "  [!] %s  %s\n", addr, d.SecurityChanges[addr])
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Fprintf(out, "\nStill visible: %d access points\n", result.UnchangedCount)
	}

	return nil
}

// outputComparisonMarkdown outputs the comparison in Markdown format.
func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(out)

	md.H1("Scan Comparison: " + result.Interface)
	md.PlainText("")

	rows := [][]string{{
		"Date",
		result.PreviousScan.DateScanned.Local().Format("2006-01-02 15:04"),
		result.CurrentScan.DateScanned.Local().Format("2006-01-02 15:04"),
		"-",
	}}
	for _, row := range metadataRows(result) {
		rows = append(rows, []string{
			row.label,
			strconv.Itoa(row.previous),
			strconv.Itoa(row.current),
			formatDelta(row.current - row.previous),
		})
	}

	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows:   rows,
	})
	md.PlainText("")

	d := result.Diff
	if !d.HasChanges() {
		md.Note("No changes between the two scans.")
		return md.Build()
	}

	if len(d.Appeared) > 0 {
		md.H2(fmt.Sprintf("Appeared (%d)", len(d.Appeared)))
		md.PlainText("")
		md.BulletList(accessPointItems(d.Appeared)...)
		md.PlainText("")
	}

	if len(d.Disappeared) > 0 {
		md.H2(fmt.Sprintf("Disappeared (%d)", len(d.Disappeared)))
		md.PlainText("")
		md.BulletList(accessPointItems(d.Disappeared)...)
		md.PlainText("")
	}

	if len(d.SignalChanges) > 0 {
		md.H2(fmt.Sprintf("Signal Changes (%d)", len(d.SignalChanges)))
		md.PlainText("")
		signalRows := make([][]string, len(d.SignalChanges))
		for i, sc := range d.SignalChanges {
			signalRows[i] = []string{"`" + sc.Address + "`", essidText(sc.ESSID), orDash(sc.Before), orDash(sc.After)}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Address", "ESSID", "Before", "After"},
			Rows:   signalRows,
		})
		md.PlainText("")
	}

	if len(d.SecurityChanges) > 0 {
		md.H2(fmt.Sprintf("Security Changes (%d)", len(d.SecurityChanges)))
		md.PlainText("")
		items := make([]string, 0, len(d.SecurityChanges))
		for _, addr := range sortedKeys(d.SecurityChanges) {
			items = append(items, fmt.Sprintf("`%s`: %s", addr, d.SecurityChanges[addr]))
		}
		md.Warningf("%d access point(s) changed their security.", len(d.SecurityChanges))
		md.PlainText("")
		md.BulletList(items...)
		md.PlainText("")
	}

	if result.UnchangedCount > 0 {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainTextf("*%d access points still visible*", result.UnchangedCount)
	}

	return md.Build()
}

type metadataRow struct {
	label             string
	previous, current int
}

func metadataRows(result *ComparisonResult) []metadataRow {
	return []metadataRow{
		{"Access Points", result.PreviousScan.AccessPoints, result.CurrentScan.AccessPoints},
		{"Encrypted", result.PreviousScan.Encrypted, result.CurrentScan.Encrypted},
		{"Open", result.PreviousScan.Open, result.CurrentScan.Open},
	}
}

func accessPointItems(aps []*model.AccessPoint) []string {
	items := make([]string, len(aps))
	for i, ap := range aps {
		items[i] = fmt.Sprintf("`%s` %s (channel %s, %s)", ap.Address, essidText(ap.ESSID), channelText(ap.Channel), ap.Security())
	}
	return items
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}

func essidText(essid string) string {
	if essid == "" {
		return "<hidden>"
	}
	return essid
}

func channelText(ch int) string {
	if ch <= 0 {
		return "-"
	}
	return strconv.Itoa(ch)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func encodeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
