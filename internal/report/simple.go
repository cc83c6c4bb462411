package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/iwscan/internal/model"
	"golang.org/x/text/width"
)

// maxESSIDWidth caps the ESSID column. An ESSID is at most 32 bytes, but
// escaped non-printable bytes make the printed form longer.
const maxESSIDWidth = 32

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display: one aligned row per access
// point followed by warnings, if any.
//
// Columns are padded by terminal display width, so CJK ESSIDs line up.
type SimpleWriter struct {
	baseWriter

	// verbose adds bit rates, ciphers and extra lines below each row.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.ScanReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeAccessPoints(&sb, report)
	w.writeWarnings(&sb, report)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// writeHeader writes the scan information and summary.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.ScanReport) {
	summary := NewSummary(report)

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                       WIRELESS SCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Interface:      %s\n", report.Interface)
	fmt.Fprintf(sb, "Scan Date:      %s\n", report.DateScanned.Format("2006-01-02 15:04:05 MST"))
	switch {
	case report.Attempts == 0:
		sb.WriteString("Scan Type:      saved output\n")
	case report.Privileged:
		fmt.Fprintf(sb, "Scan Type:      fresh (privileged, %d attempt(s))\n", report.Attempts)
	default:
		fmt.Fprintf(sb, "Scan Type:      cached (unprivileged, %d attempt(s))\n", report.Attempts)
	}
	fmt.Fprintf(sb, "Access Points:  %d (%d encrypted, %d open)\n",
		summary.AccessPoints, summary.Encrypted, summary.Open)

	if channels := report.Channels(); len(channels) > 0 {
		parts := make([]string, len(channels))
		for i, ch := range channels {
			parts[i] = fmt.Sprintf("%d(%d)", ch, summary.Channels[ch])
		}
		fmt.Fprintf(sb, "Channels:       %s\n", strings.Join(parts, " "))
	}
	sb.WriteString("\n")
}

// writeAccessPoints writes one aligned row per access point.
func (w *SimpleWriter) writeAccessPoints(sb *strings.Builder, report *model.ScanReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("ACCESS POINTS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if report.Count() == 0 {
		sb.WriteString("  No access points found\n\n")
		return
	}

	essidWidth := len("ESSID")
	for _, ap := range report.AccessPoints {
		if dw := displayWidth(truncateDisplay(essidLabel(ap), maxESSIDWidth)); dw > essidWidth {
			essidWidth = dw
		}
	}

	fmt.Fprintf(sb, "  %s  %-17s  %3s  %-9s  %-9s  %-7s  %s\n",
		padRight("ESSID", essidWidth), "ADDRESS", "CH", "FREQ", "SIGNAL", "QUALITY", "SECURITY")

	for _, ap := range report.AccessPoints {
		channel := "-"
		if ap.Channel > 0 {
			channel = strconv.Itoa(ap.Channel)
		}
		fmt.Fprintf(sb, "  %s  %-17s  %3s  %-9s  %-9s  %-7s  %s\n",
			padRight(truncateDisplay(essidLabel(ap), maxESSIDWidth), essidWidth),
			ap.Address,
			channel,
			orDash(ap.Frequency),
			orDash(ap.SignalLevel),
			orDash(ap.Quality),
			ap.Security(),
		)

		if w.verbose {
			w.writeDetails(sb, ap)
		}
	}
	sb.WriteString("\n")
}

// writeDetails writes the optional fields of an access point.
func (w *SimpleWriter) writeDetails(sb *strings.Builder, ap *model.AccessPoint) {
	if ap.Mode != "" {
		fmt.Fprintf(sb, "      Mode: %s\n", ap.Mode)
	}
	if len(ap.BitRates) > 0 {
		fmt.Fprintf(sb, "      Bit Rates: %s\n", strings.Join(ap.BitRates, "; "))
	}
	if ap.GroupCipher != "" {
		fmt.Fprintf(sb, "      Group Cipher: %s\n", ap.GroupCipher)
	}
	if len(ap.PairwiseCiphers) > 0 {
		fmt.Fprintf(sb, "      Pairwise Ciphers: %s\n", strings.Join(ap.PairwiseCiphers, ", "))
	}
	if len(ap.AuthenticationSuites) > 0 {
		fmt.Fprintf(sb, "      Authentication Suites: %s\n", strings.Join(ap.AuthenticationSuites, ", "))
	}
	for _, extra := range ap.Extra {
		fmt.Fprintf(sb, "      %s\n", extra)
	}
}

// writeWarnings lists parse problems skipped in lenient mode.
func (w *SimpleWriter) writeWarnings(sb *strings.Builder, report *model.ScanReport) {
	if !report.HasWarnings() {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "WARNINGS (%d)\n", len(report.Warnings))
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, warning := range report.Warnings {
		fmt.Fprintf(sb, "  [!] %s\n", warning)
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by iwscan\n")
	sb.WriteString("https://github.com/nao1215/iwscan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// runeWidth returns the number of terminal cells r occupies.
func runeWidth(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	default:
		return 1
	}
}

// displayWidth returns the number of terminal cells s occupies.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		n += runeWidth(r)
	}
	return n
}

// padRight pads s with spaces to the given display width.
func padRight(s string, w int) string {
	if pad := w - displayWidth(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}

// truncateDisplay shortens s to at most maxWidth cells, ending in "...".
func truncateDisplay(s string, maxWidth int) string {
	if displayWidth(s) <= maxWidth {
		return s
	}

	limit := maxWidth - 3
	var sb strings.Builder
	used := 0
	for _, r := range s {
		rw := runeWidth(r)
		if used+rw > limit {
			break
		}
		sb.WriteRune(r)
		used += rw
	}
	sb.WriteString("...")
	return sb.String()
}
