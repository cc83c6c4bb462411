package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/iwscan/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing, e.g. attaching a
// site survey to an issue.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.ScanReport) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := NewSummary(report)

	w.writeHeader(md, report)
	w.writeSummary(md, report, summary)
	w.writeAccessPoints(md, report)
	w.writeWarnings(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with scan information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.ScanReport) {
	md.H1("Wireless Scan Report")
	md.PlainText("")

	scanType := "Cached (unprivileged)"
	switch {
	case report.Attempts == 0:
		scanType = "Saved output"
	case report.Privileged:
		scanType = "Fresh (privileged)"
	}

	rows := [][]string{
		{"Interface", "`" + report.Interface + "`"},
		{"Scan Date", report.DateScanned.Format("2006-01-02 15:04:05 MST")},
		{"Scan Type", scanType},
		{"Attempts", strconv.Itoa(report.Attempts)},
	}
	if report.RawDigest != "" {
		rows = append(rows, []string{"Raw Digest (SHA3-256)", "`" + report.RawDigest + "`"})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeSummary writes the security summary, the channel chart and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.ScanReport, summary *Summary) {
	md.H2("Summary")
	md.PlainText("")

	rows := make([][]string, 0, len(summary.Security)+1)
	for _, label := range summary.SecurityLabels() {
		rows = append(rows, []string{securityIcon(label) + " " + label, strconv.Itoa(summary.Security[label])})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(summary.AccessPoints) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"Security", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(summary.Channels) > 0 {
		w.writePieChart(md, report, summary)
	}

	w.writeAlert(md, summary)
}

// writePieChart writes a mermaid pie chart for the channel distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.ScanReport, summary *Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Access Points per Channel"),
		piechart.WithShowData(true),
	)

	for _, ch := range report.Channels() {
		chart.LabelAndIntValue("Channel "+strconv.Itoa(ch), uint64(summary.Channels[ch]))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert describing the weakest security found.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *Summary) {
	switch {
	case summary.AccessPoints == 0:
		md.Note("No access points were found. The interface may be down, or the kernel returned no cached results.")
	case summary.Open > 0:
		md.Warningf("%d open network(s) found. Traffic on these networks is not encrypted.", summary.Open)
	case summary.Security["WEP"] > 0:
		md.Importantf("%d network(s) appear to use WEP, which is broken.", summary.Security["WEP"])
	default:
		md.Tip("All access points use encryption.")
	}
	md.PlainText("")
}

// writeAccessPoints writes one table row per access point and a details
// block for access points with extra information.
func (w *MarkdownWriter) writeAccessPoints(md *markdown.Markdown, report *model.ScanReport) {
	md.H2("Access Points")
	md.PlainText("")

	if report.Count() == 0 {
		md.PlainText("No access points found.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.AccessPoints))
	for i, ap := range report.AccessPoints {
		channel := "-"
		if ap.Channel > 0 {
			channel = strconv.Itoa(ap.Channel)
		}
		rows[i] = []string{
			ap.Name,
			escapeCell(truncateDisplay(essidLabel(ap), maxESSIDWidth)),
			"`" + ap.Address + "`",
			channel,
			orDash(ap.Frequency),
			orDash(ap.SignalLevel),
			orDash(ap.Quality),
			securityIcon(ap.Security()) + " " + ap.Security(),
			orDash(ap.Mode),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Cell", "ESSID", "Address", "Channel", "Frequency", "Signal", "Quality", "Security", "Mode"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, ap := range report.AccessPoints {
		if details := accessPointDetails(ap); details != "" {
			md.Details(fmt.Sprintf("%s %s", ap.Name, essidLabel(ap)), details)
		}
	}
	md.PlainText("")
}

// accessPointDetails renders the list-valued fields of an access point.
func accessPointDetails(ap *model.AccessPoint) string {
	var lines []string
	if len(ap.BitRates) > 0 {
		lines = append(lines, "Bit Rates: "+strings.Join(ap.BitRates, "; "))
	}
	if ap.GroupCipher != "" {
		lines = append(lines, "Group Cipher: "+ap.GroupCipher)
	}
	if len(ap.PairwiseCiphers) > 0 {
		lines = append(lines, "Pairwise Ciphers: "+strings.Join(ap.PairwiseCiphers, ", "))
	}
	if len(ap.AuthenticationSuites) > 0 {
		lines = append(lines, "Authentication Suites: "+strings.Join(ap.AuthenticationSuites, ", "))
	}
	lines = append(lines, ap.Extra...)
	return strings.Join(lines, "\n")
}

// writeWarnings writes the parse problems skipped in lenient mode.
func (w *MarkdownWriter) writeWarnings(md *markdown.Markdown, report *model.ScanReport) {
	if !report.HasWarnings() {
		return
	}

	md.H2("Warnings")
	md.PlainText("")
	md.Cautionf("%d malformed line(s) were skipped while parsing.", len(report.Warnings))
	md.PlainText("")
	md.BulletList(report.Warnings...)
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [iwscan](https://github.com/nao1215/iwscan)*")
}

// securityIcon returns a marker for a security label.
func securityIcon(label string) string {
	switch label {
	case "WPA2", "WPA/WPA2":
		return "🟢"
	case "WPA":
		return "🟡"
	case "WEP":
		return "🟠"
	case "open":
		return "🔴"
	default:
		return "⚪"
	}
}

// escapeCell escapes characters that would break a Markdown table cell.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
