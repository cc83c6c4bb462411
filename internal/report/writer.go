package report

import (
	"io"
	"sort"

	"github.com/nao1215/iwscan/internal/model"
)

// Writer defines the interface for report output.
// Implementations write scan reports in various formats.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.ScanReport) (int, error)
}

// MultiWriter writes to multiple Writers in order.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.ScanReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// Security labels in display order.
var securityOrder = []string{"WPA/WPA2", "WPA2", "WPA", "WEP", "open", "unknown"}

// Summary holds the aggregate numbers shown at the top of every report.
type Summary struct {
	// AccessPoints is the number of access points found.
	AccessPoints int `json:"access_points"`

	// Encrypted is the number of access points with encryption enabled.
	Encrypted int `json:"encrypted"`

	// Open is the number of access points without encryption.
	Open int `json:"open"`

	// Security counts access points per security label.
	Security map[string]int `json:"security"`

	// Channels counts access points per channel.
	Channels map[int]int `json:"channels,omitempty"`
}

// NewSummary computes the summary of a report.
func NewSummary(report *model.ScanReport) *Summary {
	s := &Summary{
		AccessPoints: report.Count(),
		Encrypted:    report.EncryptedCount(),
		Open:         report.OpenCount(),
		Security:     make(map[string]int),
		Channels:     report.ChannelDistribution(),
	}
	for _, ap := range report.AccessPoints {
		s.Security[ap.Security()]++
	}
	return s
}

// SecurityLabels returns the labels present in the summary in display order.
func (s *Summary) SecurityLabels() []string {
	labels := make([]string, 0, len(s.Security))
	for _, label := range securityOrder {
		if s.Security[label] > 0 {
			labels = append(labels, label)
		}
	}

	// Labels outside the known set go last, sorted.
	var extra []string
	for label := range s.Security {
		if !containsString(securityOrder, label) {
			extra = append(extra, label)
		}
	}
	sort.Strings(extra)

	return append(labels, extra...)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// essidLabel returns the ESSID or a placeholder for hidden networks.
func essidLabel(ap *model.AccessPoint) string {
	if ap.ESSID == "" {
		return "<hidden>"
	}
	return ap.ESSID
}

// orDash returns s, or "-" when s is empty.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
