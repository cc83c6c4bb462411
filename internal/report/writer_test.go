package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/iwscan/internal/model"
)

// createTestReport creates a report with sample data for testing.
func createTestReport() *model.ScanReport {
	report := model.NewScanReport("wlan0")
	report.DateScanned = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	report.Privileged = true
	report.Attempts = 1
	report.RawDigest = strings.Repeat("ab", 32)

	home := model.NewAccessPoint("Cell01", "00:11:22:33:44:55")
	home.Channel = 6
	home.Frequency = "2.437GHz"
	home.Quality = "70/70"
	home.SignalLevel = "-40 dBm"
	home.EncryptionKeyStatus = "on"
	home.ESSID = "home-network"
	home.Mode = "Master"
	home.BitRates = []string{"1 Mb/s", "2 Mb/s"}
	home.GroupCipher = "CCMP"
	home.PairwiseCiphers = []string{"CCMP"}
	home.AuthenticationSuites = []string{"PSK"}
	home.Extra = []string{"IE: IEEE 802.11i/WPA2 Version 1"}

	cafe := model.NewAccessPoint("Cell02", "66:77:88:99:AA:BB")
	cafe.Channel = 11
	cafe.EncryptionKeyStatus = "off"
	cafe.ESSID = "Cafe Guest"

	hidden := model.NewAccessPoint("Cell03", "CC:DD:EE:FF:00:11")
	hidden.Channel = 6
	hidden.EncryptionKeyStatus = "on"
	hidden.Extra = []string{"IE: WPA Version 1"}

	report.AccessPoints = append(report.AccessPoints, home, cafe, hidden)
	return report
}

// TestNewSummary tests aggregate counting.
func TestNewSummary(t *testing.T) {
	t.Parallel()

	s := NewSummary(createTestReport())

	if s.AccessPoints != 3 || s.Encrypted != 2 || s.Open != 1 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if s.Channels[6] != 2 || s.Channels[11] != 1 {
		t.Errorf("unexpected channel distribution: %v", s.Channels)
	}
	if s.Security["WPA2"] != 1 || s.Security["WPA"] != 1 || s.Security["open"] != 1 {
		t.Errorf("unexpected security counts: %v", s.Security)
	}

	labels := s.SecurityLabels()
	want := []string{"WPA2", "WPA", "open"}
	if strings.Join(labels, ",") != strings.Join(want, ",") {
		t.Errorf("expected labels %v, got %v", want, labels)
	}
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report header", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"WIRELESS SCAN REPORT",
			"Interface:      wlan0",
			"fresh (privileged, 1 attempt(s))",
			"Access Points:  3 (2 encrypted, 1 open)",
			"Channels:       6(2) 11(1)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("writes one row per access point", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"home-network", "Cafe Guest", "<hidden>", "66:77:88:99:AA:BB", "WPA2", "open"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "Bit Rates") {
			t.Error("details should only be shown in verbose mode")
		}
	})

	t.Run("verbose mode includes details", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"Bit Rates: 1 Mb/s; 2 Mb/s", "Group Cipher: CCMP", "Authentication Suites: PSK", "IE: IEEE 802.11i/WPA2 Version 1"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("handles empty report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(model.NewScanReport("wlan1")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No access points found") {
			t.Error("expected empty report message")
		}
		if !strings.Contains(buf.String(), "saved output") {
			t.Error("expected saved output scan type")
		}
	})

	t.Run("writes warnings", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Warnings = []string{`line 5: malformed integer: channel "x": "Channel:x"`}

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "WARNINGS (1)") {
			t.Error("expected warnings section")
		}
	})

	t.Run("aligns wide ESSIDs by display width", func(t *testing.T) {
		t.Parallel()

		report := model.NewScanReport("wlan0")
		wide := model.NewAccessPoint("Cell01", "00:11:22:33:44:55")
		wide.ESSID = "無線ネット"
		narrow := model.NewAccessPoint("Cell02", "66:77:88:99:AA:BB")
		narrow.ESSID = "abc"
		report.AccessPoints = append(report.AccessPoints, wide, narrow)

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var cols []int
		for _, line := range strings.Split(buf.String(), "\n") {
			if i := strings.Index(line, "00:11:22:33:44:55"); i >= 0 {
				cols = append(cols, displayWidth(line[:i]))
			}
			if i := strings.Index(line, "66:77:88:99:AA:BB"); i >= 0 {
				cols = append(cols, displayWidth(line[:i]))
			}
		}
		if len(cols) != 2 || cols[0] != cols[1] {
			t.Errorf("expected address column to be aligned, got %v", cols)
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("outputs valid JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded model.ScanReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Interface != "wlan0" || len(decoded.AccessPoints) != 3 {
			t.Errorf("unexpected decoded report: %+v", decoded)
		}
		if decoded.AccessPoints[1].ESSID != "Cafe Guest" {
			t.Errorf("unexpected ESSID %q", decoded.AccessPoints[1].ESSID)
		}
	})

	t.Run("compact output by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("expected compact single-line JSON")
		}
	})

	t.Run("pretty print with indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"interface\": \"wlan0\"") {
			t.Errorf("expected indented output, got %s", buf.String())
		}
	})

	t.Run("uses custom prefix and indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithIndent(">", "\t")).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n>\t\"interface\"") {
			t.Errorf("expected custom indentation, got %s", buf.String())
		}
	})
}

// TestFullJSONWriter tests the JSON writer with metadata wrapper.
func TestFullJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewFullJSONWriter(&buf, "v1.2.3").Write(createTestReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded JSONReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Version != "v1.2.3" {
		t.Errorf("expected version v1.2.3, got %q", decoded.Version)
	}
	if decoded.Summary == nil || decoded.Summary.Open != 1 {
		t.Errorf("unexpected summary: %+v", decoded.Summary)
	}
	if decoded.Report == nil || decoded.Report.Count() != 3 {
		t.Errorf("unexpected report: %+v", decoded.Report)
	}
}

// failingWriter always fails.
type failingWriter struct{}

func (failingWriter) Write(*model.ScanReport) (int, error) {
	return 0, errors.New("disk full")
}

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var text, js bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

		n, err := mw.Write(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != text.Len()+js.Len() {
			t.Errorf("expected %d bytes, got %d", text.Len()+js.Len(), n)
		}
		if text.Len() == 0 || js.Len() == 0 {
			t.Error("expected both writers to receive output")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var after bytes.Buffer
		mw := NewMultiWriter(failingWriter{}, NewJSONWriter(&after))

		if _, err := mw.Write(createTestReport()); err == nil {
			t.Fatal("expected error")
		}
		if after.Len() != 0 {
			t.Error("expected later writers to be skipped")
		}
	})

	t.Run("handles empty writers list", func(t *testing.T) {
		t.Parallel()

		n, err := NewMultiWriter().Write(createTestReport())
		if err != nil || n != 0 {
			t.Errorf("expected (0, nil), got (%d, %v)", n, err)
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	write := func(t *testing.T, report *model.ScanReport) string {
		t.Helper()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return buf.String()
	}

	t.Run("writes report header", func(t *testing.T) {
		t.Parallel()

		output := write(t, createTestReport())
		for _, want := range []string{"# Wireless Scan Report", "`wlan0`", "Fresh (privileged)", "Raw Digest (SHA3-256)"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("writes security summary", func(t *testing.T) {
		t.Parallel()

		output := write(t, createTestReport())
		if !strings.Contains(output, "## Summary") || !strings.Contains(output, "**Total**") {
			t.Error("expected summary table")
		}
	})

	t.Run("includes channel pie chart", func(t *testing.T) {
		t.Parallel()

		output := write(t, createTestReport())
		if !strings.Contains(output, "```mermaid") {
			t.Error("expected mermaid code block")
		}
		if !strings.Contains(output, "Channel 6") || !strings.Contains(output, "Channel 11") {
			t.Error("expected channel labels in pie chart")
		}
	})

	t.Run("warns about open networks", func(t *testing.T) {
		t.Parallel()

		output := write(t, createTestReport())
		if !strings.Contains(output, "[!WARNING]") {
			t.Error("expected warning alert for open network")
		}
	})

	t.Run("tip when everything is encrypted", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.AccessPoints = report.AccessPoints[:1]
		output := write(t, report)
		if !strings.Contains(output, "[!TIP]") {
			t.Error("expected tip alert")
		}
	})

	t.Run("note when nothing was found", func(t *testing.T) {
		t.Parallel()

		output := write(t, model.NewScanReport("wlan0"))
		if !strings.Contains(output, "[!NOTE]") {
			t.Error("expected note alert")
		}
		if !strings.Contains(output, "No access points found.") {
			t.Error("expected empty message")
		}
		if strings.Contains(output, "```mermaid") {
			t.Error("expected no chart for empty report")
		}
	})

	t.Run("writes access point table and details", func(t *testing.T) {
		t.Parallel()

		output := write(t, createTestReport())
		for _, want := range []string{"## Access Points", "`00:11:22:33:44:55`", "Cafe Guest", "<details>", "Bit Rates: 1 Mb/s; 2 Mb/s"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("writes warnings", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Warnings = []string{"line 3: malformed cell line"}
		output := write(t, report)
		if !strings.Contains(output, "## Warnings") || !strings.Contains(output, "[!CAUTION]") {
			t.Error("expected warnings section with caution alert")
		}
	})

	t.Run("writes footer with link", func(t *testing.T) {
		t.Parallel()

		output := write(t, createTestReport())
		if !strings.Contains(output, "https://github.com/nao1215/iwscan") {
			t.Error("expected footer link")
		}
	})
}

func TestTruncateDisplay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		maxWidth int
		want     string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"無線ネットワーク", 10, "無線ネ..."},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got := truncateDisplay(tt.input, tt.maxWidth)
			if got != tt.want {
				t.Errorf("truncateDisplay(%q, %d) = %q, want %q", tt.input, tt.maxWidth, got, tt.want)
			}
			if displayWidth(got) > tt.maxWidth {
				t.Errorf("result %q is wider than %d", got, tt.maxWidth)
			}
		})
	}
}

func TestDisplayWidth(t *testing.T) {
	t.Parallel()

	if got := displayWidth("abc"); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
	if got := displayWidth("無線"); got != 4 {
		t.Errorf("expected 4, got %d", got)
	}
	if got := padRight("無線", 6); got != "無線  " {
		t.Errorf("unexpected padding %q", got)
	}
}
