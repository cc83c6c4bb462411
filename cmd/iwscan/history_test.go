package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/iwscan/internal/database"
	"github.com/nao1215/iwscan/internal/model"
)

// historyReport builds an unprivileged report of wlan0.
func historyReport(at time.Time, aps ...*model.AccessPoint) *model.ScanReport {
	r := model.NewScanReport("wlan0")
	r.DateScanned = at
	r.Attempts = 1
	r.AccessPoints = aps
	return r
}

func historyAP(address, essid, keyStatus, signal string) *model.AccessPoint {
	ap := model.NewAccessPoint("Cell", address)
	ap.ESSID = essid
	ap.Channel = 6
	ap.EncryptionKeyStatus = keyStatus
	ap.SignalLevel = signal
	return ap
}

// setupHistoryDB stores two scans of wlan0 and one of wlan1.
// It returns the database and the ID of the oldest wlan0 scan.
func setupHistoryDB(t *testing.T) (*database.ScanDB, int64) {
	t.Helper()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	older := historyReport(base,
		historyAP("00:11:22:33:44:55", "home", "on", "-40 dBm"),
		historyAP("66:77:88:99:AA:BB", "cafe", "off", "-70 dBm"),
	)
	newer := historyReport(base.Add(time.Hour),
		historyAP("00:11:22:33:44:55", "home", "on", "-55 dBm"),
		historyAP("12:34:56:78:9A:BC", "office", "on", "-60 dBm"),
	)

	oldID, err := db.SaveScanReport(t.Context(), older)
	if err != nil {
		t.Fatalf("failed to save report: %v", err)
	}
	if _, err := db.SaveScanReport(t.Context(), newer); err != nil {
		t.Fatalf("failed to save report: %v", err)
	}

	other := historyReport(base, historyAP("66:77:88:99:AA:BB", "cafe", "off", "-80 dBm"))
	other.Interface = "wlan1"
	if _, err := db.SaveScanReport(t.Context(), other); err != nil {
		t.Fatalf("failed to save report: %v", err)
	}

	return db, oldID
}

// TestNewHistoryCmd tests the history command flags.
func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()

	tests := []struct {
		name      string
		shorthand string
	}{
		{"list", "l"},
		{"list-interfaces", "L"},
		{"address", "a"},
		{"with-scan-id", "i"},
		{"json", "j"},
		{"markdown", "m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
		})
	}
}

// TestRunHistoryCmdValidation tests argument checks made before the database is opened.
func TestRunHistoryCmdValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"interface required", []string{}, "interface is required"},
		{"invalid interface", []string{"--", "-x"}, "invalid interface"},
		{"conflicting formats", []string{"--json", "--markdown", "wlan0"}, "conflicting report formats"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewHistoryCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

// TestRunHistory tests the history views against a real database.
func TestRunHistory(t *testing.T) {
	t.Parallel()

	t.Run("lists interfaces", func(t *testing.T) {
		t.Parallel()

		db, _ := setupHistoryDB(t)
		var out bytes.Buffer
		if err := runHistory(t.Context(), &out, db, historyOptions{listInterfaces: true}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), "Scanned interfaces (2)") {
			t.Errorf("unexpected output:\n%s", out.String())
		}
	})

	t.Run("lists interfaces as JSON on an empty database", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		var out bytes.Buffer
		if err := runHistory(t.Context(), &out, db, historyOptions{listInterfaces: true, jsonOutput: true}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.TrimSpace(out.String()) != "[]" {
			t.Errorf("expected empty JSON array, got %q", out.String())
		}
	})

	t.Run("lists scans", func(t *testing.T) {
		t.Parallel()

		db, _ := setupHistoryDB(t)
		var out bytes.Buffer
		if err := runHistory(t.Context(), &out, db, historyOptions{iface: "wlan0", list: true}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := out.String()
		if !strings.Contains(got, "Scan history for wlan0 (2 scans)") {
			t.Errorf("unexpected output:\n%s", got)
		}
		if !strings.Contains(got, "cached") {
			t.Errorf("expected scan type, got:\n%s", got)
		}
	})

	t.Run("lists sightings", func(t *testing.T) {
		t.Parallel()

		db, _ := setupHistoryDB(t)
		var out bytes.Buffer
		opts := historyOptions{address: "66:77:88:99:aa:bb", jsonOutput: true}
		if err := runHistory(t.Context(), &out, db, opts); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var sightings []database.Sighting
		if err := json.Unmarshal(out.Bytes(), &sightings); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(sightings) != 2 {
			t.Errorf("expected 2 sightings, got %d", len(sightings))
		}
	})

	t.Run("compares the latest two scans", func(t *testing.T) {
		t.Parallel()

		db, _ := setupHistoryDB(t)
		var out bytes.Buffer
		if err := runHistory(t.Context(), &out, db, historyOptions{iface: "wlan0"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got := out.String()
		for _, want := range []string{
			"Scan Comparison: wlan0",
			"Appeared (1)",
			"12:34:56:78:9A:BC",
			"Disappeared (1)",
			"66:77:88:99:AA:BB",
			"Signal Changes (1)",
			"-40 dBm -> -55 dBm",
			"Still visible: 1 access points",
		} {
			if !strings.Contains(got, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, got)
			}
		}
	})

	t.Run("compares as Markdown", func(t *testing.T) {
		t.Parallel()

		db, _ := setupHistoryDB(t)
		var out bytes.Buffer
		if err := runHistory(t.Context(), &out, db, historyOptions{iface: "wlan0", markdownOutput: true}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got := out.String()
		for _, want := range []string{"# Scan Comparison: wlan0", "## Summary", "| Metric", "## Appeared (1)"} {
			if !strings.Contains(got, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, got)
			}
		}
	})

	t.Run("compares with a chosen scan", func(t *testing.T) {
		t.Parallel()

		db, oldID := setupHistoryDB(t)
		var out bytes.Buffer
		opts := historyOptions{iface: "wlan0", withScanID: oldID, jsonOutput: true}
		if err := runHistory(t.Context(), &out, db, opts); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var result ComparisonResult
		if err := json.Unmarshal(out.Bytes(), &result); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if result.Interface != "wlan0" || result.UnchangedCount != 1 {
			t.Errorf("unexpected result: %+v", result)
		}
	})

	t.Run("rejects a scan of another interface", func(t *testing.T) {
		t.Parallel()

		db, _ := setupHistoryDB(t)
		// The wlan1 scan was saved third.
		opts := historyOptions{iface: "wlan0", withScanID: 3}
		err := runHistory(t.Context(), &bytes.Buffer{}, db, opts)
		if err == nil || !strings.Contains(err.Error(), "belongs to wlan1") {
			t.Errorf("expected interface mismatch error, got %v", err)
		}
	})

	t.Run("needs two scans", func(t *testing.T) {
		t.Parallel()

		db, _ := setupHistoryDB(t)
		err := runHistory(t.Context(), &bytes.Buffer{}, db, historyOptions{iface: "wlan1"})
		if err == nil || !strings.Contains(err.Error(), "at least 2 scans") {
			t.Errorf("expected error, got %v", err)
		}
	})

	t.Run("unknown interface", func(t *testing.T) {
		t.Parallel()

		db, _ := setupHistoryDB(t)
		err := runHistory(t.Context(), &bytes.Buffer{}, db, historyOptions{iface: "wlan7"})
		if err == nil || !strings.Contains(err.Error(), "no scan history") {
			t.Errorf("expected error, got %v", err)
		}
	})
}

// TestCompareReports tests the comparison summary.
func TestCompareReports(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	previous := historyReport(base,
		historyAP("00:11:22:33:44:55", "home", "off", ""),
	)
	current := historyReport(base.Add(time.Hour),
		historyAP("00:11:22:33:44:55", "home", "on", ""),
		historyAP("66:77:88:99:AA:BB", "", "off", ""),
	)

	result := compareReports(previous, current)

	if result.PreviousScan.AccessPoints != 1 || result.CurrentScan.AccessPoints != 2 {
		t.Errorf("unexpected counts: %+v / %+v", result.PreviousScan, result.CurrentScan)
	}
	if result.UnchangedCount != 1 {
		t.Errorf("expected 1 unchanged, got %d", result.UnchangedCount)
	}
	if len(result.Diff.Appeared) != 1 || len(result.Diff.SecurityChanges) != 1 {
		t.Errorf("unexpected diff: %+v", result.Diff)
	}

	var md bytes.Buffer
	if err := outputComparisonMarkdown(&md, result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(md.String(), "[!WARNING]") || !strings.Contains(md.String(), "<hidden>") {
		t.Errorf("unexpected markdown:\n%s", md.String())
	}
}

// TestFormatDelta tests signed delta formatting.
func TestFormatDelta(t *testing.T) {
	t.Parallel()

	tests := []struct {
		delta int
		want  string
	}{
		{2, "+2"},
		{0, "0"},
		{-1, "-1"},
	}

	for _, tt := range tests {
		if got := formatDelta(tt.delta); got != tt.want {
			t.Errorf("formatDelta(%d) = %q, want %q", tt.delta, got, tt.want)
		}
	}
}

// TestFormatScanSummary tests the stored summary formatting.
func TestFormatScanSummary(t *testing.T) {
	t.Parallel()

	if got := formatScanSummary(nil); got != "N/A" {
		t.Errorf("expected N/A, got %q", got)
	}

	got := formatScanSummary(map[string]int{"access_points": 3, "open": 1, "warnings": 2})
	if got != "3 (1 open), 2 warning(s)" {
		t.Errorf("unexpected summary %q", got)
	}
}
