package database

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/iwscan/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *ScanDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// newTestReport creates a report with two access points scanned at the given time.
func newTestReport(iface string, at time.Time) *model.ScanReport {
	report := model.NewScanReport(iface)
	report.DateScanned = at
	report.Privileged = true
	report.Attempts = 2
	report.RawDigest = "digest-" + at.Format("150405")

	home := model.NewAccessPoint("Cell01", "00:11:22:33:44:55")
	home.ESSID = "home"
	home.Channel = 6
	home.SignalLevel = "-40 dBm"
	home.EncryptionKeyStatus = "on"
	home.Extra = []string{"IE: IEEE 802.11i/WPA2 Version 1"}

	cafe := model.NewAccessPoint("Cell02", "66:77:88:99:AA:BB")
	cafe.ESSID = "cafe"
	cafe.Channel = 11
	cafe.EncryptionKeyStatus = "off"

	report.AccessPoints = append(report.AccessPoints, home, cafe)
	return report
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		dbPath := filepath.Join(dbDir, FileName)
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != dbPath {
			t.Errorf("expected path %q, got %q", dbPath, db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{})
		if !errors.Is(err, ErrDatabaseNotFound) {
			t.Errorf("expected ErrDatabaseNotFound, got %v", err)
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		_ = db.Close()

		db, err = Open(dbDir, Options{EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		_ = db.Close()
	})
}

// TestDefaultOptions tests the default options.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.CreateIfNotExists || !opts.EnableWAL {
		t.Errorf("unexpected default options: %+v", opts)
	}
}

// TestScanReports tests saving and loading reports.
func TestScanReports(t *testing.T) {
	t.Parallel()

	t.Run("returns nil for unknown interface", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		report, err := db.GetLatestScanReport(t.Context(), "wlan9")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report != nil {
			t.Error("expected nil report")
		}
	})

	t.Run("round-trips a report", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		want := newTestReport("wlan0", time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC))

		id, err := db.SaveScanReport(t.Context(), want)
		if err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		if id <= 0 {
			t.Errorf("expected positive id, got %d", id)
		}

		got, err := db.GetLatestScanReport(t.Context(), "wlan0")
		if err != nil {
			t.Fatalf("failed to get report: %v", err)
		}
		if got == nil {
			t.Fatal("expected report")
		}
		if got.Interface != "wlan0" || got.Count() != 2 || got.RawDigest != want.RawDigest {
			t.Errorf("unexpected report: %+v", got)
		}
		if got.AccessPoints[0].Security() != "WPA2" {
			t.Errorf("expected WPA2, got %s", got.AccessPoints[0].Security())
		}
	})

	t.Run("latest report is the newest scan", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
		newer := newTestReport("wlan0", base.Add(time.Hour))
		older := newTestReport("wlan0", base)

		// Insert out of order.
		if _, err := db.SaveScanReport(t.Context(), newer); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		if _, err := db.SaveScanReport(t.Context(), older); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}

		got, err := db.GetLatestScanReport(t.Context(), "wlan0")
		if err != nil {
			t.Fatalf("failed to get report: %v", err)
		}
		if got.RawDigest != newer.RawDigest {
			t.Errorf("expected newest report, got digest %s", got.RawDigest)
		}
	})
}

// TestGetScanHistory tests retrieving all reports of an interface.
func TestGetScanHistory(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	for i := range 3 {
		if _, err := db.SaveScanReport(t.Context(), newTestReport("wlan0", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
	}
	if _, err := db.SaveScanReport(t.Context(), newTestReport("wlan1", base)); err != nil {
		t.Fatalf("failed to save report: %v", err)
	}

	history, err := db.GetScanHistory(t.Context(), "wlan0")
	if err != nil {
		t.Fatalf("failed to get history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(history))
	}
	if !history[0].DateScanned.After(history[2].DateScanned) {
		t.Error("expected newest report first")
	}

	ifaces, err := db.ListInterfaces(t.Context())
	if err != nil {
		t.Fatalf("failed to list interfaces: %v", err)
	}
	if len(ifaces) != 2 || ifaces[0] != "wlan0" || ifaces[1] != "wlan1" {
		t.Errorf("unexpected interfaces: %v", ifaces)
	}
}

// TestGetScanHistoryWithMetadata tests metadata retrieval.
func TestGetScanHistoryWithMetadata(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	at := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	report := newTestReport("wlan0", at)
	report.Warnings = []string{"line 3: malformed cell line"}

	id, err := db.SaveScanReport(t.Context(), report)
	if err != nil {
		t.Fatalf("failed to save report: %v", err)
	}

	metas, err := db.GetScanHistoryWithMetadata(t.Context(), "wlan0")
	if err != nil {
		t.Fatalf("failed to get metadata: %v", err)
	}
	if len(metas) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(metas))
	}

	meta := metas[0]
	if meta.ID != id || meta.Interface != "wlan0" || !meta.Privileged || meta.Attempts != 2 {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	if !meta.Timestamp.Equal(at) {
		t.Errorf("expected timestamp %v, got %v", at, meta.Timestamp)
	}
	if meta.Summary["access_points"] != 2 || meta.Summary["open"] != 1 || meta.Summary["warnings"] != 1 {
		t.Errorf("unexpected summary: %v", meta.Summary)
	}
}

// TestGetScanReportByID tests retrieving a report by ID.
func TestGetScanReportByID(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	id, err := db.SaveScanReport(t.Context(), newTestReport("wlan0", time.Now()))
	if err != nil {
		t.Fatalf("failed to save report: %v", err)
	}

	report, err := db.GetScanReportByID(t.Context(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report == nil || report.Interface != "wlan0" {
		t.Errorf("unexpected report: %+v", report)
	}

	missing, err := db.GetScanReportByID(t.Context(), id+100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown id")
	}
}

// TestFindAccessPointsByAddress tests cross-report address lookup.
func TestFindAccessPointsByAddress(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	if _, err := db.SaveScanReport(t.Context(), newTestReport("wlan0", base)); err != nil {
		t.Fatalf("failed to save report: %v", err)
	}
	if _, err := db.SaveScanReport(t.Context(), newTestReport("wlan1", base.Add(time.Hour))); err != nil {
		t.Fatalf("failed to save report: %v", err)
	}

	sightings, err := db.FindAccessPointsByAddress(t.Context(), "66:77:88:99:aa:bb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sightings) != 2 {
		t.Fatalf("expected 2 sightings, got %d", len(sightings))
	}
	if sightings[0].Interface != "wlan1" {
		t.Errorf("expected newest sighting first, got %s", sightings[0].Interface)
	}
	if sightings[0].Security != "open" || sightings[0].ESSID != "cafe" || sightings[0].Channel != 11 {
		t.Errorf("unexpected sighting: %+v", sightings[0])
	}

	none, err := db.FindAccessPointsByAddress(t.Context(), "FF:FF:FF:FF:FF:FF")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no sightings, got %d", len(none))
	}
}

// TestParseTimestamp tests timestamp parsing.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		zero  bool
	}{
		{"2025-03-14 09:00:00.000", false},
		{"2025-03-14 09:00:00", false},
		{"2025-03-14T09:00:00Z", false},
		{"not a time", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if got := parseTimestamp(tt.input); got.IsZero() != tt.zero {
				t.Errorf("parseTimestamp(%q) = %v", tt.input, got)
			}
		})
	}
}
