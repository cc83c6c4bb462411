package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/iwscan/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "iwscan.db"

// ErrDatabaseNotFound is returned by Open when the database file is missing
// and CreateIfNotExists is false.
var ErrDatabaseNotFound = errors.New("database not found")

// ScanDB provides SQLite-based storage for scan reports.
// It manages connection pooling and provides methods for storing and
// querying the scan history.
//
// The full report is stored in scan_reports as JSON. Each access point is
// also stored as a row of access_points so that hardware addresses can be
// looked up across the whole history.
type ScanDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ScanDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a ScanDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// Otherwise a missing database yields ErrDatabaseNotFound.
func Open(dbDir string, opts Options) (*ScanDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a new file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &ScanDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := sdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return sdb, nil
}

// Path returns the path of the database file.
func (sdb *ScanDB) Path() string {
	return sdb.dbPath
}

// Close closes the database connection.
func (sdb *ScanDB) Close() error {
	return sdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (sdb *ScanDB) createTables() error {
	schema := `
	-- Scan reports store complete scan results as JSON
	CREATE TABLE IF NOT EXISTS scan_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		interface TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		privileged INTEGER NOT NULL DEFAULT 0,
		attempts INTEGER NOT NULL DEFAULT 0,
		raw_digest TEXT,
		report_json TEXT NOT NULL,
		summary TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reports_interface ON scan_reports(interface);
	CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON scan_reports(timestamp);

	-- Access points seen in each report
	CREATE TABLE IF NOT EXISTS access_points (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id INTEGER NOT NULL REFERENCES scan_reports(id) ON DELETE CASCADE,
		address TEXT NOT NULL,
		essid TEXT,
		channel INTEGER,
		signal_level TEXT,
		security TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_ap_address ON access_points(address);
	CREATE INDEX IF NOT EXISTS idx_ap_report ON access_points(report_id);
	`

	_, err := sdb.db.ExecContext(context.Background(), schema)
	return err
}

// timestampLayout is the format used for the timestamp column. It sorts
// lexically in chronological order.
const timestampLayout = "2006-01-02 15:04:05.000"

// scanSummary is the small aggregate stored next to each report.
func scanSummary(report *model.ScanReport) map[string]int {
	return map[string]int{
		"access_points": report.Count(),
		"encrypted":     report.EncryptedCount(),
		"open":          report.OpenCount(),
		"warnings":      len(report.Warnings),
	}
}

// SaveScanReport stores a scan report and its access points in a single
// transaction. It returns the ID of the new report.
func (sdb *ScanDB) SaveScanReport(ctx context.Context, report *model.ScanReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}
	summaryJSON, _ := json.Marshal(scanSummary(report)) //nolint:errcheck,errchkjson // map[string]int always marshals

	tx, err := sdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
	INSERT INTO scan_reports (interface, timestamp, privileged, attempts, raw_digest, report_json, summary)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		report.Interface,
		report.DateScanned.UTC().Format(timestampLayout),
		report.Privileged,
		report.Attempts,
		report.RawDigest,
		string(reportJSON),
		string(summaryJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save scan report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get report id: %w", err)
	}

	for _, ap := range report.AccessPoints {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO access_points (report_id, address, essid, channel, signal_level, security)
		VALUES (?, ?, ?, ?, ?, ?)
		`, id, ap.Address, ap.ESSID, ap.Channel, ap.SignalLevel, ap.Security())
		if err != nil {
			return 0, fmt.Errorf("failed to save access point %s: %w", ap.Address, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit scan report: %w", err)
	}

	return id, nil
}

// GetLatestScanReport retrieves the most recent scan report for an interface.
// It returns nil without error when the interface was never scanned.
func (sdb *ScanDB) GetLatestScanReport(ctx context.Context, iface string) (*model.ScanReport, error) {
	query := `
	SELECT report_json FROM scan_reports
	WHERE interface = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	var reportJSON string
	err := sdb.db.QueryRowContext(ctx, query, iface).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan report: %w", err)
	}

	return decodeReport(reportJSON)
}

// GetScanReportByID retrieves a scan report by its database ID.
// It returns nil without error when no such report exists.
func (sdb *ScanDB) GetScanReportByID(ctx context.Context, id int64) (*model.ScanReport, error) {
	var reportJSON string
	err := sdb.db.QueryRowContext(ctx, `SELECT report_json FROM scan_reports WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan report: %w", err)
	}

	return decodeReport(reportJSON)
}

func decodeReport(reportJSON string) (*model.ScanReport, error) {
	var report model.ScanReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// ListInterfaces returns every interface that has at least one stored report.
func (sdb *ScanDB) ListInterfaces(ctx context.Context) ([]string, error) {
	rows, err := sdb.db.QueryContext(ctx, `SELECT DISTINCT interface FROM scan_reports ORDER BY interface`)
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}
	defer rows.Close()

	var ifaces []string
	for rows.Next() {
		var iface string
		if err := rows.Scan(&iface); err != nil {
			return nil, fmt.Errorf("failed to scan interface: %w", err)
		}
		ifaces = append(ifaces, iface)
	}

	return ifaces, rows.Err()
}

// GetScanHistory retrieves all scan reports for an interface, newest first.
// Reports that can no longer be decoded are skipped.
func (sdb *ScanDB) GetScanHistory(ctx context.Context, iface string) ([]*model.ScanReport, error) {
	query := `
	SELECT report_json FROM scan_reports
	WHERE interface = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := sdb.db.QueryContext(ctx, query, iface)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	var reports []*model.ScanReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		report, err := decodeReport(reportJSON)
		if err != nil {
			continue
		}
		reports = append(reports, report)
	}

	return reports, rows.Err()
}

// ScanReportMetadata contains summary information about a scan report.
// This is used for displaying scan history without loading the full report.
type ScanReportMetadata struct {
	// ID is the unique identifier of the scan report in the database.
	ID int64 `json:"id"`

	// Interface is the scanned wireless interface.
	Interface string `json:"interface"`

	// Timestamp is when the scan was performed.
	Timestamp time.Time `json:"timestamp"`

	// Privileged reports whether the scan was a fresh, privileged one.
	Privileged bool `json:"privileged"`

	// Attempts is the number of runs the scan needed.
	Attempts int `json:"attempts"`

	// RawDigest is the SHA3-256 digest of the raw scan text.
	RawDigest string `json:"raw_digest,omitempty"`

	// Summary holds access point counts.
	Summary map[string]int `json:"summary"`
}

// GetScanHistoryWithMetadata retrieves report metadata for an interface,
// newest first. This is cheaper than GetScanHistory when only the list of
// scans is needed.
func (sdb *ScanDB) GetScanHistoryWithMetadata(ctx context.Context, iface string) ([]ScanReportMetadata, error) {
	query := `
	SELECT id, interface, timestamp, privileged, attempts, raw_digest, summary
	FROM scan_reports
	WHERE interface = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := sdb.db.QueryContext(ctx, query, iface)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	var results []ScanReportMetadata
	for rows.Next() {
		var meta ScanReportMetadata
		var timestamp string
		var digest, summaryJSON sql.NullString

		if err := rows.Scan(&meta.ID, &meta.Interface, &timestamp, &meta.Privileged, &meta.Attempts, &digest, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)
		meta.RawDigest = digest.String
		meta.Summary = make(map[string]int)
		if summaryJSON.Valid && summaryJSON.String != "" {
			if err := json.Unmarshal([]byte(summaryJSON.String), &meta.Summary); err != nil {
				meta.Summary = make(map[string]int)
			}
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// Sighting records one appearance of an access point in a stored report.
type Sighting struct {
	ReportID    int64     `json:"report_id"`
	Interface   string    `json:"interface"`
	Timestamp   time.Time `json:"timestamp"`
	Address     string    `json:"address"`
	ESSID       string    `json:"essid,omitempty"`
	Channel     int       `json:"channel,omitempty"`
	SignalLevel string    `json:"signal_level,omitempty"`
	Security    string    `json:"security"`
}

// FindAccessPointsByAddress returns every sighting of a hardware address,
// newest first. The comparison ignores case.
func (sdb *ScanDB) FindAccessPointsByAddress(ctx context.Context, address string) ([]Sighting, error) {
	query := `
	SELECT r.id, r.interface, r.timestamp, a.address, a.essid, a.channel, a.signal_level, a.security
	FROM access_points a
	JOIN scan_reports r ON r.id = a.report_id
	WHERE a.address = ? COLLATE NOCASE
	ORDER BY r.timestamp DESC, r.id DESC
	`

	rows, err := sdb.db.QueryContext(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("failed to find access point: %w", err)
	}
	defer rows.Close()

	var results []Sighting
	for rows.Next() {
		var s Sighting
		var timestamp string
		var essid, signal sql.NullString

		if err := rows.Scan(&s.ReportID, &s.Interface, &timestamp, &s.Address, &essid, &s.Channel, &signal, &s.Security); err != nil {
			return nil, fmt.Errorf("failed to scan sighting: %w", err)
		}

		s.Timestamp = parseTimestamp(timestamp)
		s.ESSID = essid.String
		s.SignalLevel = signal.String
		results = append(results, s)
	}

	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, it returns the zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
