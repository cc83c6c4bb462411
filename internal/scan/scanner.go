package scan

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/iwscan/internal/acquire"
	"github.com/nao1215/iwscan/internal/iwlist"
	"github.com/nao1215/iwscan/internal/model"
	"golang.org/x/crypto/sha3"
)

// Acquirer obtains raw scan text for an interface.
// *acquire.Acquirer implements it.
type Acquirer interface {
	Acquire(ctx context.Context, iface string, retryLimit int) (*acquire.Result, error)
}

// DefaultRetryLimit is the number of unprivileged attempts made when
// WithRetryLimit is not given.
const DefaultRetryLimit = 20

// Scanner composes acquisition and parsing.
type Scanner struct {
	acquirer   Acquirer
	retryLimit int
	lenient    bool
	logger     *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithRetryLimit sets the number of unprivileged attempts.
func WithRetryLimit(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.retryLimit = n
		}
	}
}

// WithLenient makes the Scanner keep well-formed cells from malformed
// output and record the problems as report warnings.
func WithLenient(lenient bool) Option {
	return func(s *Scanner) {
		s.lenient = lenient
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// New creates a Scanner that reads scan text from acq.
func New(acq Acquirer, opts ...Option) *Scanner {
	s := &Scanner{
		acquirer:   acq,
		retryLimit: DefaultRetryLimit,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Scan acquires and parses one scan of iface.
//
// Acquisition errors are returned as is and nothing is parsed. A parse
// error in fail-fast mode is returned together with the report holding the
// cells completed before the malformed one.
func (s *Scanner) Scan(ctx context.Context, iface string) (*model.ScanReport, error) {
	start := time.Now()

	res, err := s.acquirer.Acquire(ctx, iface, s.retryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire scan of %s: %w", iface, err)
	}

	report, err := ScanText(iface, res.Text, iwlist.WithLenient(s.lenient))
	report.Privileged = res.Privileged
	report.Attempts = res.Attempts
	if err != nil {
		return report, fmt.Errorf("failed to parse scan of %s: %w", iface, err)
	}

	for _, w := range report.Warnings {
		s.logger.Warn("skipped malformed scan output",
			"interface", iface,
			"warning", w,
		)
	}

	s.logger.Debug("scan completed",
		"interface", iface,
		"access_points", report.Count(),
		"privileged", report.Privileged,
		"attempts", report.Attempts,
		"elapsed", time.Since(start),
	)

	return report, nil
}

// ScanText builds a report for iface from raw scan text.
// With a lenient parser, parse errors become report warnings and the
// returned error is nil. Otherwise the report holds the cells parsed so far
// and the parse error is returned.
func ScanText(iface, raw string, opts ...iwlist.Option) (*model.ScanReport, error) {
	report := model.NewScanReport(iface)
	report.RawDigest = Digest(raw)

	p := iwlist.NewParser(opts...)
	aps, err := p.Parse(raw)
	report.AccessPoints = aps

	if err != nil && p.Lenient() {
		for _, perr := range iwlist.ParseErrors(err) {
			report.Warnings = append(report.Warnings, perr.Error())
		}
		return report, nil
	}

	return report, err
}

// Digest returns the hex SHA3-256 digest of raw scan text.
func Digest(raw string) string {
	sum := sha3.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
