package scan

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/iwscan/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of interfaces scanned at once.
const DefaultConcurrency = 4

// Result is the outcome of scanning one interface in a batch.
type Result struct {
	// Interface is the scanned interface.
	Interface string

	// Report is nil when acquisition failed. After a fail-fast parse error
	// it holds the cells parsed before the malformed one.
	Report *model.ScanReport

	// Err is the scan error, if any.
	Err error
}

// BatchScanner scans several interfaces concurrently.
type BatchScanner struct {
	scanner     *Scanner
	scannerFor  func(iface string) *Scanner
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchScanner.
type BatchOption func(*BatchScanner)

// WithBatchLogger sets a custom logger for batch scanning.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchScanner) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent scans.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchScanner) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithScannerFor makes the batch use a separate Scanner per interface, so
// per-interface settings such as retry limits apply. A nil result falls
// back to the Scanner passed to NewBatchScanner.
func WithScannerFor(f func(iface string) *Scanner) BatchOption {
	return func(b *BatchScanner) {
		b.scannerFor = f
	}
}

// NewBatchScanner creates a BatchScanner around scanner.
func NewBatchScanner(scanner *Scanner, opts ...BatchOption) *BatchScanner {
	b := &BatchScanner{
		scanner:     scanner,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	return b
}

// ScanAll scans every interface and returns one Result per interface, in
// input order. A failed scan is recorded in its Result and does not stop
// the others. The returned error is non-nil only when ctx was cancelled.
func (b *BatchScanner) ScanAll(ctx context.Context, ifaces []string) ([]Result, error) {
	b.logger.Info("starting batch scan",
		"interfaces", len(ifaces),
		"concurrency", b.concurrency,
	)

	start := time.Now()
	results := make([]Result, len(ifaces))
	for i, name := range ifaces {
		results[i].Interface = name
	}

	err := b.run(ctx, ifaces, func(r Result, i int) {
		// Each goroutine writes its own index.
		results[i] = r
	})

	b.logger.Info("batch scan complete",
		"interfaces", len(ifaces),
		"elapsed", time.Since(start),
	)

	return results, err
}

// ScanAllWithCallback scans every interface and calls callback as each scan
// finishes. callback runs on the scanning goroutine and must be safe for
// concurrent use.
func (b *BatchScanner) ScanAllWithCallback(
	ctx context.Context,
	ifaces []string,
	callback func(result Result, index int),
) error {
	b.logger.Info("starting batch scan with callback",
		"interfaces", len(ifaces),
		"concurrency", b.concurrency,
	)

	return b.run(ctx, ifaces, callback)
}

func (b *BatchScanner) scannerOf(iface string) *Scanner {
	if b.scannerFor != nil {
		if s := b.scannerFor(iface); s != nil {
			return s
		}
	}
	return b.scanner
}

func (b *BatchScanner) run(ctx context.Context, ifaces []string, done func(Result, int)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, name := range ifaces {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			report, err := b.scannerOf(name).Scan(ctx, name)
			if err != nil {
				b.logger.Warn("scan failed",
					"interface", name,
					"error", err,
				)
			}

			done(Result{Interface: name, Report: report, Err: err}, i)

			// A failed interface must not cancel its siblings.
			return nil
		})
	}

	return g.Wait()
}
