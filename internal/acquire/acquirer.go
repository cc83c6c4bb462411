package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// NoScanResults is the text the scanning utility prints when the kernel has
// no cached results yet.
const NoScanResults = "No scan results"

// Defaults for an Acquirer.
const (
	// DefaultIwlistPath is resolved through PATH.
	DefaultIwlistPath = "iwlist"

	// DefaultPrivilegeCommand wraps the privileged invocation.
	DefaultPrivilegeCommand = "sudo"

	// DefaultPrivilegeAttempts is the number of privileged invocations tried
	// before falling back. sudo already re-prompts for a mistyped password,
	// so one attempt covers the interactive case.
	DefaultPrivilegeAttempts = 1

	// DefaultRetryDelay is the wait between unprivileged attempts.
	DefaultRetryDelay = 1 * time.Second
)

// DefaultPrivilegeArgs makes sudo fail instead of prompting when a password
// would be required.
var DefaultPrivilegeArgs = []string{"-n"}

// Result is raw scan text together with how it was obtained.
type Result struct {
	// Text is the complete standard output of the scanning utility.
	Text string

	// Privileged is true if the text came from a privileged invocation.
	Privileged bool

	// Attempts counts every invocation made, privileged ones included.
	Attempts int
}

// Acquirer runs the scanning utility with privileged-then-unprivileged
// fallback and retries.
type Acquirer struct {
	runner            CommandRunner
	iwlistPath        string
	privileged        bool
	privilegeCommand  string
	privilegeArgs     []string
	privilegeAttempts int
	retryDelay        time.Duration
	logger            *slog.Logger

	// geteuid is replaceable so tests can pretend to run as root.
	geteuid func() int
}

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithRunner sets the CommandRunner. The default is an ExecRunner without timeout.
func WithRunner(r CommandRunner) Option {
	return func(a *Acquirer) {
		a.runner = r
	}
}

// WithIwlistPath sets the scanning utility to run.
func WithIwlistPath(path string) Option {
	return func(a *Acquirer) {
		if path != "" {
			a.iwlistPath = path
		}
	}
}

// WithPrivileged enables or disables the privileged first attempt.
func WithPrivileged(enabled bool) Option {
	return func(a *Acquirer) {
		a.privileged = enabled
	}
}

// WithPrivilegeCommand sets the wrapper used for the privileged invocation,
// e.g. ("sudo", "-n") or ("doas").
func WithPrivilegeCommand(command string, args ...string) Option {
	return func(a *Acquirer) {
		a.privilegeCommand = command
		a.privilegeArgs = args
	}
}

// WithPrivilegeAttempts sets how many privileged invocations are tried
// before falling back.
func WithPrivilegeAttempts(n int) Option {
	return func(a *Acquirer) {
		if n > 0 {
			a.privilegeAttempts = n
		}
	}
}

// WithRetryDelay sets the wait between unprivileged attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(a *Acquirer) {
		if d >= 0 {
			a.retryDelay = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Acquirer) {
		a.logger = logger
	}
}

// New creates an Acquirer with the given options.
func New(opts ...Option) *Acquirer {
	a := &Acquirer{
		runner:            ExecRunner{},
		iwlistPath:        DefaultIwlistPath,
		privileged:        true,
		privilegeCommand:  DefaultPrivilegeCommand,
		privilegeArgs:     DefaultPrivilegeArgs,
		privilegeAttempts: DefaultPrivilegeAttempts,
		retryDelay:        DefaultRetryDelay,
		geteuid:           os.Geteuid,
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger = slog.Default()
	}

	return a
}

// ValidateInterface checks that name can safely be passed to the scanning
// utility as an argument.
func ValidateInterface(name string) error {
	if name == "" || strings.HasPrefix(name, "-") || strings.ContainsAny(name, " \t\r\n/") {
		return fmt.Errorf("%w: %q", ErrInvalidInterface, name)
	}
	return nil
}

// Acquire returns the raw scan text for iface.
//
// The privileged invocation is tried first, if enabled. When it fails, up to
// retryLimit unprivileged invocations are made, stopping at the first output
// that does not contain NoScanResults. A retryLimit below 1 is treated as 1.
//
// If the retries are exhausted and the output still reports no results, the
// last Result is returned together with ErrNoScanResults. If no invocation
// ran successfully, the error wraps ErrAcquisitionFailed.
func (a *Acquirer) Acquire(ctx context.Context, iface string, retryLimit int) (*Result, error) {
	if err := ValidateInterface(iface); err != nil {
		return nil, err
	}
	if retryLimit < 1 {
		retryLimit = 1
	}

	attempts := 0
	var privErr error

	if name, args, ok := a.privilegedCommand(iface); ok {
		for i := 0; i < a.privilegeAttempts; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			attempts++
			out, err := a.runner.Run(ctx, name, args...)
			if err == nil {
				a.logger.Debug("privileged scan completed",
					"interface", iface,
					"attempts", attempts,
				)
				return &Result{Text: string(out), Privileged: true, Attempts: attempts}, nil
			}

			privErr = err
			a.logger.Debug("privileged scan failed",
				"interface", iface,
				"attempt", i+1,
				"error", err,
			)
		}

		a.logger.Warn("privileged scan failed, falling back to unprivileged scan",
			"interface", iface,
			"retryLimit", retryLimit,
			"error", privErr,
		)
	}

	var last *Result
	var lastErr error

	for i := 0; i < retryLimit; i++ {
		if i > 0 {
			if err := sleepContext(ctx, a.retryDelay); err != nil {
				return nil, err
			}
		} else if err := ctx.Err(); err != nil {
			return nil, err
		}

		attempts++
		out, err := a.runner.Run(ctx, a.iwlistPath, iface, "scan")
		if err != nil {
			lastErr = err
			a.logger.Debug("unprivileged scan failed",
				"interface", iface,
				"attempt", i+1,
				"error", err,
			)
			continue
		}

		last = &Result{Text: string(out), Attempts: attempts}
		if !strings.Contains(last.Text, NoScanResults) {
			return last, nil
		}

		a.logger.Debug("no scan results yet",
			"interface", iface,
			"attempt", i+1,
			"retryLimit", retryLimit,
		)
	}

	if last != nil {
		last.Attempts = attempts
		return last, fmt.Errorf("%w on %s after %d attempts", ErrNoScanResults, iface, attempts)
	}

	return nil, fmt.Errorf("%w on %s: %w", ErrAcquisitionFailed, iface, errors.Join(privErr, lastErr))
}

// privilegedCommand returns the command line of the privileged invocation.
// ok is false when privileged scanning is disabled or has no wrapper to use.
func (a *Acquirer) privilegedCommand(iface string) (name string, args []string, ok bool) {
	if !a.privileged {
		return "", nil, false
	}

	// Already root: no wrapper needed.
	if a.geteuid() == 0 {
		return a.iwlistPath, []string{iface, "scan"}, true
	}

	if a.privilegeCommand == "" {
		return "", nil, false
	}

	args = make([]string, 0, len(a.privilegeArgs)+3)
	args = append(args, a.privilegeArgs...)
	args = append(args, a.iwlistPath, iface, "scan")
	return a.privilegeCommand, args, true
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
