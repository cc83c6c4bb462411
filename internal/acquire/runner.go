package acquire

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandRunner runs an external command and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// waitDelay bounds how long Run waits for the output pipes after the
// command was killed.
const waitDelay = 500 * time.Millisecond

// ExecRunner runs commands with os/exec.
// On timeout or cancellation the whole process group is killed, so a
// wrapper such as sudo cannot leave its child running.
type ExecRunner struct {
	// Timeout bounds each invocation. Zero means no limit beyond the context.
	Timeout time.Duration
}

// Run executes the command and returns its standard output.
// On failure, the error includes the trimmed standard error output.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	killProcessGroupOnCancel(cmd)

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.Bytes(), fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return stdout.Bytes(), fmt.Errorf("%s: %w", name, err)
	}

	return stdout.Bytes(), nil
}
