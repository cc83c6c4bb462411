//go:build !unix

package acquire

import "os/exec"

// killProcessGroupOnCancel keeps the default cancellation, which kills only
// the direct child. WaitDelay still bounds the wait for its output.
func killProcessGroupOnCancel(_ *exec.Cmd) {}
