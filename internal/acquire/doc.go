// Package acquire obtains raw "iwlist <iface> scan" output.
//
// A privileged invocation (through sudo by default, or directly when the
// process already runs as root) triggers a fresh scan and is tried first.
// If it fails, the Acquirer falls back to unprivileged invocations, which
// only return what the kernel has cached. Those are retried until the output
// no longer says "No scan results" or the retry limit is reached.
//
// Commands are run through the CommandRunner interface so that the retry
// and fallback logic can be tested without the scanning utility installed.
package acquire
