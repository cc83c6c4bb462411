package acquire

import "errors"

// Acquisition errors.
// The Acquirer never hands failure text to its caller as if it were a scan:
// these errors are returned instead.
var (
	// ErrAcquisitionFailed is returned when every privileged and unprivileged
	// invocation of the scanning utility failed to run.
	ErrAcquisitionFailed = errors.New("scan acquisition failed")

	// ErrNoScanResults is returned when the retry limit was reached and the
	// last output still reported that no scan results are available.
	ErrNoScanResults = errors.New("no scan results available")

	// ErrInvalidInterface is returned for interface names that are empty,
	// contain whitespace or look like a command line flag.
	ErrInvalidInterface = errors.New("invalid interface name")
)
