package inventory

import "errors"

// Sentinel errors for pipeline operations.
var (
	// ErrNotFound indicates a required input file or directory is
	// missing. Fatal for the run.
	ErrNotFound = errors.New("input not found")

	// ErrMalformedInput indicates a tabular file is missing required
	// columns. Fatal for that file's consumer.
	ErrMalformedInput = errors.New("malformed tabular input")

	// ErrDiscoveryTimeout indicates a discovery invocation exceeded
	// its wall-clock bound and was killed. Non-fatal per prefix.
	ErrDiscoveryTimeout = errors.New("discovery timed out")

	// ErrDiscoveryFailed indicates the discovery process exited
	// non-zero. Non-fatal per prefix.
	ErrDiscoveryFailed = errors.New("discovery failed")
)

// IsNotFound returns true if the error indicates a missing input.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsMalformedInput returns true if the error indicates a tabular file
// with missing required columns.
func IsMalformedInput(err error) bool {
	return errors.Is(err, ErrMalformedInput)
}

// IsDiscoveryTimeout returns true if the error indicates a timed-out
// discovery invocation.
func IsDiscoveryTimeout(err error) bool {
	return errors.Is(err, ErrDiscoveryTimeout)
}

// IsDiscoveryFailed returns true if the error indicates a discovery
// process that exited non-zero.
func IsDiscoveryFailed(err error) bool {
	return errors.Is(err, ErrDiscoveryFailed)
}
