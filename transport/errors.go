package transport

import "errors"

var (
	// ErrTimeout is returned by bounded channel receives when no message
	// arrived within the deadline.
	ErrTimeout = errors.New("receive timed out")

	// ErrClosed is returned once a connection or channel has been closed.
	ErrClosed = errors.New("connection closed")

	// ErrUnknownKernel is returned by the launcher when no spec is
	// configured for the requested kernel name.
	ErrUnknownKernel = errors.New("unknown kernel")

	// ErrNotReady is returned by WaitReady when the kernel did not answer
	// an info probe within the readiness bound.
	ErrNotReady = errors.New("kernel not ready")
)
