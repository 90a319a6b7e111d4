package bridge

import "errors"

var (
	// ErrNoKernel is reported for any kernel-bound command issued while no
	// kernel process is attached.
	ErrNoKernel = errors.New("no kernel connected")

	// ErrAlreadyConnected is reported for a start or connect command
	// issued against a live session.
	ErrAlreadyConnected = errors.New("kernel already connected")
)
