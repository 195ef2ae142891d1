package f2xtcp

import "errors"

var (
	// ErrConnConfigNil indicates that an option was applied to a nil ConnectionConfig.
	ErrConnConfigNil = errors.New("connection config is nil")

	// ErrConnBusy indicates that Connect was called while the connection is opening or closing.
	ErrConnBusy = errors.New("connection is opening or closing")

	// ErrFrameTooLarge indicates a frame longer than the configured maximum frame size.
	ErrFrameTooLarge = errors.New("frame exceeds maximum frame size")

	// ErrZeroLengthFrame indicates a length prefix of zero, which is a framing fault.
	ErrZeroLengthFrame = errors.New("zero-length frame")

	// ErrSendTimeout indicates that a frame could not be queued within the write timeout.
	ErrSendTimeout = errors.New("send timeout, sender queue is full")
)
