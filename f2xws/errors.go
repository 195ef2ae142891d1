package f2xws

import "errors"

var (
	// ErrConfigNil indicates a nil Config.
	ErrConfigNil = errors.New("websocket config is nil")
	// ErrConnBusy indicates Connect was called while another Connect or Disconnect is in progress.
	ErrConnBusy = errors.New("websocket connection is busy")
	// ErrUnexpectedMessageType indicates the peer sent a non-binary data message.
	ErrUnexpectedMessageType = errors.New("unexpected websocket message type")
	// ErrFrameTooLarge indicates a frame above the configured maximum size.
	ErrFrameTooLarge = errors.New("frame too large")
	// ErrEmptyFrame indicates an empty websocket message.
	ErrEmptyFrame = errors.New("empty frame")
)
