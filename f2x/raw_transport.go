package f2x

import "context"

// RawTransport moves whole frames between the game process and the Foundation.
//
// Implementations deliver received frames to the receive handler from a single goroutine in
// arrival order, and report a broken link exactly once through the fault handler.
// See the f2xtcp and f2xws packages.
type RawTransport interface {
	// Connect blocks until the physical link is established or ctx is done.
	Connect(ctx context.Context) error

	// Disconnect closes the physical link.
	Disconnect() error

	// Send transmits one frame (application header followed by the XML payload).
	Send(frame []byte) error

	// SetReceiveHandler sets the callback invoked for every received frame.
	SetReceiveHandler(handler func(frame []byte))

	// SetFaultHandler sets the callback invoked when the link fails.
	SetFaultHandler(handler func(err error))
}
