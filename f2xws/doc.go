// Package f2xws provides an f2x.RawTransport over a websocket.
//
// Each frame is carried by exactly one binary websocket message, so no length prefix is needed.
// Text messages are a framing fault.
//
//	cfg, _ := f2xws.NewConfig("ws://127.0.0.1:7400/f2x", f2xws.WithHandshakeTimeout(2*time.Second))
//	raw, _ := f2xws.NewConnection(ctx, cfg)
//	transport, _ := f2x.NewTransport(raw)
//	err := transport.Connect(ctx)
package f2xws
