// Package f2xtcp provides an f2x.RawTransport over TCP.
//
// Frames are delimited by a 4-byte big-endian length prefix. A zero length or a length above the
// configured maximum frame size is a framing fault and closes the connection.
//
// A game connects in active mode:
//
//	cfg, _ := f2xtcp.NewConnectionConfig("127.0.0.1", 7300, f2xtcp.WithConnectTimeout(time.Second))
//	raw, _ := f2xtcp.NewConnection(ctx, cfg)
//	transport, _ := f2x.NewTransport(raw)
//	err := transport.Connect(ctx)
//
// Passive mode accepts a single peer and is meant for Foundation simulators and tests.
// Configurations can also be loaded from YAML with LoadConfigFile.
package f2xtcp
