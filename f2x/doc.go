// Package f2x implements the game side of the F2X (Foundation-to-game) protocol used by gaming
// cabinets to talk to their Foundation platform.
//
// Every frame consists of a 17-byte big-endian ApplicationHeaderSegment followed by a UTF-8 XML payload.
// The header carries the message number, the api category, the channel, the Foundation's transaction
// identifier and a status code.
//
// Channels:
//   - FoundationChannel: transactional requests initiated by the Foundation.
//   - GameChannel: requests initiated by the game.
//   - FoundationNonTransactionalChannel: Foundation requests outside of a transaction.
//
// Requests use odd message numbers (1, 3, 5, ...) counted per channel; a reply uses the request's number
// plus one. Inbound frames with even numbers are therefore replies and are handed to the caller waiting on
// that channel, while odd numbers are unsolicited messages dispatched to the category's message handlers.
// Only one request per channel can be outstanding, which Transport enforces with a per-channel lock.
//
// Transport owns the framing, sequencing and routing over a RawTransport (see packages f2xtcp and f2xws).
// Category[T] sits on top of it and turns a category's envelope type T into a blocking request/reply API:
//
//	transport, _ := f2x.NewTransport(raw)
//	codec, _ := f2x.NewXMLCodec(Ping{}, Pong{})
//	game, _ := f2x.NewCategory[any](transport, f2x.NewCategoryVersionInformation(100, 1, 0), codec)
//	_ = transport.InstallCategoryHandler(game)
//	_ = transport.Connect(ctx)
//
//	pong, err := f2x.SendMessageAndGetReply[*Pong, any](game, f2x.GameChannel, &Ping{})
//
// Unsolicited message handlers run on the raw transport's receiver goroutine. A handler must not wait for
// a reply on the same transport, because the reply can only be delivered by that goroutine.
package f2x
