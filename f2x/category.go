package f2x

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/arloliu/go-f2x/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

// CategoryHandler is the contract between Transport and an installed api category.
//
// Category implements it for any envelope type; custom implementations are only needed
// for categories that do not fit the request/reply model of Category.
type CategoryHandler interface {
	// Category returns the category identifier the handler is installed under.
	Category() MessageCategory

	// Version returns the negotiated category version served by the handler.
	Version() CategoryVersionInformation

	// Decode deserializes an XML payload into the category's envelope.
	Decode(data []byte) (any, error)

	// HandleMessage dispatches an unsolicited message (odd message number) received from the Foundation.
	HandleMessage(msg any) error

	// HandleReply hands a reply (even message number) to the caller waiting on the channel.
	HandleReply(msg any, ch Channel) error

	// AbortReply wakes the caller waiting on the channel with err instead of a reply.
	AbortReply(ch Channel, err error)
}

// MessageHandler processes one unsolicited message payload.
type MessageHandler func(payload any) error

type reply[T any] struct {
	msg T
	err error
}

// Category correlates requests and replies of one api category over a Transport.
//
// T is the envelope type produced by the category's Codec. A request blocks its caller until
// the reply arrives on the same channel or the connection faults. Only one request per channel
// can be outstanding on a transport at a time, so replies are correlated by channel alone.
//
// Unsolicited messages are dispatched by the concrete payload type to handlers registered
// with AddMessageHandler.
type Category[T any] struct {
	transport *Transport
	version   CategoryVersionInformation
	codec     Codec[T]
	logger    logger.Logger

	handlers *xsync.MapOf[reflect.Type, MessageHandler]

	// one single-slot handoff per channel
	replies [channelCount]chan reply[T]

	done      chan struct{}
	closeOnce sync.Once
}

var _ CategoryHandler = (*Category[any])(nil)

// NewCategory creates a category handler bound to the transport.
//
// The handler still has to be installed with Transport.InstallCategoryHandler before replies
// and unsolicited messages can reach it.
func NewCategory[T any](transport *Transport, version CategoryVersionInformation, codec Codec[T]) (*Category[T], error) {
	if transport == nil {
		return nil, fmt.Errorf("category %s: transport is nil", version.Category)
	}
	if codec == nil {
		return nil, fmt.Errorf("category %s: codec is nil", version.Category)
	}

	c := &Category[T]{
		transport: transport,
		version:   version,
		codec:     codec,
		logger:    transport.logger.With("category", version.Category),
		handlers:  xsync.NewMapOf[reflect.Type, MessageHandler](),
		done:      make(chan struct{}),
	}
	for i := range c.replies {
		c.replies[i] = make(chan reply[T], 1)
	}

	return c, nil
}

// Category implements CategoryHandler.
func (c *Category[T]) Category() MessageCategory { return c.version.Category }

// Version implements CategoryHandler.
func (c *Category[T]) Version() CategoryVersionInformation { return c.version }

// Decode implements CategoryHandler.
func (c *Category[T]) Decode(data []byte) (any, error) {
	return c.codec.Unmarshal(data)
}

// AddMessageHandler registers the handler of unsolicited messages whose payload type is M.
//
// M must be the exact dynamic type the codec's Payload returns, e.g. *Heartbeat for XMLCodec.
// A later registration for the same type replaces the earlier one.
func AddMessageHandler[M any, T any](c *Category[T], handler func(msg M) error) {
	c.handlers.Store(reflect.TypeFor[M](), func(payload any) error {
		msg, ok := payload.(M)
		if !ok {
			return &InvalidMessageError{Category: c.Category(), Type: reflect.TypeOf(payload), Reason: "payload type mismatch"}
		}

		return handler(msg)
	})
}

// HandleMessage implements CategoryHandler.
func (c *Category[T]) HandleMessage(msg any) error {
	env, ok := msg.(T)
	if !ok {
		return &InvalidMessageError{Category: c.Category(), Type: reflect.TypeOf(msg), Reason: "not the category envelope type"}
	}

	payload := c.codec.Payload(env)
	if payload == nil {
		return &InvalidMessageError{Category: c.Category(), Reason: "envelope carries no message"}
	}

	payloadType := reflect.TypeOf(payload)
	handler, ok := c.handlers.Load(payloadType)
	if !ok {
		return &InvalidMessageError{Category: c.Category(), Type: payloadType, Reason: "no message handler registered"}
	}

	return handler(payload)
}

// HandleReply implements CategoryHandler.
func (c *Category[T]) HandleReply(msg any, ch Channel) error {
	if err := validateChannel(ch); err != nil {
		return err
	}

	env, ok := msg.(T)
	if !ok {
		return &InvalidMessageError{Category: c.Category(), Type: reflect.TypeOf(msg), Reason: "not the category envelope type"}
	}

	select {
	case c.replies[ch.index()] <- reply[T]{msg: env}:
		return nil
	default:
		return fmt.Errorf("%w: category %s, channel %s", ErrReplySlotOccupied, c.Category(), ch)
	}
}

// AbortReply implements CategoryHandler.
func (c *Category[T]) AbortReply(ch Channel, err error) {
	if !ch.IsValid() {
		return
	}

	select {
	case c.replies[ch.index()] <- reply[T]{err: err}:
	default:
		c.logger.Debug("reply slot occupied, abort dropped", "method", "AbortReply", "channel", ch, "error", err)
	}
}

// SendMessage sends msg as a request on the channel without waiting for a reply.
//
// The channel lock is held only while the frame is handed to the transport.
func (c *Category[T]) SendMessage(ch Channel, msg T) error {
	if err := validateChannel(ch); err != nil {
		return err
	}

	data, err := c.codec.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", c.Category(), err)
	}

	if err := c.transport.AcquireChannel(ch); err != nil {
		return err
	}
	defer c.releaseChannel(ch)

	return c.transport.sendRequest(ch, c.Category(), data)
}

// SendReply answers the request most recently received from the Foundation on the channel.
//
// Replies on the Foundation channel carry the current transaction identifier; replies on the
// non-transactional channel carry zero. The game channel never carries Foundation requests,
// so replying on it fails with ErrInvalidChannel.
func (c *Category[T]) SendReply(ch Channel, msg T) error {
	data, err := c.codec.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s reply: %w", c.Category(), err)
	}

	switch ch {
	case FoundationChannel:
		return c.transport.SendFoundationChannelResponse(c.Category(), data)
	case FoundationNonTransactionalChannel:
		return c.transport.SendFoundationNonTransactionalChannelResponse(c.Category(), data)
	default:
		return fmt.Errorf("%w: cannot reply on channel %s", ErrInvalidChannel, ch)
	}
}

// SendMessageAndGetReply sends msg on the channel and blocks until the reply arrives.
//
// The reply payload must be assignable to R, otherwise an UnexpectedReplyTypeError is returned.
// R cannot be inferred, and T cannot be inferred when the category's T is an interface such as any
// while msg is a concrete type, so both are listed:
//
//	pong, err := f2x.SendMessageAndGetReply[*Pong, any](game, f2x.GameChannel, &Ping{})
//
// The wait ends early only when the connection closes or faults, or the category is closed.
func SendMessageAndGetReply[R any, T any](c *Category[T], ch Channel, msg T) (R, error) {
	var zero R

	env, err := c.request(ch, msg)
	if err != nil {
		return zero, err
	}

	payload := c.codec.Payload(env)
	result, ok := payload.(R)
	if !ok {
		return zero, &UnexpectedReplyTypeError{
			Category: c.Category(),
			Expected: reflect.TypeFor[R](),
			Actual:   reflect.TypeOf(payload),
		}
	}

	return result, nil
}

func (c *Category[T]) request(ch Channel, msg T) (T, error) {
	var zero T

	if err := validateChannel(ch); err != nil {
		return zero, err
	}

	select {
	case <-c.done:
		return zero, ErrCategoryClosed
	default:
	}

	data, err := c.codec.Marshal(msg)
	if err != nil {
		return zero, fmt.Errorf("marshal %s request: %w", c.Category(), err)
	}

	if err := c.transport.AcquireChannel(ch); err != nil {
		return zero, err
	}
	defer c.releaseChannel(ch)

	slot := c.replies[ch.index()]
	// discard a late reply or abort left over from an earlier request
	select {
	case stale := <-slot:
		c.logger.Debug("discard stale reply", "method", "request", "channel", ch, "error", stale.err)
	default:
	}

	closed := c.transport.closedSignal()

	if err := c.transport.sendRequest(ch, c.Category(), data); err != nil {
		return zero, err
	}

	c.transport.metrics.incInflightCount()
	defer c.transport.metrics.decInflightCount()

	select {
	case r := <-slot:
		if r.err != nil {
			return zero, r.err
		}

		return r.msg, nil

	case <-closed:
		return zero, c.transport.closedErr()

	case <-c.done:
		return zero, ErrCategoryClosed
	}
}

func (c *Category[T]) releaseChannel(ch Channel) {
	if err := c.transport.ReleaseChannel(ch); err != nil {
		c.logger.Error("failed to release channel", "method", "releaseChannel", "channel", ch, "error", err)
	}
}

// Close wakes every caller blocked in SendMessageAndGetReply with ErrCategoryClosed.
// It is safe to call Close more than once.
func (c *Category[T]) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})

	return nil
}
