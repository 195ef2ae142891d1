package f2x

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/arloliu/go-f2x/logger"
)

// Transport runs the F2X protocol over a RawTransport.
//
// It frames outbound XML payloads with an ApplicationHeaderSegment, keeps the per-channel message
// number sequences and request locks, tracks the Foundation's transaction identifier, and routes
// inbound frames to the installed category handlers: replies (even message numbers) go to the
// caller waiting on the channel, requests and notifications (odd message numbers) go to the
// category's message handlers.
type Transport struct {
	raw           RawTransport
	logger        logger.Logger
	trace         TraceFunc
	stateHandlers []ConnStateChangeHandler
	stateMgr      *ConnStateMgr

	handlersMu sync.RWMutex
	handlers   map[MessageCategory]CategoryHandler

	channels [channelCount]*channelState
	txn      transactionState

	// closedCh is closed when the current connection ends; blocked reply waiters select on it.
	closedMu sync.Mutex
	closedCh chan struct{}
	closeErr error

	metrics TransportMetrics
}

// NewTransport creates a Transport on top of raw and registers itself as raw's receive and fault handler.
func NewTransport(raw RawTransport, opts ...TransportOption) (*Transport, error) {
	if raw == nil {
		return nil, ErrRawTransportNil
	}

	t := &Transport{
		raw:      raw,
		logger:   logger.GetLogger(),
		handlers: make(map[MessageCategory]CategoryHandler),
		closedCh: make(chan struct{}),
	}

	for _, opt := range opts {
		if err := opt.apply(t); err != nil {
			return nil, err
		}
	}

	for i, ch := range Channels {
		t.channels[i] = newChannelState(ch)
	}

	t.stateMgr = NewConnStateMgr(t.logger, t.stateHandlers...)

	// not connected yet
	t.closeErr = ErrNotConnected
	close(t.closedCh)

	raw.SetReceiveHandler(t.receive)
	raw.SetFaultHandler(t.fault)

	return t, nil
}

// Logger returns the logger of the transport.
func (t *Transport) Logger() logger.Logger { return t.logger }

// Metrics returns the metrics of the transport.
func (t *Transport) Metrics() *TransportMetrics { return &t.metrics }

// State returns the current connection state.
func (t *Transport) State() ConnState { return t.stateMgr.State() }

// WaitState blocks until the connection reaches state or ctx is done.
func (t *Transport) WaitState(ctx context.Context, state ConnState) error {
	return t.stateMgr.WaitState(ctx, state)
}

// AddConnStateChangeHandler adds handlers invoked when the connection state changes.
func (t *Transport) AddConnStateChangeHandler(handlers ...ConnStateChangeHandler) {
	t.stateMgr.AddHandler(handlers...)
}

// Connect establishes the raw connection and blocks until it is up.
//
// Message number sequences restart for every new connection. Connect on a connected transport is a no-op.
func (t *Transport) Connect(ctx context.Context) error {
	if t.stateMgr.IsConnected() {
		return nil
	}

	for _, cs := range t.channels {
		cs.reset()
	}

	t.closedMu.Lock()
	t.closedCh = make(chan struct{})
	t.closeErr = nil
	t.closedMu.Unlock()

	if err := t.raw.Connect(ctx); err != nil {
		t.markClosed(fmt.Errorf("%w: %w", ErrConnClosed, err))
		return fmt.Errorf("connect raw transport: %w", err)
	}

	t.stateMgr.ToConnected()

	// a fault reported while the raw transport was still connecting ends this connection
	select {
	case <-t.closedSignal():
		t.stateMgr.ToDisconnected()
		return t.closedErr()
	default:
	}

	t.logger.Debug("transport connected", "method", "Connect")

	return nil
}

// Disconnect closes the raw connection. Callers blocked waiting for a reply return ErrConnClosed.
//
// Disconnect on a disconnected transport is a no-op.
func (t *Transport) Disconnect() error {
	if t.stateMgr.IsDisconnected() {
		return nil
	}

	err := t.raw.Disconnect()
	t.markClosed(ErrConnClosed)
	t.stateMgr.ToDisconnected()
	t.logger.Debug("transport disconnected", "method", "Disconnect", "error", err)

	return err
}

// fault is the raw transport's fault handler.
func (t *Transport) fault(err error) {
	t.metrics.incFaultCount()
	t.logger.Warn("raw transport fault", "method", "fault", "error", err)

	t.markClosed(fmt.Errorf("%w: %w", ErrConnClosed, err))
	t.stateMgr.ToDisconnected()
}

func (t *Transport) markClosed(err error) {
	t.closedMu.Lock()
	defer t.closedMu.Unlock()

	select {
	case <-t.closedCh:
		// already closed
	default:
		t.closeErr = err
		close(t.closedCh)
	}
}

func (t *Transport) closedSignal() <-chan struct{} {
	t.closedMu.Lock()
	defer t.closedMu.Unlock()

	return t.closedCh
}

func (t *Transport) closedErr() error {
	t.closedMu.Lock()
	defer t.closedMu.Unlock()

	if t.closeErr == nil {
		return ErrConnClosed
	}

	return t.closeErr
}

// InstallCategoryHandler installs the handler under its category.
//
// It returns a DuplicateCategoryError if a handler for the category is already installed;
// the installed handler is kept.
func (t *Transport) InstallCategoryHandler(handler CategoryHandler) error {
	if handler == nil {
		return errors.New("category handler is nil")
	}

	t.handlersMu.Lock()
	defer t.handlersMu.Unlock()

	category := handler.Category()
	if _, ok := t.handlers[category]; ok {
		return &DuplicateCategoryError{Category: category}
	}
	t.handlers[category] = handler

	t.logger.Debug("category handler installed", "method", "InstallCategoryHandler", "version", handler.Version())

	return nil
}

// UninstallControlLevelCategoryHandlers removes the handlers of the given categories for renegotiation.
//
// If any category is connection-level, a ConnectionLevelCategoryError is returned and no handler
// is removed. Categories without an installed handler are ignored.
func (t *Transport) UninstallControlLevelCategoryHandlers(categories ...MessageCategory) error {
	for _, category := range categories {
		if category.IsConnectionLevel() {
			return &ConnectionLevelCategoryError{Category: category}
		}
	}

	t.handlersMu.Lock()
	defer t.handlersMu.Unlock()

	for _, category := range categories {
		delete(t.handlers, category)
	}

	return nil
}

// CategoryHandler returns the handler installed for the category.
func (t *Transport) CategoryHandler(category MessageCategory) (CategoryHandler, bool) {
	t.handlersMu.RLock()
	defer t.handlersMu.RUnlock()

	handler, ok := t.handlers[category]

	return handler, ok
}

// InstalledCategories returns the installed categories in ascending order.
func (t *Transport) InstalledCategories() []MessageCategory {
	t.handlersMu.RLock()
	defer t.handlersMu.RUnlock()

	categories := make([]MessageCategory, 0, len(t.handlers))
	for category := range t.handlers {
		categories = append(categories, category)
	}
	slices.Sort(categories)

	return categories
}

// AcquireChannel blocks until the caller holds the request lock of the channel.
//
// At most one request can be outstanding per channel; the holder must call ReleaseChannel
// once the reply has been received, or right after sending a request that expects no reply.
func (t *Transport) AcquireChannel(ch Channel) error {
	if err := validateChannel(ch); err != nil {
		return err
	}
	t.channels[ch.index()].acquire()

	return nil
}

// ReleaseChannel releases the request lock of the channel.
// It returns ErrChannelNotAcquired if the lock is not held.
func (t *Transport) ReleaseChannel(ch Channel) error {
	if err := validateChannel(ch); err != nil {
		return err
	}

	return t.channels[ch.index()].release()
}

// SendFoundationChannelRequest sends a request on the Foundation channel.
func (t *Transport) SendFoundationChannelRequest(category MessageCategory, payload []byte) error {
	return t.sendRequest(FoundationChannel, category, payload)
}

// SendGameChannelRequest sends a request on the Game channel.
func (t *Transport) SendGameChannelRequest(category MessageCategory, payload []byte) error {
	return t.sendRequest(GameChannel, category, payload)
}

// SendFoundationNonTransactionalChannelRequest sends a request on the FoundationNonTransactional channel.
func (t *Transport) SendFoundationNonTransactionalChannelRequest(category MessageCategory, payload []byte) error {
	return t.sendRequest(FoundationNonTransactionalChannel, category, payload)
}

// SendFoundationChannelResponse replies to the last request received on the Foundation channel,
// within the current transaction.
func (t *Transport) SendFoundationChannelResponse(category MessageCategory, payload []byte) error {
	return t.sendResponse(FoundationChannel, category, payload, true)
}

// SendFoundationNonTransactionalChannelResponse replies to the last request received on the
// FoundationNonTransactional channel.
func (t *Transport) SendFoundationNonTransactionalChannelResponse(category MessageCategory, payload []byte) error {
	return t.sendResponse(FoundationNonTransactionalChannel, category, payload, false)
}

func (t *Transport) sendRequest(ch Channel, category MessageCategory, payload []byte) error {
	if !t.stateMgr.IsConnected() {
		return ErrNotConnected
	}

	header := ApplicationHeaderSegment{
		MessageNumber: t.channels[ch.index()].nextRequestNumber(),
		ApiCategory:   uint32(category),
		Channel:       uint8(ch),
	}

	if err := t.sendFrame(header, payload); err != nil {
		return err
	}
	t.metrics.incRequestSendCount()

	return nil
}

func (t *Transport) sendResponse(ch Channel, category MessageCategory, payload []byte, transactional bool) error {
	if !t.stateMgr.IsConnected() {
		return ErrNotConnected
	}

	number := t.channels[ch.index()].currentReplyNumber()
	if number == 0 {
		return fmt.Errorf("%w: no request received on channel %s", ErrNoPendingRequest, ch)
	}

	header := ApplicationHeaderSegment{
		MessageNumber: number,
		ApiCategory:   uint32(category),
		Channel:       uint8(ch),
	}
	if transactional {
		header.TransactionIdentifier = t.txn.id.Load()
	}

	if err := t.sendFrame(header, payload); err != nil {
		return err
	}
	t.metrics.incResponseSendCount()

	return nil
}

func (t *Transport) sendFrame(header ApplicationHeaderSegment, payload []byte) error {
	frame := EncodeFrame(header, payload)

	if t.trace != nil {
		t.trace(TraceEvent{Direction: Outbound, Header: header, XML: string(payload)})
	}

	if logger.Enabled(t.logger, logger.DebugLevel) {
		t.logger.Debug("send frame", header.logKeys("method", "sendFrame", "xml", string(payload))...)
	}

	if err := t.raw.Send(frame); err != nil {
		t.metrics.incSendErrCount()
		return fmt.Errorf("send frame: %w", err)
	}

	return nil
}

// receive is the raw transport's receive handler.
func (t *Transport) receive(frame []byte) {
	if err := t.HandleMessage(frame); err != nil {
		t.logger.Error("failed to handle inbound frame", "method", "receive", "error", err)
	}
}

// HandleMessage processes one inbound frame.
//
// A frame with a non-zero status code is not parsed; a StatusError is returned and, if the frame is
// a reply, the caller waiting on its channel is woken with the same error. Other failures abort only
// the processing of this frame.
func (t *Transport) HandleMessage(frame []byte) error {
	header, payload, err := DecodeFrame(frame)
	if err != nil {
		t.metrics.incDecodeErrCount()
		return err
	}

	if t.trace != nil {
		t.trace(TraceEvent{Direction: Inbound, Header: header, XML: string(payload)})
	}

	if logger.Enabled(t.logger, logger.DebugLevel) {
		t.logger.Debug("frame received", header.logKeys("method", "HandleMessage", "xml", string(payload))...)
	}

	ch := Channel(header.Channel)

	if header.StatusCode != int32(StatusNoError) {
		t.metrics.incStatusErrCount()
		statusErr := NewStatusError(header)
		if header.IsReply() && ch.IsValid() {
			if handler, ok := t.CategoryHandler(MessageCategory(header.ApiCategory)); ok {
				handler.AbortReply(ch, statusErr)
			}
		}

		return statusErr
	}

	if err := validateChannel(ch); err != nil {
		t.metrics.incRoutingErrCount()
		return err
	}

	t.observeTransaction(header)

	isReply := header.IsReply()
	if !isReply {
		t.channels[ch.index()].observeRequest(header.MessageNumber)
	}

	handler, ok := t.CategoryHandler(MessageCategory(header.ApiCategory))
	if !ok {
		t.metrics.incRoutingErrCount()
		return &UnhandledCategoryError{Category: MessageCategory(header.ApiCategory), Header: header}
	}

	msg, err := handler.Decode(payload)
	if err != nil {
		t.metrics.incDecodeErrCount()
		return &DeserializationError{Header: header, XML: string(payload), Err: err}
	}

	if isReply {
		t.metrics.incReplyRecvCount()
		err = handler.HandleReply(msg, ch)
	} else {
		t.metrics.incMessageRecvCount()
		err = handler.HandleMessage(msg)
	}

	if err != nil {
		t.metrics.incRoutingErrCount()
		return err
	}

	return nil
}
