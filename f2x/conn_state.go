package f2x

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-f2x/logger"
)

// ConnState represents the state of the logical F2X connection.
type ConnState uint32

const (
	// DisconnectedState indicates that the raw transport is not connected.
	DisconnectedState ConnState = iota
	// ConnectedState indicates that the raw transport is connected and frames can be exchanged.
	ConnectedState
)

// IsConnected returns if the state is connected.
func (cs ConnState) IsConnected() bool { return cs == ConnectedState }

// IsDisconnected returns if the state is disconnected.
func (cs ConnState) IsDisconnected() bool { return cs == DisconnectedState }

// String returns string representation of the state.
func (cs ConnState) String() string {
	switch cs {
	case DisconnectedState:
		return "disconnected"
	case ConnectedState:
		return "connected"
	default:
		return "unknown"
	}
}

// ConnStateChangeHandler is invoked after the connection state changed.
//
// Note: handlers are invoked synchronously on the goroutine that caused the transition, which may be
// the raw transport's receiver. Take care with long-running implementations.
type ConnStateChangeHandler func(prevState ConnState, newState ConnState)

// ConnStateMgr manages the connection state of a Transport.
//
// State transitions are safe for concurrent use. Handlers run outside of the internal lock,
// so they may call back into the transport.
type ConnStateMgr struct {
	mu       sync.Mutex
	cond     *sync.Cond
	state    atomic.Uint32
	logger   logger.Logger
	handlers []ConnStateChangeHandler
}

// NewConnStateMgr creates a ConnStateMgr in DisconnectedState.
func NewConnStateMgr(l logger.Logger, handlers ...ConnStateChangeHandler) *ConnStateMgr {
	if l == nil {
		l = logger.GetLogger()
	}

	mgr := &ConnStateMgr{
		logger:   l,
		handlers: make([]ConnStateChangeHandler, 0, len(handlers)),
	}
	mgr.cond = sync.NewCond(&mgr.mu)
	mgr.state.Store(uint32(DisconnectedState))
	mgr.AddHandler(handlers...)

	return mgr
}

// State returns the current connection state.
func (cs *ConnStateMgr) State() ConnState {
	return ConnState(cs.state.Load())
}

// IsConnected returns if the current state is connected.
func (cs *ConnStateMgr) IsConnected() bool { return cs.State().IsConnected() }

// IsDisconnected returns if the current state is disconnected.
func (cs *ConnStateMgr) IsDisconnected() bool { return cs.State().IsDisconnected() }

// AddHandler adds handlers invoked on state changes. Nil handlers are ignored.
func (cs *ConnStateMgr) AddHandler(handlers ...ConnStateChangeHandler) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for _, h := range handlers {
		if h != nil {
			cs.handlers = append(cs.handlers, h)
		}
	}
}

// WaitState waits for the connection state to reach the specified state or until the context is done.
// It returns nil if the desired state is reached, or the context error otherwise.
func (cs *ConnStateMgr) WaitState(ctx context.Context, state ConnState) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.State() == state {
		return nil
	}

	stop := context.AfterFunc(ctx, func() {
		cs.mu.Lock()
		defer cs.mu.Unlock()
		cs.cond.Broadcast()
	})
	defer stop()

	for cs.State() != state {
		if err := ctx.Err(); err != nil {
			cs.logger.Debug("wait connection state cancelled", "cur_state", cs.State(), "desired_state", state)
			return err
		}
		cs.cond.Wait()
	}

	return nil
}

// ToConnected transitions to ConnectedState. It returns false if the state was already connected.
func (cs *ConnStateMgr) ToConnected() bool {
	return cs.transition(ConnectedState)
}

// ToDisconnected transitions to DisconnectedState. It returns false if the state was already disconnected.
func (cs *ConnStateMgr) ToDisconnected() bool {
	return cs.transition(DisconnectedState)
}

func (cs *ConnStateMgr) transition(newState ConnState) bool {
	cs.mu.Lock()
	prevState := cs.State()
	if prevState == newState {
		cs.mu.Unlock()
		return false
	}

	cs.state.Store(uint32(newState))
	cs.cond.Broadcast()
	handlers := append([]ConnStateChangeHandler(nil), cs.handlers...)
	cs.mu.Unlock()

	cs.logger.Debug("connection state changed", "method", "transition", "prev_state", prevState, "new_state", newState)

	for _, handler := range handlers {
		handler(prevState, newState)
	}

	return true
}
