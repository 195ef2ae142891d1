package f2x

import (
	"fmt"
	"sync"
)

// Channel identifies one of the three logical lanes of an F2X connection.
// Each channel has its own message number sequences and its own request lock.
type Channel uint8

const (
	// FoundationChannel carries transactional requests initiated by the Foundation.
	FoundationChannel Channel = 1
	// GameChannel carries requests initiated by the game.
	GameChannel Channel = 2
	// FoundationNonTransactionalChannel carries Foundation requests outside of a transaction.
	FoundationNonTransactionalChannel Channel = 3
)

const channelCount = 3

// Channels lists all valid channels.
var Channels = [channelCount]Channel{FoundationChannel, GameChannel, FoundationNonTransactionalChannel}

// IsValid reports whether c is one of the defined channels.
func (c Channel) IsValid() bool {
	return c >= FoundationChannel && c <= FoundationNonTransactionalChannel
}

func (c Channel) String() string {
	switch c {
	case FoundationChannel:
		return "foundation"
	case GameChannel:
		return "game"
	case FoundationNonTransactionalChannel:
		return "foundation-non-transactional"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// index returns the zero-based slot of the channel. The channel must be valid.
func (c Channel) index() int { return int(c) - 1 }

func validateChannel(c Channel) error {
	if !c.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidChannel, uint8(c))
	}

	return nil
}

// channelState tracks the sequence numbers and the request lock of one channel.
//
// Request numbers are odd, starting at 1 and growing by 2. The reply number is the last
// inbound request number plus one, so replies are always even.
type channelState struct {
	channel Channel

	// lock is a binary semaphore held from sending a request until its reply is consumed.
	lock chan struct{}

	mu            sync.Mutex // protects requestNumber and replyNumber
	requestNumber uint32
	replyNumber   uint32
}

func newChannelState(ch Channel) *channelState {
	return &channelState{
		channel:       ch,
		lock:          make(chan struct{}, 1),
		requestNumber: 1,
	}
}

func (cs *channelState) acquire() {
	cs.lock <- struct{}{}
}

func (cs *channelState) tryAcquire() bool {
	select {
	case cs.lock <- struct{}{}:
		return true
	default:
		return false
	}
}

func (cs *channelState) release() error {
	select {
	case <-cs.lock:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrChannelNotAcquired, cs.channel)
	}
}

// nextRequestNumber returns the number for an outbound request and advances the sequence.
func (cs *channelState) nextRequestNumber() uint32 {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	n := cs.requestNumber
	cs.requestNumber += 2

	return n
}

// observeRequest records an inbound request number so the next reply on the channel matches it.
func (cs *channelState) observeRequest(number uint32) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.replyNumber = number + 1
}

func (cs *channelState) currentReplyNumber() uint32 {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	return cs.replyNumber
}

// reset restarts both sequences for a new connection.
func (cs *channelState) reset() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.requestNumber = 1
	cs.replyNumber = 0
}
