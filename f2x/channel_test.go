package f2x

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_IsValid(t *testing.T) {
	for _, ch := range Channels {
		assert.True(t, ch.IsValid(), ch.String())
		assert.NoError(t, validateChannel(ch))
	}

	for _, v := range []uint8{0, 4, 255} {
		assert.False(t, Channel(v).IsValid())
		assert.ErrorIs(t, validateChannel(Channel(v)), ErrInvalidChannel)
	}

	assert.Equal(t, "unknown(9)", Channel(9).String())
}

func TestChannelState_Sequence(t *testing.T) {
	require := require.New(t)

	cs := newChannelState(GameChannel)
	require.Equal(uint32(1), cs.nextRequestNumber())
	require.Equal(uint32(3), cs.nextRequestNumber())
	require.Equal(uint32(5), cs.nextRequestNumber())

	require.Equal(uint32(0), cs.currentReplyNumber())
	cs.observeRequest(7)
	require.Equal(uint32(8), cs.currentReplyNumber())

	cs.reset()
	require.Equal(uint32(1), cs.nextRequestNumber())
	require.Equal(uint32(0), cs.currentReplyNumber())
}

func TestChannelState_ConcurrentRequestNumbers(t *testing.T) {
	cs := newChannelState(FoundationChannel)

	const n = 100
	numbers := make(chan uint32, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			numbers <- cs.nextRequestNumber()
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[uint32]bool, n)
	for num := range numbers {
		assert.Equal(t, uint32(1), num%2, "request number %d is even", num)
		assert.False(t, seen[num], "duplicated request number %d", num)
		seen[num] = true
	}
	assert.Len(t, seen, n)
}

func TestChannelState_Lock(t *testing.T) {
	require := require.New(t)

	cs := newChannelState(FoundationNonTransactionalChannel)
	require.ErrorIs(cs.release(), ErrChannelNotAcquired)

	require.True(cs.tryAcquire())
	require.False(cs.tryAcquire())
	require.NoError(cs.release())

	cs.acquire()
	require.False(cs.tryAcquire())
	require.NoError(cs.release())
	require.ErrorIs(cs.release(), ErrChannelNotAcquired)
}

func TestMessageCategory(t *testing.T) {
	assert.True(t, CategoryConnect.IsConnectionLevel())
	assert.True(t, CategoryLinkControl.IsConnectionLevel())
	assert.False(t, MessageCategory(100).IsConnectionLevel())

	assert.Equal(t, "Connect", CategoryConnect.String())
	assert.Equal(t, "LinkControl", CategoryLinkControl.String())
	assert.Equal(t, "Category(100)", MessageCategory(100).String())
}
