package f2x

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arloliu/go-f2x/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTaskTestLogger() *logger.MockLogger {
	mockLogger := logger.NewMockLogger()
	mockLogger.On("Debug", mock.Anything, mock.Anything).Return()
	mockLogger.On("Error", mock.Anything, mock.Anything).Return()

	return mockLogger
}

func TestTaskManager_Start(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskMgr := NewTaskManager(ctx, newTaskTestLogger())

	require.NoError(t, taskMgr.Start("testTask", func() bool {
		time.Sleep(time.Millisecond)
		return true
	}))
	assert.Equal(t, 1, taskMgr.TaskCount())

	cancel()
	taskMgr.Wait()
	assert.Equal(t, 0, taskMgr.TaskCount())
}

func TestTaskManager_StartReceiver(t *testing.T) {
	taskMgr := NewTaskManager(context.Background(), newTaskTestLogger())

	var calls atomic.Int32
	cancelled := make(chan struct{})
	err := taskMgr.StartReceiver("testReceiver", func(lenBuf []byte) bool {
		assert.Len(t, lenBuf, 4)
		return calls.Add(1) < 3
	}, func() { close(cancelled) })
	require.NoError(t, err)

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "receiver cancel func not called")
	}

	taskMgr.Wait()
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 0, taskMgr.TaskCount())
}

func TestTaskManager_StartSender(t *testing.T) {
	taskMgr := NewTaskManager(context.Background(), newTaskTestLogger())

	input := make(chan []byte, 2)
	received := make(chan []byte, 2)
	require.NoError(t, taskMgr.StartSender("testSender", func(frame []byte) bool {
		received <- frame
		return true
	}, nil, input))

	input <- []byte{1, 2}
	assert.Equal(t, []byte{1, 2}, <-received)

	taskMgr.Stop()
	taskMgr.Wait()
	assert.Equal(t, 0, taskMgr.TaskCount())

	require.Error(t, taskMgr.StartSender("nilInput", func([]byte) bool { return true }, nil, nil))
}

func TestTaskManager_StartInterval(t *testing.T) {
	taskMgr := NewTaskManager(context.Background(), newTaskTestLogger())

	var calls atomic.Int32
	ticker, err := taskMgr.StartInterval("testInterval", func() bool {
		calls.Add(1)
		return true
	}, 5*time.Millisecond, true)
	require.NoError(t, err)
	require.NotNil(t, ticker)
	assert.GreaterOrEqual(t, calls.Load(), int32(1))

	_, err = taskMgr.StartInterval("testInterval", func() bool { return true }, time.Second, false)
	require.Error(t, err)

	_, err = taskMgr.StartInterval("badInterval", func() bool { return true }, 0, false)
	require.Error(t, err)

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, taskMgr.StopInterval("testInterval"))
	require.Error(t, taskMgr.StopInterval("testInterval"))

	taskMgr.Stop()
	taskMgr.Wait()
}

func TestTaskManager_RecoverPanic(t *testing.T) {
	mockLogger := newTaskTestLogger()
	taskMgr := NewTaskManager(context.Background(), mockLogger)

	require.NoError(t, taskMgr.Start("panicTask", func() bool {
		panic("boom")
	}))

	taskMgr.Wait()
	assert.Equal(t, 0, taskMgr.TaskCount())
	mockLogger.AssertCalled(t, "Error", "panic in task", mock.Anything)
}

func TestTaskManager_StoppedManager(t *testing.T) {
	taskMgr := NewTaskManager(context.Background(), newTaskTestLogger())
	taskMgr.Stop()

	err := taskMgr.Start("late", func() bool { return false })
	require.ErrorIs(t, err, ErrTaskManagerStopped)

	// Wait renews the context
	taskMgr.Wait()
	require.NoError(t, taskMgr.Start("again", func() bool { return false }))
	taskMgr.Wait()
}
