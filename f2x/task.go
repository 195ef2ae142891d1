package f2x

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-f2x/logger"
)

// TaskFunc performs one iteration of a task. It returns true to keep running, or false to stop the goroutine.
type TaskFunc func() bool

// TaskRecvFunc performs one receive iteration with a reusable 4-byte length buffer.
// It returns true to keep receiving, or false to stop the goroutine.
type TaskRecvFunc func(lenBuf []byte) bool

// TaskFrameFunc processes one outbound frame. It returns true to keep processing, or false to stop the goroutine.
type TaskFrameFunc func(frame []byte) bool

// TaskCancelFunc is called when a goroutine started by StartReceiver or StartSender exits.
type TaskCancelFunc func()

// ErrTaskManagerStopped indicates that a task was started on a stopped TaskManager.
var ErrTaskManagerStopped = errors.New("task manager already stopped")

// TaskManager manages the goroutines of a raw transport connection.
//
// All goroutines share a context derived from the parent context. Stop cancels it; Wait blocks until
// every goroutine has returned and then prepares a fresh context, so the same TaskManager can serve the
// next connection.
//
// Example:
//
//	taskMgr := f2x.NewTaskManager(ctx, logger)
//	_ = taskMgr.StartReceiver("receiverTask", conn.receiverTask, conn.receiverDone)
//	...
//	taskMgr.Stop()
//	taskMgr.Wait()
type TaskManager struct {
	pctx    context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  logger.Logger
	count   atomic.Int32
	tickers sync.Map     // map[string]*time.Ticker
	mu      sync.RWMutex // protects ctx and cancel
	taskMu  sync.RWMutex // blocks task creation during Wait
}

// NewTaskManager creates a TaskManager using ctx as the parent context.
func NewTaskManager(ctx context.Context, l logger.Logger) *TaskManager {
	if l == nil {
		l = logger.GetLogger()
	}

	mgr := &TaskManager{pctx: ctx, logger: l}
	mgr.ctx, mgr.cancel = context.WithCancel(ctx)

	return mgr
}

func (mgr *TaskManager) getContext() context.Context {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	return mgr.ctx
}

// Context returns the context shared by the running goroutines.
func (mgr *TaskManager) Context() context.Context {
	return mgr.getContext()
}

// Start starts a goroutine calling taskFunc until it returns false or the TaskManager is stopped.
func (mgr *TaskManager) Start(name string, taskFunc TaskFunc) error {
	mgr.logger.Debug("start task", "name", name)

	return mgr.startTask(name, func() {
		mgr.runTaskLoop(name, taskFunc)
	})
}

// StartReceiver starts a goroutine calling taskFunc with a reusable length buffer.
//
// taskCancelFunc, if not nil, is called when the goroutine exits for any reason.
func (mgr *TaskManager) StartReceiver(name string, taskFunc TaskRecvFunc, taskCancelFunc TaskCancelFunc) error {
	mgr.logger.Debug("start receiver task", "name", name)

	return mgr.startTask(name, func() {
		if taskCancelFunc != nil {
			defer taskCancelFunc()
		}

		lenBuf := make([]byte, 4)
		mgr.runTaskLoop(name, func() bool {
			return taskFunc(lenBuf)
		})
	})
}

// StartSender starts a goroutine passing every frame received from inputChan to taskFunc.
//
// taskCancelFunc, if not nil, is called when the goroutine exits for any reason.
func (mgr *TaskManager) StartSender(name string, taskFunc TaskFrameFunc, taskCancelFunc TaskCancelFunc, inputChan <-chan []byte) error {
	mgr.logger.Debug("start sender task", "name", name)

	if inputChan == nil {
		return errors.New("input channel is nil")
	}

	return mgr.startTask(name, func() {
		if taskCancelFunc != nil {
			defer taskCancelFunc()
		}

		for {
			ctx := mgr.getContext()
			select {
			case <-ctx.Done():
				return
			case frame, ok := <-inputChan:
				if !ok {
					mgr.logger.Debug("input channel closed", "name", name)
					return
				}
				if !mgr.callWithRecover(name, func() bool { return taskFunc(frame) }) {
					return
				}
			}
		}
	})
}

// StartInterval starts a goroutine calling taskFunc every interval until it returns false or the
// TaskManager is stopped. If runNow is true, taskFunc is also called once before the first tick.
//
// The returned ticker can be used to change the interval with Reset.
func (mgr *TaskManager) StartInterval(name string, taskFunc TaskFunc, interval time.Duration, runNow bool) (*time.Ticker, error) {
	mgr.logger.Debug("start interval task", "name", name, "interval", interval, "run_now", runNow)

	if interval <= 0 {
		return nil, fmt.Errorf("invalid interval: %v", interval)
	}

	ticker := time.NewTicker(interval)
	if _, loaded := mgr.tickers.LoadOrStore(name, ticker); loaded {
		ticker.Stop()
		return nil, fmt.Errorf("interval task %s already exists", name)
	}

	cleanup := func() {
		ticker.Stop()
		mgr.tickers.Delete(name)
	}

	if runNow && !mgr.callWithRecover(name, taskFunc) {
		cleanup()
		return ticker, nil
	}

	err := mgr.startTask(name, func() {
		defer cleanup()

		for {
			ctx := mgr.getContext()
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !mgr.callWithRecover(name, taskFunc) {
					return
				}
			}
		}
	})
	if err != nil {
		cleanup()
		return nil, err
	}

	return ticker, nil
}

// StopInterval stops the interval task with the given name.
func (mgr *TaskManager) StopInterval(name string) error {
	val, ok := mgr.tickers.LoadAndDelete(name)
	if !ok {
		return fmt.Errorf("ticker %s not found", name)
	}

	if ticker, ok := val.(*time.Ticker); ok {
		ticker.Stop()
	}

	return nil
}

// Stop signals all running goroutines to terminate.
func (mgr *TaskManager) Stop() {
	mgr.tickers.Range(func(_, value any) bool {
		if ticker, ok := value.(*time.Ticker); ok {
			ticker.Stop()
		}

		return true
	})

	mgr.mu.Lock()
	if mgr.cancel != nil {
		mgr.cancel()
	}
	mgr.mu.Unlock()
}

// Wait blocks until all goroutines have terminated, then renews the shared context.
func (mgr *TaskManager) Wait() {
	mgr.taskMu.Lock()
	defer mgr.taskMu.Unlock()

	mgr.wg.Wait()

	mgr.mu.Lock()
	mgr.ctx, mgr.cancel = context.WithCancel(mgr.pctx)
	mgr.mu.Unlock()
}

// TaskCount returns the number of running goroutines.
func (mgr *TaskManager) TaskCount() int {
	return int(mgr.count.Load())
}

func (mgr *TaskManager) startTask(name string, body func()) error {
	mgr.taskMu.RLock()
	defer mgr.taskMu.RUnlock()

	ctx := mgr.getContext()
	if ctx.Err() != nil {
		return fmt.Errorf("start %s: %w", name, ErrTaskManagerStopped)
	}

	started := make(chan struct{})

	mgr.wg.Add(1)
	mgr.count.Add(1)
	go func() {
		defer func() {
			mgr.count.Add(-1)
			mgr.wg.Done()
			mgr.logger.Debug("task terminated", "name", name, "task_count", mgr.TaskCount())
		}()

		close(started)
		body()
	}()

	<-started

	return nil
}

func (mgr *TaskManager) runTaskLoop(name string, taskFunc TaskFunc) {
	for {
		ctx := mgr.getContext()
		select {
		case <-ctx.Done():
			return
		default:
			if !mgr.callWithRecover(name, taskFunc) {
				return
			}
		}
	}
}

// callWithRecover calls fn and stops the task if it panics.
func (mgr *TaskManager) callWithRecover(name string, fn func() bool) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			mgr.logger.Error("panic in task", "name", name, "panic", r)
			ok = false
		}
	}()

	return fn()
}
