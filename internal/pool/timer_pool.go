// Package pool keeps reusable runtime objects shared by the transports.
package pool

import (
	"sync"
	"time"
)

var timers sync.Pool

// AcquireTimer returns a timer that fires once after d.
//
// The timer must be handed back with ReleaseTimer and not touched afterwards.
func AcquireTimer(d time.Duration) *time.Timer {
	v := timers.Get()
	if v == nil {
		return time.NewTimer(d)
	}

	t, _ := v.(*time.Timer)
	t.Reset(d)

	return t
}

// ReleaseTimer stops t, drains a pending tick and puts it back to the pool.
func ReleaseTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	timers.Put(t)
}
