package draftsync_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/notewell/notewell.go/draftsync"
)

func TestSchedulerRearmReplacesPendingTimer(t *testing.T) {
	sched := draftsync.NewScheduler(30 * time.Millisecond)

	var fired atomic.Int32
	sched.Schedule(func() { fired.Add(1) })
	sched.Schedule(func() { fired.Add(1) })
	sched.Schedule(func() { fired.Add(1) })

	assert.Eventually(t, func() bool { return fired.Load() == 1 },
		time.Second, 5*time.Millisecond)

	// No stray timer fires afterwards.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestSchedulerCancel(t *testing.T) {
	sched := draftsync.NewScheduler(20 * time.Millisecond)

	var fired atomic.Int32
	sched.Schedule(func() { fired.Add(1) })
	sched.Cancel()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())

	// Cancel with nothing pending is a no-op.
	sched.Cancel()
}
