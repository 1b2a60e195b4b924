// Package scheduler provides a time.AfterFunc-based implementation of
// ports.Scheduler.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sufield/vaultsession/internal/core/domain"
	"github.com/sufield/vaultsession/internal/core/ports"
)

// TimerScheduler schedules one-shot tasks with time.AfterFunc. Each
// scheduled task gets its own cancelled flag, checked when the timer fires:
// a task cancelled before that check never runs. The flag is not held while
// the task runs, so a Cancel made after the check does not stop a task that
// has already started.
type TimerScheduler struct{}

// New builds a TimerScheduler.
func New() *TimerScheduler {
	return &TimerScheduler{}
}

// Schedule implements ports.Scheduler.
func (s *TimerScheduler) Schedule(ctx context.Context, delay time.Duration, task func(context.Context)) domain.CancelFunc {
	var mu sync.Mutex
	cancelled := false

	timer := time.AfterFunc(delay, func() {
		mu.Lock()
		if cancelled {
			mu.Unlock()
			return
		}
		mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		task(ctx)
	})

	return func() {
		mu.Lock()
		cancelled = true
		mu.Unlock()
		timer.Stop()
	}
}

var _ ports.Scheduler = (*TimerScheduler)(nil)
