package ports

import (
	"context"
	"math/rand"
	"time"

	"github.com/sufield/vaultsession/internal/core/domain"
)

// Clock abstracts wall-clock time so renewal/rotation delay math is
// deterministic under test.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Random abstracts the jitter source. Float64 must return a value in
// [0, 1).
type Random interface {
	Float64() float64
}

// SystemRandom is the production Random backed by math/rand's global
// source.
type SystemRandom struct{}

func (SystemRandom) Float64() float64 { return rand.Float64() }

// Scheduler owns one-shot delayed task execution. A scheduled task holds
// an atomic reference to its owning registration (enforced by callers, not
// the scheduler itself) so that a cancellation racing a firing is
// race-free: the returned domain.CancelFunc, once called, guarantees the
// task will not run if it has not already started.
type Scheduler interface {
	// Schedule arranges for task to run once after delay, passing ctx
	// through so the task can observe scheduler shutdown. It returns a
	// CancelFunc that cancels the pending firing.
	Schedule(ctx context.Context, delay time.Duration, task func(context.Context)) domain.CancelFunc
}
