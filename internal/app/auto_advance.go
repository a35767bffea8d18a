package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/domain"
	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/store"
)

// advanceGrace is how far past zero the derived remaining time must fall
// before the driver advances. Checking a small negative threshold instead of
// exactly zero tolerates the 1s polling granularity and lets stragglers'
// submissions land.
const advanceGrace = -1 * time.Second

// AutoAdvance drives the quiz forward on the host's behalf: it watches the
// timer and triggers exactly one Advance when a question's time budget is
// exhausted. One instance runs per hosting client. Two clients both acting
// as host are not arbitrated: both drivers may call Advance, which the
// full-recompute scoring keeps harmless.
type AutoAdvance struct {
	control   *QuizControl
	clock     func() time.Time
	interval  time.Duration
	newTicker func(time.Duration) (<-chan time.Time, func())
}

func NewAutoAdvance(control *QuizControl) *AutoAdvance {
	return &AutoAdvance{
		control:  control,
		clock:    time.Now,
		interval: time.Second,
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// NewAutoAdvanceWithScheduler is test-only: it substitutes the wall clock
// and the recheck interval source so expiry can be driven deterministically.
func NewAutoAdvanceWithScheduler(control *QuizControl, clock func() time.Time, newTicker func(time.Duration) (<-chan time.Time, func())) *AutoAdvance {
	return &AutoAdvance{control: control, clock: clock, interval: time.Second, newTicker: newTicker}
}

// Start begins driving the room. The returned stop function releases both
// the timer subscription and any outstanding recheck interval; it is safe to
// call more than once and must be called when the host leaves the room or
// the quiz completes.
func (a *AutoAdvance) Start(ctx context.Context, hostID, roomID string) (store.CancelFunc, error) {
	d := &advanceDriver{
		parent: a,
		ctx:    ctx,
		hostID: hostID,
		roomID: roomID,
	}
	cancelWatch, err := a.control.WatchTimer(ctx, roomID, d.onTimer)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.cancelWatch = cancelWatch
	if d.stopped {
		d.mu.Unlock()
		cancelWatch()
		return d.stop, nil
	}
	d.mu.Unlock()
	return d.stop, nil
}

type advanceDriver struct {
	parent *AutoAdvance
	ctx    context.Context
	hostID string
	roomID string

	mu          sync.Mutex
	latest      *domain.TimerState
	advancing   bool
	stopTicker  func()
	pollDone    chan struct{}
	cancelWatch store.CancelFunc
	stopped     bool
}

// onTimer runs on every timer snapshot: an active timer (re)arms the
// recheck interval, an inactive one tears it down.
func (d *advanceDriver) onTimer(timer *domain.TimerState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.latest = timer
	if d.stopped {
		return
	}
	if timer != nil && timer.IsActive {
		d.clearTickerLocked()
		ch, stop := d.parent.newTicker(d.parent.interval)
		done := make(chan struct{})
		d.stopTicker = stop
		d.pollDone = done
		go d.poll(ch, done)
	} else {
		d.clearTickerLocked()
		d.advancing = false
	}
}

// poll exits on done: ticker.Stop never closes the ticker channel, so the
// goroutine's lifetime is bound to the arm that spawned it, not the channel.
func (d *advanceDriver) poll(ch <-chan time.Time, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ch:
			d.check()
		}
	}
}

// check recomputes remaining time from the latest known start instant and
// advances once it crosses the grace threshold. The reentrancy guard admits
// at most one in-flight Advance and is released whether it succeeds or not.
func (d *advanceDriver) check() {
	d.mu.Lock()
	timer := d.latest
	if d.stopped || d.advancing || timer == nil || !timer.IsActive {
		d.mu.Unlock()
		return
	}
	elapsed := d.parent.clock().Sub(timer.QuestionStartTime)
	remaining := time.Duration(timer.QuestionDuration)*time.Second - elapsed
	if remaining > advanceGrace {
		d.mu.Unlock()
		return
	}
	d.advancing = true
	d.mu.Unlock()

	if !d.parent.control.Advance(d.ctx, d.hostID, d.roomID) {
		log.Printf("room %s: auto-advance attempt failed", d.roomID)
	}

	d.mu.Lock()
	d.advancing = false
	d.mu.Unlock()
}

func (d *advanceDriver) clearTickerLocked() {
	if d.stopTicker != nil {
		d.stopTicker()
		d.stopTicker = nil
	}
	if d.pollDone != nil {
		close(d.pollDone)
		d.pollDone = nil
	}
}

// stop releases the interval and the subscription. Idempotent.
func (d *advanceDriver) stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.clearTickerLocked()
	cancel := d.cancelWatch
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
