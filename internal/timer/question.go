package timer

import (
	"sync"
	"time"

	"github.com/audiolibrelab/rehearse/internal/clock"
)

// State is the question timer state.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StateExpired:
		return "expired"
	default:
		return "idle"
	}
}

// QuestionTimer counts down the time limit of the current question. It only
// ticks while gate reports true and fires onExpire once per Arm.
type QuestionTimer struct {
	interval *Interval
	gate     func() bool
	onExpire func()

	state     State
	limit     int
	remaining int
}

// NewQuestionTimer creates an idle question timer ticking every tick.
func NewQuestionTimer(c clock.Clock, tick time.Duration, locker sync.Locker, gate func() bool, onExpire func()) *QuestionTimer {
	return &QuestionTimer{
		interval: NewInterval(c, tick, locker),
		gate:     gate,
		onExpire: onExpire,
	}
}

// Arm resets the countdown to limit seconds. Ticking starts only if the
// gate is open right now; a pending tick from the previous arm is dropped.
func (q *QuestionTimer) Arm(limit int) {
	q.interval.Stop()
	q.limit = limit
	q.remaining = limit
	q.state = StateArmed

	if limit <= 0 {
		q.expire()
		return
	}
	if q.gate() {
		q.interval.Start(q.tick)
	}
}

// Suspend freezes the countdown without losing the remaining time.
func (q *QuestionTimer) Suspend() {
	q.interval.Stop()
}

// Resume continues an armed countdown if the gate is open.
func (q *QuestionTimer) Resume() {
	if q.state != StateArmed || q.remaining <= 0 || !q.gate() {
		return
	}
	q.interval.Start(q.tick)
}

// Stop cancels the countdown and returns the timer to idle.
func (q *QuestionTimer) Stop() {
	q.interval.Stop()
	q.state = StateIdle
}

// State returns the current timer state.
func (q *QuestionTimer) State() State {
	return q.state
}

// Remaining returns the seconds left on the current question.
func (q *QuestionTimer) Remaining() int {
	return q.remaining
}

// Limit returns the limit of the last Arm.
func (q *QuestionTimer) Limit() int {
	return q.limit
}

// Ticking reports whether the countdown is live.
func (q *QuestionTimer) Ticking() bool {
	return q.interval.Running()
}

func (q *QuestionTimer) tick() {
	if !q.gate() {
		q.interval.Stop()
		return
	}
	q.remaining--
	if q.remaining <= 0 {
		q.remaining = 0
		q.expire()
	}
}

func (q *QuestionTimer) expire() {
	q.interval.Stop()
	q.state = StateExpired
	if q.onExpire != nil {
		q.onExpire()
	}
}
