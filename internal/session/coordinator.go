// Package session coordinates a recorded interview: device acquisition,
// the recording segment, the elapsed clock and the per-question countdown.
//
// All state lives behind one mutex. Timer firings and acquisition results
// re-enter through that mutex and check a generation first, so a callback
// that lost a race with a transition or with Close does nothing.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/audiolibrelab/rehearse/internal/capture"
	"github.com/audiolibrelab/rehearse/internal/clock"
	"github.com/audiolibrelab/rehearse/internal/config"
	"github.com/audiolibrelab/rehearse/internal/recording"
	"github.com/audiolibrelab/rehearse/internal/timer"
	"github.com/google/uuid"
)

// Capture is the device side the coordinator drives.
type Capture interface {
	Activate(ctx context.Context) error
	Handle() capture.Stream
	Status() capture.Status
	ToggleTrack(kind capture.TrackKind) (bool, error)
	Reset()
	Close()
}

// Recorder turns the borrowed handle into a recording segment.
type Recorder interface {
	Begin(stream capture.Stream) error
	End() (*recording.Recording, error)
	Active() bool
	Stats() (chunks, bytes int)
}

// Sink persists completed sessions.
type Sink interface {
	Append(ctx context.Context, s Summary) error
}

// GuardHook is told when the navigation guard engages or releases. It is
// called without the coordinator's lock held.
type GuardHook func(engaged bool)

// Options configures a coordinator.
type Options struct {
	Questions        []config.Question
	Settings         Settings
	Tick             time.Duration
	AutoAdvanceDelay time.Duration
	ProcessingDelay  time.Duration
	OutputDir        string
	SaveRecordings   bool
	Sink             Sink
	Guard            GuardHook
	Rand             *rand.Rand
}

// OptionsFromConfig builds options from a resolved profile.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Questions:        cfg.Questions,
		Settings:         SettingsFromConfig(cfg.Settings),
		Tick:             cfg.Timing.Tick(),
		AutoAdvanceDelay: cfg.Timing.AutoAdvanceDelay(),
		ProcessingDelay:  cfg.Timing.ProcessingDelay(),
		OutputDir:        cfg.Output.Directory,
		SaveRecordings:   cfg.Output.SaveRecordings,
	}
}

// Coordinator is the session state machine.
type Coordinator struct {
	clock    clock.Clock
	capture  Capture
	recorder Recorder
	opts     Options

	mutex   sync.Mutex
	effects []func()

	status      Status
	sessionID   string
	sessionGen  uint64
	startedAt   time.Time
	index       int
	elapsed     int
	recorderErr error

	elapsedClock  *timer.Interval
	questionTimer *timer.QuestionTimer
	autoAdvance   *timer.Delay
	processing    *timer.Delay

	mounted    bool
	acquireGen uint64
	acquiring  bool
	deviceErr  error

	persisting bool
	sinkDone   bool
	delayDone  bool
	persistErr error
	summary    *Summary
	guard      bool
	closed     bool
	acquireCtx context.Context
	cancelAcq  context.CancelFunc
	background sync.WaitGroup
}

// coordinatorLock lets the timers re-enter through the coordinator's lock
// so that queued effects run when they unlock.
type coordinatorLock struct {
	c *Coordinator
}

func (l coordinatorLock) Lock() { l.c.lock() }
func (l coordinatorLock) Unlock() { l.c.unlock() }

// New creates a coordinator in Setup. Call Mount to start device
// acquisition.
func New(clk clock.Clock, capt Capture, recorder Recorder, opts Options) *Coordinator {
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	if opts.AutoAdvanceDelay < 0 {
		opts.AutoAdvanceDelay = 0
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	c := &Coordinator{
		clock:    clk,
		capture:  capt,
		recorder: recorder,
		opts:     opts,
	}
	c.acquireCtx, c.cancelAcq = context.WithCancel(context.Background())

	locker := coordinatorLock{c}
	c.elapsedClock = timer.NewInterval(clk, opts.Tick, locker)
	c.questionTimer = timer.NewQuestionTimer(clk, opts.Tick, locker, c.capturing, func() {
		c.apply(EventExpired)
	})
	c.autoAdvance = timer.NewDelay(clk, locker)
	c.processing = timer.NewDelay(clk, locker)
	return c
}

func (c *Coordinator) lock() {
	c.mutex.Lock()
}

// unlock releases the lock and then runs the effects queued while it was
// held, in order.
func (c *Coordinator) unlock() {
	effects := c.effects
	c.effects = nil
	c.mutex.Unlock()

	for _, fn := range effects {
		fn()
	}
}

func (c *Coordinator) capturing() bool {
	return c.status == StatusRecording
}

// Mount starts the one-time device acquisition.
func (c *Coordinator) Mount() error {
	c.lock()
	defer c.unlock()

	if c.closed {
		return ErrClosed
	}
	if c.mounted {
		return nil
	}
	c.mounted = true
	c.acquire()
	return nil
}

// RetryDevice re-runs device acquisition. It is only available before a
// session starts or after it completes.
func (c *Coordinator) RetryDevice() error {
	c.lock()
	defer c.unlock()

	if c.closed {
		return ErrClosed
	}
	if c.status != StatusSetup && c.status != StatusCompleted {
		return fmt.Errorf("%w: cannot retry the device while %s", ErrInvalidTransition, c.status)
	}
	c.mounted = true
	c.acquire()
	return nil
}

func (c *Coordinator) acquire() {
	c.acquireGen++
	gen := c.acquireGen
	c.acquiring = true
	c.deviceErr = nil

	c.background.Add(1)
	go func() {
		defer c.background.Done()

		err := c.capture.Activate(c.acquireCtx)

		c.lock()
		defer c.unlock()

		if c.closed || gen != c.acquireGen {
			return
		}
		c.acquiring = false
		if errors.Is(err, capture.ErrStale) || errors.Is(err, capture.ErrClosed) {
			return
		}
		c.deviceErr = err
	}()
}

func (c *Coordinator) Start() error { return c.dispatch(EventStart) }
func (c *Coordinator) Pause() error { return c.dispatch(EventPause) }
func (c *Coordinator) Resume() error { return c.dispatch(EventResume) }
func (c *Coordinator) Next() error { return c.dispatch(EventAdvance) }
func (c *Coordinator) Previous() error { return c.dispatch(EventPrevious) }
func (c *Coordinator) Stop() error { return c.dispatch(EventStop) }
func (c *Coordinator) Restart() error { return c.dispatch(EventRestart) }

func (c *Coordinator) dispatch(ev Event) error {
	c.lock()
	defer c.unlock()

	if c.closed {
		return ErrClosed
	}
	return c.apply(ev)
}

// apply is the transition function. Callers hold the lock.
func (c *Coordinator) apply(ev Event) error {
	if c.closed {
		return ErrClosed
	}

	switch ev {
	case EventStart:
		if c.status != StatusSetup {
			return invalid(ev, c.status)
		}
		if c.capture.Status().Permission != capture.PermissionGranted || c.capture.Handle() == nil {
			return ErrNoPermission
		}
		if len(c.opts.Questions) == 0 {
			return ErrNoQuestions
		}
		c.sessionGen++
		c.sessionID = uuid.NewString()
		c.startedAt = c.clock.Now()
		c.elapsed = 0
		c.index = 0
		c.summary = nil
		c.persistErr = nil
		c.status = StatusRecording
		c.beginRecording()
		c.elapsedClock.Start(c.tick)
		c.setGuard(true)
		slog.Info("Interview started", "session", c.sessionID, "questions", len(c.opts.Questions))
		c.arm()

	case EventPause:
		if c.status != StatusRecording {
			return invalid(ev, c.status)
		}
		c.status = StatusPaused
		c.elapsedClock.Stop()
		c.questionTimer.Suspend()
		c.autoAdvance.Cancel()
		c.setGuard(false)
		slog.Debug("Interview paused", "elapsed", c.elapsed, "remaining", c.questionTimer.Remaining())

	case EventResume:
		if c.status != StatusPaused {
			return invalid(ev, c.status)
		}
		c.status = StatusRecording
		c.elapsedClock.Start(c.tick)
		c.setGuard(true)
		if c.questionTimer.State() == timer.StateExpired {
			c.scheduleAdvance()
		} else {
			c.questionTimer.Resume()
		}
		slog.Debug("Interview resumed", "elapsed", c.elapsed, "remaining", c.questionTimer.Remaining())

	case EventAdvance:
		if c.status != StatusRecording && c.status != StatusPaused {
			return invalid(ev, c.status)
		}
		c.autoAdvance.Cancel()
		if c.index >= len(c.opts.Questions)-1 {
			return c.apply(EventStop)
		}
		c.index++
		c.arm()

	case EventPrevious:
		if c.status != StatusRecording && c.status != StatusPaused {
			return invalid(ev, c.status)
		}
		c.autoAdvance.Cancel()
		if c.index == 0 {
			return nil
		}
		c.index--
		c.arm()

	case EventStop:
		if c.status != StatusRecording && c.status != StatusPaused {
			return invalid(ev, c.status)
		}
		c.complete()

	case EventRestart:
		if c.status != StatusCompleted {
			return invalid(ev, c.status)
		}
		c.sessionGen++
		c.status = StatusSetup
		c.sessionID = ""
		c.index = 0
		c.elapsed = 0
		c.summary = nil
		c.persisting = false
		c.persistErr = nil
		c.recorderErr = nil
		c.processing.Cancel()
		c.questionTimer.Stop()
		c.capture.Reset()
		c.acquire()
		slog.Info("Interview reset")

	case EventExpired:
		if c.status != StatusRecording && c.status != StatusPaused {
			return nil
		}
		if c.index >= len(c.opts.Questions)-1 {
			slog.Debug("Final question expired", "index", c.index)
			c.complete()
			return nil
		}
		if c.status == StatusRecording {
			c.scheduleAdvance()
		}

	case EventTick:
		if c.status == StatusRecording {
			c.elapsed++
		}

	default:
		return fmt.Errorf("%w: unknown event %s", ErrInvalidTransition, ev)
	}
	return nil
}

func (c *Coordinator) tick() {
	c.apply(EventTick)
}

func (c *Coordinator) arm() {
	q := c.opts.Questions[c.index]
	slog.Debug("Question armed", "index", c.index, "id", q.ID, "limit", q.TimeLimit)
	c.questionTimer.Arm(q.TimeLimit)
}

func (c *Coordinator) scheduleAdvance() {
	gen := c.sessionGen
	c.autoAdvance.Schedule(c.opts.AutoAdvanceDelay, func() {
		if c.closed || gen != c.sessionGen || c.status != StatusRecording {
			return
		}
		c.apply(EventAdvance)
	})
}

func (c *Coordinator) beginRecording() {
	err := c.recorder.Begin(c.capture.Handle())
	if err != nil && !errors.Is(err, recording.ErrAlreadyActive) {
		slog.Warn("Failed to start recording", "error", err)
		c.recorderErr = err
		return
	}
	c.recorderErr = nil
}

// RetryRecorder re-attempts starting the recorder after a start failure.
func (c *Coordinator) RetryRecorder() error {
	c.lock()
	defer c.unlock()

	if c.closed {
		return ErrClosed
	}
	if c.status != StatusRecording && c.status != StatusPaused {
		return fmt.Errorf("%w: no session to record while %s", ErrInvalidTransition, c.status)
	}
	c.beginRecording()
	return c.recorderErr
}

// ToggleTrack mutes or unmutes a track without touching the session.
func (c *Coordinator) ToggleTrack(kind capture.TrackKind) (bool, error) {
	c.lock()
	defer c.unlock()

	if c.closed {
		return false, ErrClosed
	}
	return c.capture.ToggleTrack(kind)
}

func (c *Coordinator) complete() {
	c.status = StatusCompleted
	c.elapsedClock.Stop()
	c.questionTimer.Stop()
	c.autoAdvance.Cancel()
	c.setGuard(false)

	rec, err := c.recorder.End()
	if err != nil {
		slog.Warn("Failed to finalize recording", "error", err)
	}

	summary := newSummary(summaryInput{
		id:          c.sessionID,
		settings:    c.opts.Settings,
		startedAt:   c.startedAt,
		completedAt: c.clock.Now(),
		elapsed:     c.elapsed,
		index:       c.index,
		total:       len(c.opts.Questions),
		recording:   rec,
	}, c.opts.Rand)
	if c.saveRecording(rec) {
		summary.Recording.Path = recording.Path(c.opts.OutputDir, summary.ID, rec.MimeType)
	}
	c.summary = &summary

	slog.Info("Interview completed", "session", c.sessionID, "elapsed", c.elapsed, "answered", summary.QuestionsAnswered)
	c.persist(summary, rec)
}

// persist hands the summary to the sink in the background. The persisting
// flag stays up until the sink returns and the processing delay elapsed.
func (c *Coordinator) persist(summary Summary, rec *recording.Recording) {
	gen := c.sessionGen
	c.persisting = true
	c.persistErr = nil
	c.sinkDone = false
	c.delayDone = c.opts.ProcessingDelay <= 0
	if !c.delayDone {
		c.processing.Schedule(c.opts.ProcessingDelay, func() {
			if gen != c.sessionGen {
				return
			}
			c.delayDone = true
			c.finishPersist()
		})
	}

	sink := c.opts.Sink
	save := c.saveRecording(rec)
	dir := c.opts.OutputDir

	c.background.Add(1)
	go func() {
		defer c.background.Done()

		var saveErr error
		if save {
			path, err := recording.WriteFile(dir, summary.ID, rec)
			if err != nil {
				saveErr = err
				slog.Error("Failed to save recording", "session", summary.ID, "error", err)
			} else {
				slog.Info("Recording saved", "path", path)
			}
		}

		var err error
		if sink != nil {
			err = sink.Append(context.Background(), summary)
		}
		if err != nil {
			slog.Error("Failed to persist session", "session", summary.ID, "error", err)
		} else {
			err = saveErr
		}

		c.lock()
		defer c.unlock()

		if c.closed || gen != c.sessionGen {
			return
		}
		c.persistErr = err
		c.sinkDone = true
		c.finishPersist()
	}()
}

// saveRecording reports whether rec is written to the output directory.
func (c *Coordinator) saveRecording(rec *recording.Recording) bool {
	return c.opts.SaveRecordings && rec != nil && len(rec.Chunks) > 0
}

func (c *Coordinator) finishPersist() {
	if c.sinkDone && c.delayDone {
		c.persisting = false
	}
}

func (c *Coordinator) setGuard(engaged bool) {
	if c.guard == engaged {
		return
	}
	c.guard = engaged
	if hook := c.opts.Guard; hook != nil {
		c.effects = append(c.effects, func() { hook(engaged) })
	}
}

// RequestLeave reports whether the host may navigate away. While the guard
// is engaged only a confirmed request is allowed.
func (c *Coordinator) RequestLeave(confirmed bool) bool {
	c.lock()
	defer c.unlock()

	if !c.guard {
		return true
	}
	if !confirmed {
		slog.Debug("Leave blocked by active session")
		return false
	}
	return true
}

// Guarded reports whether the navigation guard is engaged.
func (c *Coordinator) Guarded() bool {
	c.lock()
	defer c.unlock()
	return c.guard
}

// Wait blocks until background acquisition and persistence are done.
func (c *Coordinator) Wait() {
	c.background.Wait()
}

// Close tears the session down from any status and waits for background
// work. It is safe to call more than once.
func (c *Coordinator) Close() {
	c.lock()
	if c.closed {
		c.unlock()
		return
	}
	c.elapsedClock.Stop()
	c.questionTimer.Stop()
	c.autoAdvance.Cancel()
	c.processing.Cancel()
	if _, err := c.recorder.End(); err != nil {
		slog.Warn("Failed to stop recorder on close", "error", err)
	}
	c.capture.Close()
	c.setGuard(false)
	c.closed = true
	c.acquiring = false
	c.cancelAcq()
	c.unlock()

	c.background.Wait()
	slog.Debug("Session coordinator closed")
}
