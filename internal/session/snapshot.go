package session

import (
	"github.com/audiolibrelab/rehearse/internal/capture"
	"github.com/audiolibrelab/rehearse/internal/config"
)

// Snapshot is a read-only view of the coordinator for hosts.
type Snapshot struct {
	SessionID          string               `json:"sessionId,omitempty"`
	Status             Status               `json:"status"`
	Settings           Settings             `json:"settings"`
	QuestionIndex      int                  `json:"currentQuestionIndex"`
	TotalQuestions     int                  `json:"totalQuestions"`
	Question           *config.Question     `json:"question,omitempty"`
	Remaining          int                  `json:"remainingSeconds"`
	TimerState         string               `json:"timerState"`
	Elapsed            int                  `json:"elapsedSeconds"`
	Progress           float64              `json:"progress"`
	Capturing          bool                 `json:"isCapturing"`
	Permission         string               `json:"permission"`
	Acquiring          bool                 `json:"acquiring"`
	DeviceError        string               `json:"deviceError,omitempty"`
	DeviceErrorKind    string               `json:"deviceErrorKind,omitempty"`
	Tracks             []capture.TrackState `json:"tracks,omitempty"`
	RecorderActive     bool                 `json:"recorderActive"`
	RecorderError      string               `json:"recorderError,omitempty"`
	Chunks             int                  `json:"chunks"`
	Bytes              int                  `json:"bytes"`
	AutoAdvancePending bool                 `json:"autoAdvancePending"`
	Guard              bool                 `json:"guard"`
	Persisting         bool                 `json:"persisting"`
	PersistError       string               `json:"persistError,omitempty"`
	Summary            *Summary             `json:"summary,omitempty"`
}

// HasPermission is the bool view of the permission tri-state.
func (s Snapshot) HasPermission() bool {
	return s.Permission == capture.PermissionGranted.String()
}

// CanStart reports whether Start would be accepted.
func (s Snapshot) CanStart() bool {
	return s.Status == StatusSetup && s.HasPermission() && s.TotalQuestions > 0
}

// Snapshot returns the current state.
func (c *Coordinator) Snapshot() Snapshot {
	c.lock()
	defer c.unlock()

	dev := c.capture.Status()
	chunks, bytes := c.recorder.Stats()

	snap := Snapshot{
		SessionID:          c.sessionID,
		Status:             c.status,
		Settings:           c.opts.Settings,
		QuestionIndex:      c.index,
		TotalQuestions:     len(c.opts.Questions),
		Remaining:          c.questionTimer.Remaining(),
		TimerState:         c.questionTimer.State().String(),
		Elapsed:            c.elapsed,
		Progress:           Progress(c.index, len(c.opts.Questions)),
		Capturing:          c.capturing(),
		Permission:         dev.Permission.String(),
		Acquiring:          c.acquiring || dev.Acquiring,
		Tracks:             dev.Tracks,
		RecorderActive:     c.recorder.Active(),
		Chunks:             chunks,
		Bytes:              bytes,
		AutoAdvancePending: c.autoAdvance.Scheduled(),
		Guard:              c.guard,
		Persisting:         c.persisting,
	}

	if c.index < len(c.opts.Questions) {
		q := c.opts.Questions[c.index]
		snap.Question = &q
	}
	if c.status == StatusSetup {
		snap.Remaining = 0
		if len(c.opts.Questions) > 0 {
			snap.Remaining = c.opts.Questions[0].TimeLimit
		}
	}
	if c.deviceErr != nil {
		snap.DeviceError = capture.UserMessage(c.deviceErr)
		snap.DeviceErrorKind = capture.KindOf(c.deviceErr).String()
	}
	if c.recorderErr != nil {
		snap.RecorderError = capture.UserMessage(c.recorderErr)
	}
	if c.persistErr != nil {
		snap.PersistError = c.persistErr.Error()
	}
	if c.summary != nil {
		summary := *c.summary
		snap.Summary = &summary
	}
	return snap
}
