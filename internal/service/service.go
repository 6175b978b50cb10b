package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/audiolibrelab/rehearse/internal/capture"
	"github.com/audiolibrelab/rehearse/internal/clock"
	"github.com/audiolibrelab/rehearse/internal/config"
	"github.com/audiolibrelab/rehearse/internal/recording"
	"github.com/audiolibrelab/rehearse/internal/session"
	"github.com/audiolibrelab/rehearse/internal/store"
)

// Service is what the hosts (terminal UI, HTTP server, CLI) drive.
type Service interface {
	// Session operations
	Start() error
	Pause() error
	Resume() error
	Next() error
	Previous() error
	Stop() error
	Restart() error
	Snapshot() session.Snapshot
	RequestLeave(confirmed bool) bool

	// Device operations
	RetryDevice() error
	RetryRecorder() error
	ToggleTrack(kind capture.TrackKind) (bool, error)

	// History operations
	History(ctx context.Context, f store.Filter) ([]session.Summary, error)
	GetSession(ctx context.Context, id string) (*session.Summary, error)

	// Configuration operations
	LoadProfile(profile string) error
	GetConfig() *config.Config
	ListProfiles() ([]string, string, error)

	GetLastError() string
	Close() error
}

// Deps are the collaborators New would otherwise build from configuration.
type Deps struct {
	Device capture.Device
	Clock  clock.Clock
	Store  *store.Store
	Guard  session.GuardHook
}

// InterviewService is the main service implementation.
type InterviewService struct {
	configFile string
	logWriter  io.Writer
	deps       Deps
	ownsStore  bool

	mutex       sync.RWMutex
	cfg         *config.Config
	coordinator *session.Coordinator

	// Error tracking
	lastError      string
	lastErrorMutex sync.RWMutex
}

// New builds the ffmpeg device and opens the session store named by cfg.
// guard, when set, is told whenever the navigation guard engages or
// releases.
func New(cfg *config.Config, configFile string, logWriter io.Writer, guard session.GuardHook) (*InterviewService, error) {
	if logWriter == nil {
		logWriter = io.Discard
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	s := NewWithDeps(cfg, configFile, logWriter, Deps{
		Device: capture.NewFFmpegDevice(cfg.Capture, logWriter),
		Clock:  clock.Real(),
		Store:  st,
		Guard:  guard,
	})
	s.ownsStore = true
	return s, nil
}

// NewWithDeps creates the service around the given collaborators and mounts
// a coordinator, which starts device acquisition.
func NewWithDeps(cfg *config.Config, configFile string, logWriter io.Writer, deps Deps) *InterviewService {
	if logWriter == nil {
		logWriter = io.Discard
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}

	s := &InterviewService{
		configFile: configFile,
		logWriter:  logWriter,
		deps:       deps,
		cfg:        cfg,
	}
	s.coordinator = s.newCoordinator(cfg)
	return s
}

func (s *InterviewService) newCoordinator(cfg *config.Config) *session.Coordinator {
	mgr := capture.NewManager(s.deps.Device, capture.ConstraintsFromConfig(cfg))
	rec := recording.NewController(s.deps.Clock, recording.Options{
		MimeType:  cfg.Capture.MimeType,
		Timeslice: cfg.Capture.Timeslice(),
	})

	opts := session.OptionsFromConfig(cfg)
	opts.Guard = s.deps.Guard
	if s.deps.Store != nil {
		opts.Sink = s.deps.Store
	}

	c := session.New(s.deps.Clock, mgr, rec, opts)
	if err := c.Mount(); err != nil {
		slog.Error("Failed to mount session", "error", err)
	}
	slog.Debug("Session coordinator created", "device", s.deps.Device.Name(), "questions", len(cfg.Questions))
	return c
}

func (s *InterviewService) current() *session.Coordinator {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.coordinator
}

// run applies op to the current coordinator and tracks its error for the UI.
func (s *InterviewService) run(action string, op func(*session.Coordinator) error) error {
	err := op(s.current())
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to %s: %v", action, err))
		return err
	}
	s.clearLastError()
	return nil
}

func (s *InterviewService) Start() error {
	return s.run("start interview", (*session.Coordinator).Start)
}

func (s *InterviewService) Pause() error {
	return s.run("pause interview", (*session.Coordinator).Pause)
}

func (s *InterviewService) Resume() error {
	return s.run("resume interview", (*session.Coordinator).Resume)
}

func (s *InterviewService) Next() error {
	return s.run("advance question", (*session.Coordinator).Next)
}

func (s *InterviewService) Previous() error {
	return s.run("go back a question", (*session.Coordinator).Previous)
}

func (s *InterviewService) Stop() error {
	return s.run("stop interview", (*session.Coordinator).Stop)
}

func (s *InterviewService) Restart() error {
	return s.run("restart interview", (*session.Coordinator).Restart)
}

func (s *InterviewService) RetryDevice() error {
	return s.run("retry device", (*session.Coordinator).RetryDevice)
}

func (s *InterviewService) RetryRecorder() error {
	return s.run("start recording", (*session.Coordinator).RetryRecorder)
}

// ToggleTrack flips a video or audio track.
func (s *InterviewService) ToggleTrack(kind capture.TrackKind) (bool, error) {
	enabled, err := s.current().ToggleTrack(kind)
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to toggle %s: %v", kind, err))
		return false, err
	}
	return enabled, nil
}

// Snapshot returns the current session state.
func (s *InterviewService) Snapshot() session.Snapshot {
	return s.current().Snapshot()
}

// RequestLeave asks the coordinator whether the host may go away.
func (s *InterviewService) RequestLeave(confirmed bool) bool {
	return s.current().RequestLeave(confirmed)
}

// Wait blocks until the coordinator's background work is done.
func (s *InterviewService) Wait() {
	s.current().Wait()
}

// History lists stored sessions.
func (s *InterviewService) History(ctx context.Context, f store.Filter) ([]session.Summary, error) {
	if s.deps.Store == nil {
		return nil, errors.New("no session store configured")
	}
	return s.deps.Store.List(ctx, f)
}

// GetSession returns one stored session.
func (s *InterviewService) GetSession(ctx context.Context, id string) (*session.Summary, error) {
	if s.deps.Store == nil {
		return nil, errors.New("no session store configured")
	}
	return s.deps.Store.Get(ctx, id)
}

// LoadProfile switches to another configuration profile. The running
// coordinator is torn down, so this is refused mid-session.
func (s *InterviewService) LoadProfile(profile string) error {
	snap := s.Snapshot()
	if snap.Status == session.StatusRecording || snap.Status == session.StatusPaused {
		return fmt.Errorf("cannot change profile while the interview is %s", snap.Status)
	}

	newCfg, err := config.LoadWithProfile(s.configFile, profile)
	if err != nil {
		return fmt.Errorf("failed to load profile '%s': %w", profile, err)
	}

	s.mutex.Lock()
	old := s.coordinator
	s.cfg = newCfg
	s.mutex.Unlock()

	// Close releases the device before the new coordinator acquires it.
	old.Close()

	c := s.newCoordinator(newCfg)
	s.mutex.Lock()
	s.coordinator = c
	s.mutex.Unlock()

	slog.Info("Profile loaded", "profile", profile)
	return nil
}

// GetConfig returns the current configuration
func (s *InterviewService) GetConfig() *config.Config {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.cfg
}

// ListProfiles returns the profile names and the active one.
func (s *InterviewService) ListProfiles() ([]string, string, error) {
	return config.ListProfiles(s.configFile)
}

// Close tears the coordinator down and closes the store it opened.
func (s *InterviewService) Close() error {
	s.current().Close()
	if s.ownsStore && s.deps.Store != nil {
		return s.deps.Store.Close()
	}
	return nil
}

// GetLastError returns the last error message (thread-safe)
func (s *InterviewService) GetLastError() string {
	s.lastErrorMutex.RLock()
	defer s.lastErrorMutex.RUnlock()
	return s.lastError
}

// setLastError sets the last error message (thread-safe)
func (s *InterviewService) setLastError(err string) {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = err

	slog.Error("Service error occurred", "error_message", err)
}

// clearLastError clears the last error message (thread-safe)
func (s *InterviewService) clearLastError() {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = ""
}
