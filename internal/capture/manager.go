package capture

import (
	"context"
	"log/slog"
	"sync"
)

// Permission is the outcome of the latest device check.
type Permission int

const (
	PermissionUnknown Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Status is a snapshot of the manager.
type Status struct {
	Permission Permission   `json:"-"`
	Acquiring  bool         `json:"acquiring"`
	StreamID   string       `json:"stream_id,omitempty"`
	Tracks     []TrackState `json:"tracks,omitempty"`
	Err        *Error       `json:"-"`
	Message    string       `json:"message,omitempty"`
}

// Manager acquires and releases the capture device. It holds at most one
// live Stream; every earlier or superseded handle is stopped.
type Manager struct {
	device      Device
	constraints Constraints

	mutex      sync.Mutex
	stream     Stream
	permission Permission
	lastErr    *Error
	attempt    uint64
	inFlight   int
	closed     bool
	listener   func()
}

// NewManager creates a manager for device.
func NewManager(device Device, c Constraints) *Manager {
	return &Manager{
		device:      device,
		constraints: c,
	}
}

// OnChange registers fn to be called after every permission change. fn is
// called without the manager's lock held.
func (m *Manager) OnChange(fn func()) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.listener = fn
}

// Activate requests the device. A handle left over from an earlier attempt
// is released first, so repeated calls never accumulate handles. If the
// manager is closed or a newer attempt started while this one was pending,
// the result is released and ErrStale is returned.
func (m *Manager) Activate(ctx context.Context) error {
	m.mutex.Lock()
	if m.closed {
		m.mutex.Unlock()
		return ErrClosed
	}
	m.attempt++
	attempt := m.attempt
	previous := m.stream
	m.stream = nil
	m.permission = PermissionUnknown
	m.inFlight++
	m.mutex.Unlock()

	if previous != nil {
		stopStream(previous)
	}

	slog.Debug("Requesting capture device", "device", m.device.Name(), "attempt", attempt)
	stream, err := m.device.Acquire(ctx, m.constraints)

	m.mutex.Lock()
	m.inFlight--
	if m.closed || attempt != m.attempt {
		m.mutex.Unlock()
		if stream != nil {
			slog.Debug("Releasing superseded capture stream", "attempt", attempt)
			stopStream(stream)
		}
		return ErrStale
	}

	if err != nil {
		if stream != nil {
			stopStream(stream)
		}
		cerr := Classify(err)
		m.permission = PermissionDenied
		m.lastErr = cerr
		listener := m.listener
		m.mutex.Unlock()

		slog.Warn("Capture device unavailable", "kind", cerr.Kind, "error", err)
		notify(listener)
		return cerr
	}

	m.stream = stream
	m.permission = PermissionGranted
	m.lastErr = nil
	listener := m.listener
	m.mutex.Unlock()

	slog.Info("Capture device acquired", "device", m.device.Name(), "stream", stream.ID())
	notify(listener)
	return nil
}

// Retry re-attempts activation. It is Activate under the name the UI uses.
func (m *Manager) Retry(ctx context.Context) error {
	return m.Activate(ctx)
}

// Handle returns the live stream for borrowing, or nil.
func (m *Manager) Handle() Stream {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.stream
}

// Permission returns the result of the latest check.
func (m *Manager) Permission() Permission {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.permission
}

// Status returns a snapshot of the manager.
func (m *Manager) Status() Status {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	st := Status{
		Permission: m.permission,
		Acquiring:  m.inFlight > 0,
		Err:        m.lastErr,
	}
	if m.lastErr != nil {
		st.Message = UserMessage(m.lastErr)
	}
	if m.stream != nil {
		st.StreamID = m.stream.ID()
		st.Tracks = m.stream.Tracks()
	}
	return st
}

// SetTrackEnabled mutes or unmutes one track of the live stream.
func (m *Manager) SetTrackEnabled(kind TrackKind, enabled bool) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.stream == nil {
		return ErrNoStream
	}
	return m.stream.SetTrackEnabled(kind, enabled)
}

// ToggleTrack flips a track and returns its new enabled state.
func (m *Manager) ToggleTrack(kind TrackKind) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.stream == nil {
		return false, ErrNoStream
	}
	enabled := false
	for _, t := range m.stream.Tracks() {
		if t.Kind == kind {
			enabled = !t.Enabled
			break
		}
	}
	if err := m.stream.SetTrackEnabled(kind, enabled); err != nil {
		return false, err
	}
	return enabled, nil
}

// Reset releases the stream and forgets the permission outcome. Any
// acquisition still pending becomes stale.
func (m *Manager) Reset() {
	m.mutex.Lock()
	m.attempt++
	stream := m.stream
	m.stream = nil
	m.permission = PermissionUnknown
	m.lastErr = nil
	listener := m.listener
	m.mutex.Unlock()

	if stream != nil {
		stopStream(stream)
	}
	notify(listener)
}

// Release stops every track of the live stream. The permission outcome is
// kept.
func (m *Manager) Release() {
	m.mutex.Lock()
	stream := m.stream
	m.stream = nil
	m.mutex.Unlock()

	if stream != nil {
		stopStream(stream)
	}
}

// Close releases the stream and turns every later or pending acquisition
// into a no-op.
func (m *Manager) Close() {
	m.mutex.Lock()
	if m.closed {
		m.mutex.Unlock()
		return
	}
	m.closed = true
	m.attempt++
	stream := m.stream
	m.stream = nil
	m.listener = nil
	m.mutex.Unlock()

	if stream != nil {
		stopStream(stream)
	}
	slog.Debug("Capture manager closed")
}

func stopStream(s Stream) {
	if err := s.Stop(); err != nil {
		slog.Warn("Failed to stop capture stream", "stream", s.ID(), "error", err)
	}
}

func notify(fn func()) {
	if fn != nil {
		fn()
	}
}
