// Package capturetest provides an in-memory capture device for tests.
package capturetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/audiolibrelab/rehearse/internal/capture"
)

// Device is a scripted capture.Device.
type Device struct {
	mu           sync.Mutex
	failures     []error
	partial      bool
	encoderErr   error
	startErr     error
	hold         chan struct{}
	entered      chan struct{}
	blocked      []chan struct{}
	acquisitions int
	streams      []*Stream
}

// NewDevice returns a device that grants every request.
func NewDevice() *Device {
	return &Device{}
}

// Name implements capture.Device.
func (d *Device) Name() string {
	return "fake"
}

// FailNext makes the next len(errs) acquisitions fail with errs in order.
func (d *Device) FailNext(errs ...error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = append(d.failures, errs...)
}

// ReturnPartialOnFailure makes failing acquisitions also return a live
// stream, the way a backend that half-opened the device would.
func (d *Device) ReturnPartialOnFailure() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.partial = true
}

// FailEncoders makes NewEncoder fail with err on every stream.
func (d *Device) FailEncoders(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.encoderErr = err
}

// FailEncoderStarts makes Encoder.Start fail with err, the way an encoder
// process that exits right after launch does.
func (d *Device) FailEncoderStarts(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.startErr = err
}

// Hold makes the next acquisition block until Unhold is called. The
// returned channel is closed once the acquisition is blocked.
func (d *Device) Hold() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hold = make(chan struct{})
	d.entered = make(chan struct{})
	return d.entered
}

// Unhold releases every held acquisition, blocked or not yet started.
func (d *Device) Unhold() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.hold != nil {
		close(d.hold)
		d.hold, d.entered = nil, nil
	}
	for _, ch := range d.blocked {
		close(ch)
	}
	d.blocked = nil
}

// Acquire implements capture.Device.
func (d *Device) Acquire(ctx context.Context, c capture.Constraints) (capture.Stream, error) {
	d.mu.Lock()
	hold, entered := d.hold, d.entered
	if hold != nil {
		d.hold, d.entered = nil, nil
		d.blocked = append(d.blocked, hold)
	}
	d.mu.Unlock()

	if hold != nil {
		close(entered)
		select {
		case <-hold:
		case <-ctx.Done():
			d.mu.Lock()
			d.forget(hold)
			d.mu.Unlock()
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.acquisitions++
	var err error
	if len(d.failures) > 0 {
		err = d.failures[0]
		d.failures = d.failures[1:]
	}
	if err != nil && !d.partial {
		return nil, err
	}

	s := &Stream{
		id:     fmt.Sprintf("fake-%d", d.acquisitions),
		device: d,
		tracks: map[capture.TrackKind]bool{},
	}
	if c.Video {
		s.tracks[capture.TrackVideo] = true
	}
	if c.Audio {
		s.tracks[capture.TrackAudio] = true
	}
	d.streams = append(d.streams, s)
	return s, err
}

// forget drops a blocked channel that Unhold no longer needs to close.
func (d *Device) forget(hold chan struct{}) {
	for i, ch := range d.blocked {
		if ch == hold {
			d.blocked = append(d.blocked[:i], d.blocked[i+1:]...)
			return
		}
	}
}

// Acquisitions returns how many times Acquire reached the device.
func (d *Device) Acquisitions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acquisitions
}

// Live returns how many streams are not stopped.
func (d *Device) Live() int {
	d.mu.Lock()
	streams := append([]*Stream(nil), d.streams...)
	d.mu.Unlock()

	n := 0
	for _, s := range streams {
		if !s.Stopped() {
			n++
		}
	}
	return n
}

// Streams returns every stream handed out so far.
func (d *Device) Streams() []*Stream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Stream(nil), d.streams...)
}

// Last returns the most recent stream, or nil.
func (d *Device) Last() *Stream {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.streams) == 0 {
		return nil
	}
	return d.streams[len(d.streams)-1]
}

// Stream is a fake capture.Stream.
type Stream struct {
	id     string
	device *Device

	mu       sync.Mutex
	tracks   map[capture.TrackKind]bool
	stopped  bool
	encoders []*Encoder
}

func (s *Stream) ID() string {
	return s.id
}

func (s *Stream) Tracks() []capture.TrackState {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []capture.TrackState
	for _, kind := range []capture.TrackKind{capture.TrackVideo, capture.TrackAudio} {
		enabled, ok := s.tracks[kind]
		if !ok {
			continue
		}
		out = append(out, capture.TrackState{
			Kind:    kind,
			Label:   "fake " + string(kind),
			Enabled: enabled,
			Live:    !s.stopped,
		})
	}
	return out
}

func (s *Stream) SetTrackEnabled(kind capture.TrackKind, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return capture.ErrNoStream
	}
	if _, ok := s.tracks[kind]; !ok {
		return fmt.Errorf("no %s track", kind)
	}
	s.tracks[kind] = enabled
	return nil
}

func (s *Stream) NewEncoder(opts capture.EncoderOptions) (capture.Encoder, error) {
	s.device.mu.Lock()
	encErr, startErr := s.device.encoderErr, s.device.startErr
	s.device.mu.Unlock()
	if encErr != nil {
		return nil, encErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, capture.ErrNoStream
	}
	e := &Encoder{opts: opts, startErr: startErr}
	s.encoders = append(s.encoders, e)
	return e, nil
}

func (s *Stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

// Stopped reports whether Stop was called.
func (s *Stream) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// TrackEnabled reports the enabled flag of a track.
func (s *Stream) TrackEnabled(kind capture.TrackKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracks[kind]
}

// Encoders returns every encoder created on the stream.
func (s *Stream) Encoders() []*Encoder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Encoder(nil), s.encoders...)
}

// Encoder is a fake capture.Encoder whose chunks are pushed by the test.
type Encoder struct {
	opts     capture.EncoderOptions
	startErr error

	mu      sync.Mutex
	onData  func(capture.Chunk)
	started bool
	stopped bool
}

func (e *Encoder) Start(onData func(capture.Chunk)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return fmt.Errorf("encoder already started")
	}
	if e.startErr != nil {
		return e.startErr
	}
	e.started = true
	e.onData = onData
	return nil
}

func (e *Encoder) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	return nil
}

// Emit delivers a chunk to the recorder if the encoder is running.
func (e *Encoder) Emit(data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started || e.stopped || len(data) == 0 {
		return
	}
	e.onData(capture.Chunk{Data: data, At: time.Now()})
}

// Active reports whether the encoder is started and not stopped.
func (e *Encoder) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started && !e.stopped
}

// Options returns the options the encoder was created with.
func (e *Encoder) Options() capture.EncoderOptions {
	return e.opts
}
