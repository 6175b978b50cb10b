// Package recording turns a borrowed capture stream into begin/end
// recording segments and buffers what the encoder produces.
package recording

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/audiolibrelab/rehearse/internal/capture"
	"github.com/audiolibrelab/rehearse/internal/clock"
)

// ErrAlreadyActive is returned by Begin while a segment is recording.
var ErrAlreadyActive = errors.New("recorder already active")

// Options configures the encoder of every segment.
type Options struct {
	MimeType  string
	Timeslice time.Duration
}

// Recording is a finalized segment.
type Recording struct {
	MimeType  string
	Chunks    [][]byte
	Bytes     int
	StartedAt time.Time
	Duration  time.Duration
}

// Controller owns at most one active encoder. Only the active encoder's
// data callback appends chunks, and only under the controller's lock.
type Controller struct {
	clock clock.Clock
	opts  Options

	mutex     sync.Mutex
	encoder   capture.Encoder
	streamID  string
	stopping  bool
	gen       uint64
	chunks    [][]byte
	bytes     int
	startedAt time.Time
}

// NewController creates an idle controller.
func NewController(c clock.Clock, opts Options) *Controller {
	if opts.MimeType == "" {
		opts.MimeType = "video/webm;codecs=vp9,opus"
	}
	if opts.Timeslice <= 0 {
		opts.Timeslice = time.Second
	}
	return &Controller{clock: c, opts: opts}
}

// Begin starts recording stream. Encoder failures are returned as
// capture.ErrRecorderStartFailure and leave the controller idle.
func (r *Controller) Begin(stream capture.Stream) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.encoder != nil || r.stopping {
		slog.Warn("Recorder already active, ignoring begin", "stream", r.streamID)
		return ErrAlreadyActive
	}
	if stream == nil {
		return &capture.Error{Kind: capture.KindRecorderStartFailure, Err: capture.ErrNoStream}
	}

	enc, err := stream.NewEncoder(capture.EncoderOptions{
		MimeType:  r.opts.MimeType,
		Timeslice: r.opts.Timeslice,
	})
	if err != nil {
		return &capture.Error{Kind: capture.KindRecorderStartFailure, Err: fmt.Errorf("failed to create encoder: %w", err)}
	}

	r.gen++
	gen := r.gen
	if err := enc.Start(func(chunk capture.Chunk) {
		r.append(gen, chunk)
	}); err != nil {
		r.gen++
		return &capture.Error{Kind: capture.KindRecorderStartFailure, Err: fmt.Errorf("failed to start encoder: %w", err)}
	}

	r.encoder = enc
	r.streamID = stream.ID()
	r.chunks = nil
	r.bytes = 0
	r.startedAt = r.clock.Now()

	slog.Info("Recording started", "stream", r.streamID, "mime_type", r.opts.MimeType)
	return nil
}

func (r *Controller) append(gen uint64, chunk capture.Chunk) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if gen != r.gen || len(chunk.Data) == 0 {
		return
	}
	r.chunks = append(r.chunks, chunk.Data)
	r.bytes += len(chunk.Data)
}

// End stops the active encoder and returns everything it produced. Without
// an active segment End returns nil, nil.
func (r *Controller) End() (*Recording, error) {
	r.mutex.Lock()
	enc := r.encoder
	if enc == nil {
		r.mutex.Unlock()
		return nil, nil
	}
	r.encoder = nil
	r.stopping = true
	r.mutex.Unlock()

	// The encoder may deliver its last chunk while stopping.
	stopErr := enc.Stop()

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.gen++
	r.stopping = false
	rec := &Recording{
		MimeType:  r.opts.MimeType,
		Chunks:    r.chunks,
		Bytes:     r.bytes,
		StartedAt: r.startedAt,
		Duration:  r.clock.Now().Sub(r.startedAt),
	}
	r.chunks = nil
	r.bytes = 0

	slog.Info("Recording finished", "stream", r.streamID, "chunks", len(rec.Chunks), "bytes", rec.Bytes)
	if stopErr != nil {
		return rec, fmt.Errorf("failed to stop encoder: %w", stopErr)
	}
	return rec, nil
}

// Active reports whether a segment is recording.
func (r *Controller) Active() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.encoder != nil
}

// Stats returns the chunk count and byte total of the active segment.
func (r *Controller) Stats() (chunks, bytes int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.chunks), r.bytes
}
