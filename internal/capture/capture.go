// Package capture owns the camera and microphone. A Device backend acquires a
// combined audio+video Stream, the Manager keeps at most one live Stream and
// releases it on every teardown path.
package capture

import (
	"context"
	"time"

	"github.com/audiolibrelab/rehearse/internal/config"
)

// TrackKind identifies one track of a capture stream.
type TrackKind string

const (
	TrackVideo TrackKind = "video"
	TrackAudio TrackKind = "audio"
)

// Constraints are the quality hints passed to the device. They are ideal
// values; a backend uses the closest it can get.
type Constraints struct {
	Video            bool
	Audio            bool
	Width            int
	Height           int
	FacingMode       string
	EchoCancellation bool
	NoiseSuppression bool
	SampleRate       int
}

// DefaultConstraints matches what the interview page asks the browser for.
func DefaultConstraints() Constraints {
	return Constraints{
		Video:            true,
		Audio:            true,
		Width:            1280,
		Height:           720,
		FacingMode:       "user",
		EchoCancellation: true,
		NoiseSuppression: true,
		SampleRate:       44100,
	}
}

// ConstraintsFromConfig builds constraints from the capture section and the
// interview settings of a profile.
func ConstraintsFromConfig(cfg *config.Config) Constraints {
	c := DefaultConstraints()
	c.Video = cfg.Settings.VideoEnabled()
	c.Audio = cfg.Settings.AudioEnabled()
	if cfg.Capture.Width > 0 {
		c.Width = cfg.Capture.Width
	}
	if cfg.Capture.Height > 0 {
		c.Height = cfg.Capture.Height
	}
	if cfg.Capture.FacingMode != "" {
		c.FacingMode = cfg.Capture.FacingMode
	}
	if cfg.Capture.SampleRate > 0 {
		c.SampleRate = cfg.Capture.SampleRate
	}
	c.EchoCancellation = cfg.Capture.EchoCancellationEnabled()
	c.NoiseSuppression = cfg.Capture.NoiseSuppressionEnabled()
	return c
}

// TrackState describes a track of a live stream.
type TrackState struct {
	Kind    TrackKind `json:"kind"`
	Label   string    `json:"label"`
	Enabled bool      `json:"enabled"`
	Live    bool      `json:"live"`
}

// Device is the capability interface of a capture backend.
type Device interface {
	// Acquire requests combined capture. It may block on an external
	// decision and must honour ctx.
	Acquire(ctx context.Context, c Constraints) (Stream, error)

	// Name describes the backend for logs.
	Name() string
}

// Stream is a live capture handle.
type Stream interface {
	ID() string
	Tracks() []TrackState

	// SetTrackEnabled mutes or unmutes a track without releasing the device.
	SetTrackEnabled(kind TrackKind, enabled bool) error

	// NewEncoder creates a recorder reading from this stream.
	NewEncoder(opts EncoderOptions) (Encoder, error)

	// Stop ends every track. It is safe to call more than once.
	Stop() error
}

// EncoderOptions configure a recorder created on a stream.
type EncoderOptions struct {
	MimeType  string
	Timeslice time.Duration
}

// Chunk is one buffered piece of encoded media.
type Chunk struct {
	Data []byte
	At   time.Time
}

// Encoder turns a stream into a sequence of chunks.
type Encoder interface {
	// Start begins encoding. onData is called for each non-empty chunk.
	Start(onData func(Chunk)) error

	// Stop flushes the encoder. When it returns, onData will not be
	// called again.
	Stop() error
}
