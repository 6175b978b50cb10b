package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/audiolibrelab/rehearse/internal/config"
	"github.com/google/uuid"
)

// FFmpegDevice captures a v4l2 camera and a PulseAudio source through an
// ffmpeg child process.
type FFmpegDevice struct {
	Binary       string
	VideoDevice  string
	AudioSource  string
	ProbeTimeout time.Duration

	logWriter io.Writer
}

// NewFFmpegDevice creates a device from the capture configuration.
func NewFFmpegDevice(cfg config.CaptureConfig, logWriter io.Writer) *FFmpegDevice {
	if logWriter == nil {
		logWriter = io.Discard
	}
	d := &FFmpegDevice{
		Binary:       cfg.FFmpegBinary,
		VideoDevice:  cfg.VideoDevice,
		AudioSource:  cfg.AudioSource,
		ProbeTimeout: time.Duration(cfg.ProbeTimeoutSeconds) * time.Second,
		logWriter:    logWriter,
	}
	if d.Binary == "" {
		d.Binary = "ffmpeg"
	}
	if d.VideoDevice == "" {
		d.VideoDevice = "/dev/video0"
	}
	if d.AudioSource == "" {
		d.AudioSource = "default"
	}
	if d.ProbeTimeout <= 0 {
		d.ProbeTimeout = 10 * time.Second
	}
	return d
}

// Name implements Device.
func (d *FFmpegDevice) Name() string {
	return fmt.Sprintf("ffmpeg(%s,%s)", d.VideoDevice, d.AudioSource)
}

// Acquire probes the camera and microphone with a short ffmpeg run. The
// probe classifies failures the same way a browser permission prompt does.
func (d *FFmpegDevice) Acquire(ctx context.Context, c Constraints) (Stream, error) {
	if !c.Video && !c.Audio {
		return nil, &Error{Kind: KindDeviceNotFound, Err: errors.New("neither video nor audio requested")}
	}
	if _, err := exec.LookPath(d.Binary); err != nil {
		return nil, &Error{Kind: KindUnknown, Err: fmt.Errorf("%s not found: %w", d.Binary, err)}
	}
	if c.Video {
		if _, err := os.Stat(d.VideoDevice); err != nil {
			return nil, Classify(err)
		}
	}

	probeCtx, cancel := context.WithTimeout(ctx, d.ProbeTimeout)
	defer cancel()

	args := append([]string{"-hide_banner", "-loglevel", "error"}, d.inputArgs(c)...)
	args = append(args, "-t", "0.2", "-f", "null", "-")

	slog.Debug("Probing capture device", "command", d.Binary+" "+strings.Join(args, " "))

	cmd := exec.CommandContext(probeCtx, d.Binary, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := probeCtx.Err(); ctxErr != nil {
			return nil, &Error{Kind: KindUnknown, Err: fmt.Errorf("device probe timed out: %w", ctxErr)}
		}
		return nil, classifyFFmpegOutput(stderr.String(), err)
	}

	s := &ffmpegStream{
		id:          uuid.NewString(),
		device:      d,
		constraints: c,
		enabled:     map[TrackKind]bool{},
	}
	if c.Video {
		s.enabled[TrackVideo] = true
	}
	if c.Audio {
		s.enabled[TrackAudio] = true
	}
	return s, nil
}

// inputArgs builds the ffmpeg input section for the constraints.
func (d *FFmpegDevice) inputArgs(c Constraints) []string {
	var args []string
	if c.Video {
		args = append(args,
			"-f", "v4l2",
			"-video_size", fmt.Sprintf("%dx%d", c.Width, c.Height),
			"-i", d.VideoDevice,
		)
	}
	if c.Audio {
		args = append(args,
			"-f", "pulse",
			"-sample_rate", fmt.Sprintf("%d", c.SampleRate),
			"-i", d.AudioSource,
		)
	}
	return args
}

// classifyFFmpegOutput maps ffmpeg's stderr onto the capture taxonomy.
func classifyFFmpegOutput(stderr string, err error) *Error {
	cause := fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr))
	lower := strings.ToLower(stderr)

	switch {
	case strings.Contains(lower, "permission denied"), strings.Contains(lower, "access denied"):
		return &Error{Kind: KindPermissionDenied, Err: cause}
	case strings.Contains(lower, "device or resource busy"):
		return &Error{Kind: KindDeviceBusy, Err: cause}
	case strings.Contains(lower, "no such file or directory"),
		strings.Contains(lower, "no such device"),
		strings.Contains(lower, "cannot open video device"),
		strings.Contains(lower, "no such entity"),
		strings.Contains(lower, "connection refused"):
		return &Error{Kind: KindDeviceNotFound, Err: cause}
	}
	return &Error{Kind: KindUnknown, Err: cause}
}

// codecArgs returns the ffmpeg output arguments for a recorder mime type.
func codecArgs(mimeType string) ([]string, error) {
	switch strings.ReplaceAll(strings.ToLower(mimeType), " ", "") {
	case "video/webm;codecs=vp9,opus":
		return []string{"-c:v", "libvpx-vp9", "-deadline", "realtime", "-c:a", "libopus", "-f", "webm"}, nil
	case "video/webm", "video/webm;codecs=vp8,opus":
		return []string{"-c:v", "libvpx", "-deadline", "realtime", "-c:a", "libopus", "-f", "webm"}, nil
	case "video/x-matroska", "video/x-matroska;codecs=avc1,opus":
		return []string{"-c:v", "libx264", "-preset", "ultrafast", "-c:a", "libopus", "-f", "matroska"}, nil
	case "audio/webm", "audio/webm;codecs=opus":
		return []string{"-vn", "-c:a", "libopus", "-f", "webm"}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
}

type ffmpegStream struct {
	id          string
	device      *FFmpegDevice
	constraints Constraints

	mutex   sync.Mutex
	enabled map[TrackKind]bool
	stopped bool
	encoder *ffmpegEncoder
}

func (s *ffmpegStream) ID() string {
	return s.id
}

func (s *ffmpegStream) Tracks() []TrackState {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var tracks []TrackState
	if on, ok := s.enabled[TrackVideo]; ok {
		tracks = append(tracks, TrackState{Kind: TrackVideo, Label: s.device.VideoDevice, Enabled: on, Live: !s.stopped})
	}
	if on, ok := s.enabled[TrackAudio]; ok {
		tracks = append(tracks, TrackState{Kind: TrackAudio, Label: s.device.AudioSource, Enabled: on, Live: !s.stopped})
	}
	return tracks
}

// SetTrackEnabled flips a track. With a running encoder the change is sent
// to ffmpeg's filter graph, so it applies to the segment being recorded.
func (s *ffmpegStream) SetTrackEnabled(kind TrackKind, enabled bool) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.stopped {
		return ErrNoStream
	}
	previous, ok := s.enabled[kind]
	if !ok {
		return fmt.Errorf("stream has no %s track", kind)
	}
	s.enabled[kind] = enabled
	if s.encoder == nil || previous == enabled {
		return nil
	}
	if err := s.encoder.sendFilterCommand(muteCommand(kind, enabled)); err != nil {
		s.enabled[kind] = previous
		return fmt.Errorf("failed to toggle %s: %w", kind, err)
	}
	slog.Debug("Track toggled on running encoder", "track", kind, "enabled", enabled)
	return nil
}

func (s *ffmpegStream) NewEncoder(opts EncoderOptions) (Encoder, error) {
	codec, err := codecArgs(opts.MimeType)
	if err != nil {
		return nil, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.stopped {
		return nil, ErrNoStream
	}
	if s.encoder != nil && s.encoder.running() {
		return nil, fmt.Errorf("stream %s already has a running encoder", s.id)
	}

	timeslice := opts.Timeslice
	if timeslice <= 0 {
		timeslice = time.Second
	}
	s.encoder = &ffmpegEncoder{
		binary:        s.device.Binary,
		stream:        s,
		codec:         codec,
		timeslice:     timeslice,
		startupWindow: encoderStartupWindow,
		logWriter:     s.device.logWriter,
	}
	return s.encoder, nil
}

// encoderArgs builds the full encoder command line from the current track
// state.
func (s *ffmpegStream) encoderArgs(codec []string) ([]string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.stopped {
		return nil, ErrNoStream
	}
	args := []string{"-hide_banner", "-loglevel", "warning"}
	args = append(args, s.device.inputArgs(s.constraints)...)
	args = append(args, s.filterArgs()...)
	args = append(args, codec...)
	return append(args, "pipe:1"), nil
}

// Named filter instances that stay in the graph for the whole segment and
// are switched at runtime.
const (
	videoMuteFilter = "drawbox@vmute"
	audioMuteFilter = "volume@amute"
)

// muteCommand returns the runtime filter command for a track state.
func muteCommand(kind TrackKind, enabled bool) string {
	if kind == TrackVideo {
		if enabled {
			return videoMuteFilter + " -1 enable 0"
		}
		return videoMuteFilter + " -1 enable 1"
	}
	if enabled {
		return audioMuteFilter + " -1 volume 1"
	}
	return audioMuteFilter + " -1 volume 0"
}

// filterArgs installs the mute filters in their current state and applies
// the noise suppression hint. ffmpeg has no echo canceller for a single
// capture input, so EchoCancellation is not applied here. Callers hold
// s.mutex.
func (s *ffmpegStream) filterArgs() []string {
	var args []string
	if on, ok := s.enabled[TrackVideo]; ok {
		enable := "1"
		if on {
			enable = "0"
		}
		args = append(args, "-vf", fmt.Sprintf("%s=color=black:t=fill:enable=%s", videoMuteFilter, enable))
	}
	if on, ok := s.enabled[TrackAudio]; ok {
		var filters []string
		if s.constraints.NoiseSuppression {
			filters = append(filters, "afftdn")
		}
		volume := "0"
		if on {
			volume = "1"
		}
		filters = append(filters, fmt.Sprintf("%s=volume=%s", audioMuteFilter, volume))
		args = append(args, "-af", strings.Join(filters, ","))
		args = append(args, "-ar", fmt.Sprintf("%d", s.constraints.SampleRate))
	}
	return args
}

func (s *ffmpegStream) Stop() error {
	s.mutex.Lock()
	if s.stopped {
		s.mutex.Unlock()
		return nil
	}
	s.stopped = true
	enc := s.encoder
	s.encoder = nil
	s.mutex.Unlock()

	if enc != nil {
		return enc.Stop()
	}
	return nil
}

// encoderStartupWindow bounds how long Start waits for ffmpeg to either
// produce output or exit.
const encoderStartupWindow = 2 * time.Second

type ffmpegEncoder struct {
	binary        string
	stream        *ffmpegStream
	codec         []string
	timeslice     time.Duration
	startupWindow time.Duration
	logWriter     io.Writer

	mutex     sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stderrBuf strings.Builder
	done      chan struct{}
}

func (e *ffmpegEncoder) running() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.cmd != nil
}

// Start launches ffmpeg and waits until it writes its first bytes, exits,
// or the startup window passes. An exit inside the window is a start
// failure classified from ffmpeg's stderr.
func (e *ffmpegEncoder) Start(onData func(Chunk)) error {
	args, err := e.stream.encoderArgs(e.codec)
	if err != nil {
		return err
	}

	e.mutex.Lock()
	if e.cmd != nil {
		e.mutex.Unlock()
		return fmt.Errorf("encoder already started")
	}

	slog.Info("Starting FFmpeg recorder", "command", e.binary+" "+strings.Join(args, " "))

	cmd := exec.Command(e.binary, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		e.mutex.Unlock()
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		e.mutex.Unlock()
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		e.mutex.Unlock()
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		e.mutex.Unlock()
		return fmt.Errorf("failed to start FFmpeg: %w", err)
	}

	done := make(chan struct{})
	e.cmd = cmd
	e.stdin = stdin
	e.done = done
	e.mutex.Unlock()

	data := make(chan []byte, 16)
	ready := make(chan struct{})
	stderrDone := make(chan struct{})
	go e.readStdout(stdout, data, ready)
	go e.readStderr(stderr, stderrDone)
	go e.flushLoop(data, done, onData)

	select {
	case <-ready:
		return nil
	case <-time.After(e.startupWindow):
		slog.Debug("FFmpeg produced no output yet, assuming it is running")
		return nil
	case <-done:
	}

	// stdout closed before any output: ffmpeg gave up.
	<-stderrDone
	waitErr := cmd.Wait()
	if waitErr == nil {
		waitErr = errors.New("exited without output")
	}

	e.mutex.Lock()
	e.cmd = nil
	e.stdin = nil
	output := e.stderrBuf.String()
	e.mutex.Unlock()

	slog.Warn("FFmpeg recorder exited during startup", "error", waitErr)
	return fmt.Errorf("FFmpeg exited during startup: %w", classifyFFmpegOutput(output, waitErr))
}

// sendFilterCommand queues a filter command through ffmpeg's interactive
// 'c' key, read from stdin.
func (e *ffmpegEncoder) sendFilterCommand(command string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.cmd == nil || e.stdin == nil {
		return nil
	}
	if _, err := io.WriteString(e.stdin, "c"+command+"\n"); err != nil {
		return fmt.Errorf("failed to send filter command: %w", err)
	}
	return nil
}

// readStdout forwards raw encoder output until the pipe closes. ready is
// closed on the first bytes.
func (e *ffmpegEncoder) readStdout(pipe io.ReadCloser, data chan<- []byte, ready chan<- struct{}) {
	defer close(data)
	reader := bufio.NewReaderSize(pipe, 64*1024)
	buf := make([]byte, 64*1024)
	first := true
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			data <- chunk
			if first {
				close(ready)
				first = false
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Debug("FFmpeg stdout closed", "error", err)
			}
			return
		}
	}
}

func (e *ffmpegEncoder) readStderr(pipe io.ReadCloser, finished chan<- struct{}) {
	defer close(finished)
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		line := scanner.Text()
		e.mutex.Lock()
		e.stderrBuf.WriteString(line + "\n")
		e.mutex.Unlock()
		fmt.Fprintln(e.logWriter, line)
		slog.Debug("FFmpeg output", "stream", "stderr", "line", line)
	}
}

// flushLoop is the only caller of onData: it batches stdout into one chunk
// per timeslice and emits the remainder once the pipe closes.
func (e *ffmpegEncoder) flushLoop(data <-chan []byte, done chan<- struct{}, onData func(Chunk)) {
	defer close(done)

	ticker := time.NewTicker(e.timeslice)
	defer ticker.Stop()

	var pending []byte
	flush := func() {
		if len(pending) == 0 {
			return
		}
		onData(Chunk{Data: pending, At: time.Now()})
		pending = nil
	}

	for {
		select {
		case b, ok := <-data:
			if !ok {
				flush()
				return
			}
			pending = append(pending, b...)
		case <-ticker.C:
			flush()
		}
	}
}

// Stop interrupts ffmpeg so it finalizes the container, then waits for the
// last chunk to be delivered.
func (e *ffmpegEncoder) Stop() error {
	e.mutex.Lock()
	cmd := e.cmd
	done := e.done
	stdin := e.stdin
	e.stdin = nil
	e.mutex.Unlock()

	if cmd == nil {
		return nil
	}

	if stdin != nil {
		stdin.Close()
	}
	if cmd.Process != nil {
		slog.Debug("Sending SIGINT to FFmpeg process")
		if err := cmd.Process.Signal(os.Interrupt); err != nil {
			slog.Debug("Failed to send interrupt to FFmpeg, killing", "error", err)
			cmd.Process.Kill()
		}
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
	}()

	var result error
	select {
	case err := <-waitErr:
		result = interpretExit(err)
	case <-time.After(5 * time.Second):
		slog.Warn("FFmpeg did not exit within timeout, force killing")
		cmd.Process.Kill()
		<-waitErr
	}

	<-done

	e.mutex.Lock()
	e.cmd = nil
	if result != nil {
		slog.Debug("FFmpeg stderr", "output", e.stderrBuf.String())
	}
	e.mutex.Unlock()
	return result
}

func interpretExit(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// 255 is ffmpeg's exit code after a clean interrupt.
		if exitErr.ExitCode() == 255 {
			return nil
		}
		if exitErr.ProcessState != nil {
			state := exitErr.ProcessState.String()
			if state == "signal: interrupt" || state == "signal: killed" {
				return nil
			}
		}
	}
	return fmt.Errorf("FFmpeg process failed: %w", err)
}
