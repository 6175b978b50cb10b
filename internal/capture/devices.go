package capture

import (
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Inventory lists the capture endpoints visible on this host.
type Inventory struct {
	Cameras       []string
	Microphones   []AudioSource
	CameraErr     error
	MicrophoneErr error
}

// AudioSource is one PulseAudio/PipeWire source.
type AudioSource struct {
	Index  string
	Name   string
	Driver string
	State  string
}

// ListDevices enumerates v4l2 camera nodes and PulseAudio sources. Either
// half may fail independently.
func ListDevices() Inventory {
	var inv Inventory

	cams, err := filepath.Glob("/dev/video*")
	if err != nil {
		inv.CameraErr = fmt.Errorf("failed to list video devices: %w", err)
	}
	sort.Strings(cams)
	inv.Cameras = cams

	cmd := exec.Command("pactl", "list", "short", "sources")
	output, err := cmd.Output()
	if err != nil {
		slog.Debug("pactl failed", "error", err)
		inv.MicrophoneErr = fmt.Errorf("failed to list audio sources: %w", err)
		return inv
	}
	inv.Microphones = parsePactlSources(string(output))
	return inv
}

// parsePactlSources parses `pactl list short sources`, skipping monitor
// sources of sinks.
func parsePactlSources(output string) []AudioSource {
	var sources []AudioSource
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			fields = strings.Fields(line)
		}
		if len(fields) < 2 {
			continue
		}
		if strings.HasSuffix(fields[1], ".monitor") {
			continue
		}
		src := AudioSource{Index: fields[0], Name: fields[1]}
		if len(fields) > 2 {
			src.Driver = fields[2]
		}
		if len(fields) > 4 {
			src.State = fields[4]
		}
		sources = append(sources, src)
	}
	return sources
}
