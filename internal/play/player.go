package play

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/audiolibrelab/rehearse/internal/config"
	"github.com/audiolibrelab/rehearse/internal/recording"
)

type Player struct {
	cfg      *config.Config
	lookPath func(string) (string, error)
}

func New(cfg *config.Config) *Player {
	return &Player{cfg: cfg, lookPath: exec.LookPath}
}

// Locate returns the saved recording of a session. path wins when set,
// otherwise the file is looked up in the output directory.
func (p *Player) Locate(sessionID, path string) (string, error) {
	if path == "" {
		path = recording.Path(p.cfg.Output.Directory, sessionID, p.cfg.Capture.MimeType)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("recording not found: %s", path)
	}
	return path, nil
}

// Play opens a recording in the first available video player.
func (p *Player) Play(file string) error {
	fmt.Printf("Playing: %s\n", file)

	player, err := p.findVideoPlayer()
	if err != nil {
		return fmt.Errorf("no suitable video player found: %w", err)
	}

	cmd := exec.Command(player, p.playerArgs(player, file)...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("playback failed with %s: %w", player, err)
	}

	fmt.Println("Playback completed")
	return nil
}

func (p *Player) playerArgs(player, file string) []string {
	switch player {
	case "vlc":
		return []string{"--play-and-exit", file}
	case "ffplay":
		args := []string{"-autoexit"}
		if !p.cfg.Settings.VideoEnabled() {
			args = append(args, "-nodisp")
		}
		return append(args, file)
	default:
		return []string{file}
	}
}

func (p *Player) findVideoPlayer() (string, error) {
	players := []string{"mpv", "vlc", "ffplay"}

	for _, player := range players {
		if _, err := p.lookPath(player); err == nil {
			return player, nil
		}
	}

	return "", fmt.Errorf("no video player found (tried: %s)", strings.Join(players, ", "))
}
