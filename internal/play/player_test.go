package play

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/audiolibrelab/rehearse/internal/config"
)

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Output.Directory = dir
	cfg.Capture.MimeType = "video/webm"

	if err := os.WriteFile(filepath.Join(dir, "abc.webm"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	p := New(cfg)
	got, err := p.Locate("abc", "")
	if err != nil {
		t.Fatalf("Expected the recording to be found: %v", err)
	}
	if got != filepath.Join(dir, "abc.webm") {
		t.Errorf("Unexpected path %s", got)
	}

	if _, err := p.Locate("missing", ""); err == nil {
		t.Error("Expected an error for a missing recording")
	}
}

func TestFindVideoPlayerPreference(t *testing.T) {
	p := New(config.Default())
	p.lookPath = func(name string) (string, error) {
		if name == "ffplay" || name == "vlc" {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("not found")
	}

	player, err := p.findVideoPlayer()
	if err != nil {
		t.Fatal(err)
	}
	if player != "vlc" {
		t.Errorf("Expected vlc, got %s", player)
	}

	p.lookPath = func(string) (string, error) { return "", errors.New("not found") }
	if _, err := p.findVideoPlayer(); err == nil {
		t.Error("Expected an error with no player installed")
	}
}

func TestPlayerArgs(t *testing.T) {
	p := New(config.Default())

	args := p.playerArgs("vlc", "a.webm")
	if len(args) != 2 || args[0] != "--play-and-exit" {
		t.Errorf("Unexpected vlc args %v", args)
	}
	args = p.playerArgs("ffplay", "a.webm")
	if len(args) != 2 || args[0] != "-autoexit" {
		t.Errorf("Unexpected ffplay args %v", args)
	}
}
