package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/audiolibrelab/rehearse/internal/capture"
	"github.com/audiolibrelab/rehearse/internal/capture/capturetest"
	"github.com/audiolibrelab/rehearse/internal/clock"
	"github.com/audiolibrelab/rehearse/internal/config"
	"github.com/audiolibrelab/rehearse/internal/session"
	"github.com/audiolibrelab/rehearse/internal/store"
)

const testConfig = `
active_config: default
definitions:
    questions:
        - id: 1
          question: Tell me about yourself
          time_limit: 60
        - id: 2
          question: Why this role?
          time_limit: 30
configs:
    default:
        settings:
            interview_type: technical
        questions:
            - ref: 1
            - ref: 2
    short:
        questions:
            - ref: 2
              time_limit: 10
`

type fixture struct {
	svc   *InterviewService
	dev   *capturetest.Device
	clk   *clock.Fake
	store *store.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	configFile := filepath.Join(t.TempDir(), "rehearse.yaml")
	if err := os.WriteFile(configFile, []byte(testConfig), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.LoadWithProfile(configFile, "")
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	f := &fixture{
		dev:   capturetest.NewDevice(),
		clk:   clock.NewFake(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)),
		store: st,
	}
	f.svc = NewWithDeps(cfg, configFile, nil, Deps{Device: f.dev, Clock: f.clk, Store: st})
	t.Cleanup(func() { f.svc.Close() })
	f.svc.Wait()
	return f
}

func TestSessionIsPersisted(t *testing.T) {
	f := newFixture(t)

	if err := f.svc.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	f.clk.Advance(45 * time.Second)
	if err := f.svc.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	f.svc.Wait()

	history, err := f.svc.History(context.Background(), store.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Fatalf("Expected 1 stored session, got %d", len(history))
	}
	if history[0].ElapsedSeconds != 45 || history[0].InterviewType != "technical" {
		t.Errorf("Unexpected stored session %+v", history[0])
	}

	got, err := f.svc.GetSession(context.Background(), history[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != f.svc.Snapshot().SessionID {
		t.Errorf("Expected stored id to match the session, got %s", got.ID)
	}
}

func TestLastErrorTracking(t *testing.T) {
	f := newFixture(t)

	if err := f.svc.Pause(); !errors.Is(err, session.ErrInvalidTransition) {
		t.Errorf("Expected an invalid transition, got: %v", err)
	}
	if f.svc.GetLastError() == "" {
		t.Error("Expected the last error to be recorded")
	}

	if err := f.svc.Start(); err != nil {
		t.Fatal(err)
	}
	if f.svc.GetLastError() != "" {
		t.Errorf("Expected a successful operation to clear the error, got %q", f.svc.GetLastError())
	}
}

func TestToggleTrack(t *testing.T) {
	f := newFixture(t)

	enabled, err := f.svc.ToggleTrack(capture.TrackVideo)
	if err != nil {
		t.Fatal(err)
	}
	if enabled {
		t.Error("Expected video to be turned off")
	}
}

func TestLoadProfile(t *testing.T) {
	f := newFixture(t)

	if err := f.svc.LoadProfile("short"); err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}
	f.svc.Wait()

	if n := len(f.svc.GetConfig().Questions); n != 1 {
		t.Errorf("Expected 1 question in the short profile, got %d", n)
	}
	snap := f.svc.Snapshot()
	if snap.Remaining != 10 {
		t.Errorf("Expected the override limit of 10, got %d", snap.Remaining)
	}
	if snap.Permission != "granted" {
		t.Errorf("Expected the new coordinator to acquire the device, got %s", snap.Permission)
	}
	if f.dev.Live() != 1 {
		t.Errorf("Expected exactly 1 live handle after the switch, got %d", f.dev.Live())
	}
}

func TestLoadProfileRefusedMidSession(t *testing.T) {
	f := newFixture(t)
	f.svc.Start()

	if err := f.svc.LoadProfile("short"); err == nil {
		t.Error("Expected the profile switch to be refused while recording")
	}
}

func TestListProfiles(t *testing.T) {
	f := newFixture(t)

	profiles, active, err := f.svc.ListProfiles()
	if err != nil {
		t.Fatal(err)
	}
	if active != "default" || len(profiles) != 2 {
		t.Errorf("Expected 2 profiles with default active, got %v / %s", profiles, active)
	}
}
