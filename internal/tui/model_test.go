package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/audiolibrelab/rehearse/internal/capture"
	"github.com/audiolibrelab/rehearse/internal/capture/capturetest"
	"github.com/audiolibrelab/rehearse/internal/clock"
	"github.com/audiolibrelab/rehearse/internal/config"
	"github.com/audiolibrelab/rehearse/internal/recording"
	"github.com/audiolibrelab/rehearse/internal/session"
)

type fixture struct {
	clk   *clock.Fake
	dev   *capturetest.Device
	coord *session.Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		clk: clock.NewFake(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)),
		dev: capturetest.NewDevice(),
	}
	f.coord = session.New(f.clk,
		capture.NewManager(f.dev, capture.DefaultConstraints()),
		recording.NewController(f.clk, recording.Options{}),
		session.Options{
			Questions: []config.Question{
				{ID: 1, Text: "Tell me about yourself", Category: "General", TimeLimit: 60, Tips: "Keep it under two minutes"},
				{ID: 2, Text: "Why this role?", TimeLimit: 30},
			},
			Settings:         session.Settings{InterviewType: "general", Difficulty: "intermediate"},
			Tick:             time.Second,
			AutoAdvanceDelay: time.Second,
		})
	t.Cleanup(f.coord.Close)

	if err := f.coord.Mount(); err != nil {
		t.Fatal(err)
	}
	f.coord.Wait()
	return f
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and feeds the resulting action back into the model.
func press(t *testing.T, m Model, k string) (Model, tea.Cmd) {
	t.Helper()

	updated, cmd := m.Update(key(k))
	model := updated.(Model)
	if cmd == nil {
		return model, nil
	}
	msg := cmd()
	if _, ok := msg.(ActionResultMsg); ok {
		updated, cmd = model.Update(msg)
		return updated.(Model), cmd
	}
	return model, cmd
}

func TestNewModel(t *testing.T) {
	f := newFixture(t)
	m := New(f.coord)

	if m.snap.Status != session.StatusSetup {
		t.Errorf("Expected setup, got %s", m.snap.Status)
	}
	if m.showTips || m.confirmQuit {
		t.Error("Expected tips hidden and no quit prompt")
	}
	view := m.View()
	if !strings.Contains(view, "Question 1 of 2") || !strings.Contains(view, "01:00") {
		t.Errorf("Expected the first question and its limit in the view, got:\n%s", view)
	}
}

func TestStartPauseResume(t *testing.T) {
	f := newFixture(t)
	m := New(f.coord)

	m, _ = press(t, m, "s")
	if m.snap.Status != session.StatusRecording {
		t.Fatalf("Expected recording, got %s", m.snap.Status)
	}
	if m.notice != "started" {
		t.Errorf("Expected a started notice, got %q", m.notice)
	}

	m, _ = press(t, m, " ")
	if m.snap.Status != session.StatusPaused {
		t.Errorf("Expected paused, got %s", m.snap.Status)
	}
	m, _ = press(t, m, " ")
	if m.snap.Status != session.StatusRecording {
		t.Errorf("Expected recording after resume, got %s", m.snap.Status)
	}
}

func TestTickRefreshesSnapshot(t *testing.T) {
	f := newFixture(t)
	m := New(f.coord)
	m, _ = press(t, m, "s")

	f.clk.Advance(3 * time.Second)
	updated, cmd := m.Update(TickMsg{})
	m = updated.(Model)

	if m.snap.Elapsed != 3 || m.snap.Remaining != 57 {
		t.Errorf("Expected 3 elapsed / 57 remaining, got %d / %d", m.snap.Elapsed, m.snap.Remaining)
	}
	if cmd == nil {
		t.Error("Expected the tick to schedule the next poll")
	}
	if !strings.Contains(m.View(), "00:57") {
		t.Error("Expected the remaining time in the view")
	}
}

func TestNavigation(t *testing.T) {
	f := newFixture(t)
	m := New(f.coord)
	m, _ = press(t, m, "s")

	m, _ = press(t, m, "n")
	if m.snap.QuestionIndex != 1 {
		t.Errorf("Expected question 2, got index %d", m.snap.QuestionIndex)
	}
	m, _ = press(t, m, "p")
	if m.snap.QuestionIndex != 0 {
		t.Errorf("Expected question 1, got index %d", m.snap.QuestionIndex)
	}

	m, _ = press(t, m, "x")
	if m.snap.Status != session.StatusCompleted {
		t.Fatalf("Expected completed, got %s", m.snap.Status)
	}
	if !strings.Contains(m.View(), "General Interview Session") {
		t.Error("Expected the summary title in the view")
	}
}

func TestInvalidActionShowsError(t *testing.T) {
	f := newFixture(t)
	m := New(f.coord)

	m, _ = press(t, m, "x")
	if !m.noticeErr || !strings.Contains(m.notice, "invalid transition") {
		t.Errorf("Expected an error notice, got %q", m.notice)
	}

	updated, _ := m.Update(ClearNoticeMsg{Seq: m.noticeSeq - 1})
	if updated.(Model).notice == "" {
		t.Error("Expected a stale clear to keep the notice")
	}
	updated, _ = m.Update(ClearNoticeMsg{Seq: m.noticeSeq})
	if updated.(Model).notice != "" {
		t.Error("Expected the notice to clear")
	}
}

func TestTips(t *testing.T) {
	f := newFixture(t)
	m := New(f.coord)

	if strings.Contains(m.View(), "Keep it under two minutes") {
		t.Error("Expected tips hidden by default")
	}
	m, _ = press(t, m, "t")
	if !strings.Contains(m.View(), "Keep it under two minutes") {
		t.Error("Expected tips after toggling")
	}
}

func TestQuitWhenIdle(t *testing.T) {
	f := newFixture(t)
	m := New(f.coord)

	updated, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("Expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
	if updated.(Model).View() != "" {
		t.Error("Expected an empty view after quitting")
	}
}

func TestQuitWhileRecordingAsksFirst(t *testing.T) {
	f := newFixture(t)
	m := New(f.coord)
	m, _ = press(t, m, "s")

	updated, cmd := m.Update(key("ctrl+c"))
	m = updated.(Model)
	if cmd != nil {
		t.Error("Expected no quit while the guard is engaged")
	}
	if !m.confirmQuit || !strings.Contains(m.View(), "Leave and discard") {
		t.Error("Expected a leave confirmation prompt")
	}

	updated, cmd = m.Update(key("n"))
	m = updated.(Model)
	if cmd != nil || m.confirmQuit {
		t.Error("Expected any other key to cancel the prompt")
	}
	if m.snap.QuestionIndex != 0 {
		t.Error("Expected the cancelling key not to be treated as next")
	}

	updated, _ = m.Update(key("q"))
	updated, cmd = updated.(Model).Update(key("y"))
	if cmd == nil {
		t.Fatal("Expected confirming to quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
}

func TestDeviceErrorAndRetry(t *testing.T) {
	f := newFixture(t)
	f.dev.FailNext(capture.ErrPermissionDenied)

	m := New(f.coord)
	updated, cmd := m.Update(key("r"))
	m = updated.(Model)
	cmd()
	f.coord.Wait()
	updated, _ = m.Update(TickMsg{})
	m = updated.(Model)

	if !strings.Contains(m.View(), "allow camera and microphone") {
		t.Errorf("Expected the permission message, got:\n%s", m.View())
	}

	m, _ = press(t, m, "s")
	if !m.noticeErr {
		t.Error("Expected start to fail without permission")
	}
}

func TestToggleTrackNotice(t *testing.T) {
	f := newFixture(t)
	m := New(f.coord)

	m, _ = press(t, m, "v")
	if m.notice != "video off" {
		t.Errorf("Expected 'video off', got %q", m.notice)
	}
	if !strings.Contains(m.View(), "video off") {
		t.Error("Expected the track state in the view")
	}
}

func TestActionResultError(t *testing.T) {
	f := newFixture(t)
	m := New(f.coord)

	updated, _ := m.Update(ActionResultMsg{Action: "started", Err: errors.New("boom")})
	if updated.(Model).notice != "boom" {
		t.Errorf("Expected the error notice, got %q", updated.(Model).notice)
	}
}

func TestRenderProgress(t *testing.T) {
	bar := renderProgress(0.5, 10)
	if !strings.Contains(bar, " 50%") {
		t.Errorf("Expected 50%%, got %q", bar)
	}
	if !strings.Contains(renderProgress(1.5, 4), "150%") {
		t.Error("Expected overflow to clamp the bar, not the label")
	}
}
