// Package tui is the interactive terminal host of an interview session.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/audiolibrelab/rehearse/internal/capture"
	"github.com/audiolibrelab/rehearse/internal/session"
)

// Session is the part of the service the terminal UI drives.
type Session interface {
	Snapshot() session.Snapshot
	Start() error
	Pause() error
	Resume() error
	Next() error
	Previous() error
	Stop() error
	Restart() error
	RetryDevice() error
	RetryRecorder() error
	ToggleTrack(kind capture.TrackKind) (bool, error)
	RequestLeave(confirmed bool) bool
}

const (
	pollInterval  = 250 * time.Millisecond
	noticeTimeout = 4 * time.Second
	defaultWidth  = 72
	lowTimeSecs   = 10
)

// Model is the root bubbletea model.
type Model struct {
	session Session
	snap    session.Snapshot

	width  int
	height int

	showTips    bool
	confirmQuit bool
	quitting    bool

	notice    string
	noticeErr bool
	noticeSeq int
}

// New creates a model around a mounted session.
func New(s Session) Model {
	return Model{
		session: s,
		snap:    s.Snapshot(),
	}
}

// Init starts the snapshot polling loop.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

func clearNoticeCmd(seq int) tea.Cmd {
	return tea.Tick(noticeTimeout, func(time.Time) tea.Msg {
		return ClearNoticeMsg{Seq: seq}
	})
}

// actionCmd runs a session operation off the update loop.
func actionCmd(name string, op func() error) tea.Cmd {
	return func() tea.Msg {
		return ActionResultMsg{Action: name, Err: op()}
	}
}

func (m Model) toggleCmd(kind capture.TrackKind) tea.Cmd {
	return func() tea.Msg {
		enabled, err := m.session.ToggleTrack(kind)
		action := fmt.Sprintf("%s off", kind)
		if enabled {
			action = fmt.Sprintf("%s on", kind)
		}
		return ActionResultMsg{Action: action, Err: err}
	}
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		m.snap = m.session.Snapshot()
		return m, tickCmd()

	case SnapshotMsg:
		m.snap = msg.Snapshot
		return m, nil

	case ActionResultMsg:
		m.snap = m.session.Snapshot()
		m.noticeSeq++
		if msg.Err != nil {
			m.notice = msg.Err.Error()
			m.noticeErr = true
		} else {
			m.notice = msg.Action
			m.noticeErr = false
		}
		return m, clearNoticeCmd(m.noticeSeq)

	case ClearNoticeMsg:
		if msg.Seq == m.noticeSeq {
			m.notice = ""
			m.noticeErr = false
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.confirmQuit {
		m.confirmQuit = false
		if key == KeyConfirm {
			m.session.RequestLeave(true)
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	switch key {
	case KeyQuit, KeyCtrlC:
		if m.session.RequestLeave(false) {
			m.quitting = true
			return m, tea.Quit
		}
		m.confirmQuit = true
		return m, nil

	case KeyStart:
		return m, actionCmd("started", m.session.Start)

	case KeyPause:
		if m.snap.Status == session.StatusPaused {
			return m, actionCmd("resumed", m.session.Resume)
		}
		return m, actionCmd("paused", m.session.Pause)

	case KeyNext, KeyRight:
		return m, actionCmd("next question", m.session.Next)

	case KeyPrevious, KeyLeft:
		return m, actionCmd("previous question", m.session.Previous)

	case KeyStop:
		return m, actionCmd("stopped", m.session.Stop)

	case KeyRestart:
		if m.snap.Status == session.StatusCompleted {
			return m, actionCmd("restarted", m.session.Restart)
		}
		return m, actionCmd("refreshing device", m.session.RetryDevice)

	case KeyRetryRecorder:
		return m, actionCmd("recorder restarted", m.session.RetryRecorder)

	case KeyVideo:
		return m, m.toggleCmd(capture.TrackVideo)

	case KeyAudio:
		return m, m.toggleCmd(capture.TrackAudio)

	case KeyTips:
		m.showTips = !m.showTips
		return m, nil
	}

	return m, nil
}

// View renders the current state.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width := m.width
	if width == 0 {
		width = defaultWidth
	}
	divider := dividerStyle.Render(strings.Repeat("─", width))

	sections := []string{m.renderHeader(), divider}

	if m.snap.Status == session.StatusCompleted {
		sections = append(sections, m.renderSummary())
	} else {
		sections = append(sections, m.renderQuestion(width))
	}

	sections = append(sections, divider, m.renderDevice())
	if line := m.renderErrors(); line != "" {
		sections = append(sections, line)
	}
	if m.confirmQuit {
		sections = append(sections, confirmStyle.Render("Interview in progress. Leave and discard the session? (y/N)"))
	}
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	var dot string
	switch m.snap.Status {
	case session.StatusRecording:
		dot = recordingDotStyle.Render("●")
	case session.StatusPaused:
		dot = pausedDotStyle.Render("❚❚")
	default:
		dot = idleDotStyle.Render("○")
	}

	title := titleStyle.Render(session.Title(m.snap.Settings.InterviewType))
	status := statusStyle.Render(fmt.Sprintf("%s · %s · elapsed %s",
		m.snap.Status, m.snap.Settings.Difficulty, session.FormatClock(m.snap.Elapsed)))
	return fmt.Sprintf("%s %s  %s", dot, title, status)
}

func (m Model) renderQuestion(width int) string {
	q := m.snap.Question
	if q == nil {
		return dimStyle.Render("No questions configured.")
	}

	var lines []string
	header := fmt.Sprintf("Question %d of %d", m.snap.QuestionIndex+1, m.snap.TotalQuestions)
	if q.Category != "" {
		header += "  " + categoryStyle.Render(q.Category)
	}
	lines = append(lines, header)
	lines = append(lines, questionStyle.Width(width).Render(q.Text))

	timer := timerStyle
	if m.snap.Remaining <= lowTimeSecs {
		timer = timerLowStyle
	}
	remaining := timer.Render(session.FormatClock(m.snap.Remaining))
	if m.snap.AutoAdvancePending {
		remaining += dimStyle.Render("  moving on...")
	}
	lines = append(lines, "Time left "+remaining)
	lines = append(lines, renderProgress(m.snap.Progress, width/2))

	if m.showTips && q.Tips != "" {
		lines = append(lines, tipStyle.Width(width).Render("Tip: "+q.Tips))
	}
	return strings.Join(lines, "\n")
}

func renderProgress(fraction float64, width int) string {
	if width <= 0 {
		width = 10
	}
	filled := int(fraction * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	bar := progressFullStyle.Render(strings.Repeat("█", filled)) +
		progressEmptyStyle.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %3.0f%%", bar, fraction*100)
}

func (m Model) renderSummary() string {
	s := m.snap.Summary
	if s == nil {
		return dimStyle.Render("Finishing up...")
	}

	lines := []string{
		titleStyle.Render(s.Title),
		fmt.Sprintf("Overall score      %d%%", s.OverallScore),
		fmt.Sprintf("Communication      %d%%", s.Scores.Communication),
		fmt.Sprintf("Technical          %d%%", s.Scores.Technical),
		fmt.Sprintf("Problem solving    %d%%", s.Scores.ProblemSolving),
		fmt.Sprintf("Questions answered %d of %d", s.QuestionsAnswered, s.TotalQuestions),
		fmt.Sprintf("Duration           %s", session.FormatClock(s.ElapsedSeconds)),
	}
	if s.Recording.Path != "" {
		lines = append(lines, dimStyle.Render("Saved to "+s.Recording.Path))
	}
	if m.snap.Persisting {
		lines = append(lines, dimStyle.Render("Processing your interview..."))
	}
	return summaryBoxStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderDevice() string {
	var parts []string
	switch {
	case m.snap.Acquiring:
		parts = append(parts, "device: requesting access...")
	default:
		parts = append(parts, "device: "+m.snap.Permission)
	}
	for _, t := range m.snap.Tracks {
		state := "on"
		if !t.Enabled {
			state = "off"
		}
		parts = append(parts, fmt.Sprintf("%s %s", t.Kind, state))
	}
	if m.snap.RecorderActive {
		parts = append(parts, fmt.Sprintf("rec %d chunks", m.snap.Chunks))
	}
	return dimStyle.Render(strings.Join(parts, " · "))
}

func (m Model) renderErrors() string {
	var lines []string
	if m.snap.DeviceError != "" {
		lines = append(lines, errorStyle.Render(m.snap.DeviceError)+dimStyle.Render("  (r to retry)"))
	}
	if m.snap.RecorderError != "" {
		lines = append(lines, errorStyle.Render(m.snap.RecorderError)+dimStyle.Render("  (R to retry)"))
	}
	if m.snap.PersistError != "" {
		lines = append(lines, errorStyle.Render("Saving failed: "+m.snap.PersistError))
	}
	if m.notice != "" {
		if m.noticeErr {
			lines = append(lines, errorStyle.Render(m.notice))
		} else {
			lines = append(lines, dimStyle.Render(m.notice))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderFooter() string {
	type binding struct{ key, desc string }

	var keys []binding
	switch m.snap.Status {
	case session.StatusSetup:
		keys = []binding{{"s", "start"}, {"r", "refresh device"}}
	case session.StatusRecording, session.StatusPaused:
		keys = []binding{{"space", "pause/resume"}, {"←/→", "prev/next"}, {"x", "stop"}, {"t", "tips"}}
	case session.StatusCompleted:
		keys = []binding{{"r", "new interview"}}
	}
	keys = append(keys, binding{"v/a", "video/audio"}, binding{"q", "quit"})

	var parts []string
	for _, b := range keys {
		parts = append(parts, footerKeyStyle.Render(b.key)+" "+footerDescStyle.Render(b.desc))
	}
	return strings.Join(parts, "  ")
}
