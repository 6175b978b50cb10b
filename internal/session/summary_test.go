package session

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/audiolibrelab/rehearse/internal/config"
	"github.com/audiolibrelab/rehearse/internal/recording"
)

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "00:00"},
		{59, "00:59"},
		{60, "01:00"},
		{121, "02:01"},
		{3599, "59:59"},
		{-5, "00:00"},
	}

	for _, tt := range tests {
		if got := FormatClock(tt.seconds); got != tt.want {
			t.Errorf("FormatClock(%d): expected %s, got %s", tt.seconds, tt.want, got)
		}
	}
}

func TestProgress(t *testing.T) {
	if got := Progress(0, 5); got != 0.2 {
		t.Errorf("Expected 0.2, got %v", got)
	}
	if got := Progress(4, 5); got != 1 {
		t.Errorf("Expected 1, got %v", got)
	}
	if got := Progress(0, 0); got != 0 {
		t.Errorf("Expected 0 with no questions, got %v", got)
	}
}

func TestTitle(t *testing.T) {
	if got := Title("technical"); got != "Technical Interview Session" {
		t.Errorf("Unexpected title %q", got)
	}
	if got := Title("éntretien"); got != "Éntretien Interview Session" {
		t.Errorf("Expected the first rune to be capitalized whole, got %q", got)
	}
	if got := Title(""); got != "Interview Session" {
		t.Errorf("Unexpected empty-type title %q", got)
	}
}

func TestNewSummary(t *testing.T) {
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	rec := &recording.Recording{
		MimeType: "video/webm;codecs=vp9,opus",
		Chunks:   [][]byte{[]byte("ab"), []byte("cde")},
		Bytes:    5,
	}

	s := newSummary(summaryInput{
		id:          "abc",
		settings:    Settings{InterviewType: "behavioral", Difficulty: "advanced"},
		startedAt:   start,
		completedAt: start.Add(200 * time.Second),
		elapsed:     185,
		index:       2,
		total:       5,
		recording:   rec,
	}, rand.New(rand.NewSource(7)))

	if s.DurationMinutes != 3 {
		t.Errorf("Expected 3 minutes, got %d", s.DurationMinutes)
	}
	if s.QuestionsAnswered != 3 {
		t.Errorf("Expected 3 answered, got %d", s.QuestionsAnswered)
	}
	if s.Title != "Behavioral Interview Session" || s.Difficulty != "advanced" {
		t.Errorf("Unexpected title/difficulty %q / %q", s.Title, s.Difficulty)
	}
	if s.Recording.Chunks != 2 || s.Recording.Bytes != 5 || s.Recording.MimeType != rec.MimeType {
		t.Errorf("Unexpected recording info %+v", s.Recording)
	}

	for i := 0; i < 200; i++ {
		s := newSummary(summaryInput{total: 1}, rand.New(rand.NewSource(int64(i))))
		if s.OverallScore < scoreMin || s.OverallScore > scoreMax {
			t.Fatalf("Overall score %d out of range", s.OverallScore)
		}
		if s.ImprovementScore < improvementMin || s.ImprovementScore > improvementMax {
			t.Fatalf("Improvement score %d out of range", s.ImprovementScore)
		}
	}
}

func TestSettingsFromConfig(t *testing.T) {
	off := false
	s := SettingsFromConfig(config.SettingsConfig{
		InterviewType: "technical",
		Difficulty:    "beginner",
		Duration:      45,
		IncludeAudio:  &off,
	})

	if !s.IncludeVideo {
		t.Error("Expected video to default to enabled")
	}
	if s.IncludeAudio {
		t.Error("Expected audio to be disabled")
	}
	if s.DurationMinutes != 45 {
		t.Errorf("Expected 45 minutes, got %d", s.DurationMinutes)
	}
}

func TestStatusText(t *testing.T) {
	text, err := StatusPaused.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	if string(text) != "paused" {
		t.Errorf("Expected paused, got %s", text)
	}

	err = invalid(EventResume, StatusRecording)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
}
