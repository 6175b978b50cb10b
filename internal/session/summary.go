package session

import (
	"fmt"
	"math/rand"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/audiolibrelab/rehearse/internal/config"
	"github.com/audiolibrelab/rehearse/internal/recording"
)

// Settings are the interview settings a session was started with.
type Settings struct {
	InterviewType   string `json:"interviewType" yaml:"interview_type"`
	Difficulty      string `json:"difficulty" yaml:"difficulty"`
	DurationMinutes int    `json:"duration" yaml:"duration"`
	IncludeVideo    bool   `json:"includeVideo" yaml:"include_video"`
	IncludeAudio    bool   `json:"includeAudio" yaml:"include_audio"`
}

// SettingsFromConfig converts the settings section of a profile.
func SettingsFromConfig(s config.SettingsConfig) Settings {
	return Settings{
		InterviewType:   s.InterviewType,
		Difficulty:      s.Difficulty,
		DurationMinutes: s.Duration,
		IncludeVideo:    s.VideoEnabled(),
		IncludeAudio:    s.AudioEnabled(),
	}
}

type Scores struct {
	Communication  int `json:"communication" yaml:"communication"`
	Technical      int `json:"technical" yaml:"technical"`
	ProblemSolving int `json:"problemSolving" yaml:"problem_solving"`
}

type RecordingInfo struct {
	MimeType string `json:"mimeType,omitempty" yaml:"mime_type,omitempty"`
	Chunks   int    `json:"chunks" yaml:"chunks"`
	Bytes    int    `json:"bytes" yaml:"bytes"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Summary is the record of a completed session.
type Summary struct {
	ID                  string        `json:"id" yaml:"id"`
	Title               string        `json:"title" yaml:"title"`
	InterviewType       string        `json:"interviewType" yaml:"interview_type"`
	Difficulty          string        `json:"difficulty" yaml:"difficulty"`
	Status              string        `json:"status" yaml:"status"`
	StartedAt           time.Time     `json:"startedAt" yaml:"started_at"`
	CompletedAt         time.Time     `json:"completedAt" yaml:"completed_at"`
	DurationMinutes     int           `json:"durationMinutes" yaml:"duration_minutes"`
	ElapsedSeconds      int           `json:"elapsedSeconds" yaml:"elapsed_seconds"`
	QuestionsAnswered   int           `json:"questionsAnswered" yaml:"questions_answered"`
	TotalQuestions      int           `json:"totalQuestions" yaml:"total_questions"`
	AverageResponseTime int           `json:"averageResponseTime" yaml:"average_response_time"`
	ImprovementScore    int           `json:"improvementScore" yaml:"improvement_score"`
	OverallScore        int           `json:"overallScore" yaml:"overall_score"`
	Scores              Scores        `json:"scores" yaml:"scores"`
	Recording           RecordingInfo `json:"recording" yaml:"recording"`
}

// Placeholder score ranges, inclusive.
const (
	scoreMin        = 70
	scoreMax        = 99
	responseTimeMin = 40
	responseTimeMax = 69
	improvementMin  = 5
	improvementMax  = 24
)

func between(rnd *rand.Rand, lo, hi int) int {
	return lo + rnd.Intn(hi-lo+1)
}

// Title returns the display title for an interview type.
func Title(interviewType string) string {
	if interviewType == "" {
		return "Interview Session"
	}
	first, size := utf8.DecodeRuneInString(interviewType)
	return string(unicode.ToUpper(first)) + interviewType[size:] + " Interview Session"
}

type summaryInput struct {
	id          string
	settings    Settings
	startedAt   time.Time
	completedAt time.Time
	elapsed     int
	index       int
	total       int
	recording   *recording.Recording
}

func newSummary(in summaryInput, rnd *rand.Rand) Summary {
	s := Summary{
		ID:                  in.id,
		Title:               Title(in.settings.InterviewType),
		InterviewType:       in.settings.InterviewType,
		Difficulty:          in.settings.Difficulty,
		Status:              "completed",
		StartedAt:           in.startedAt,
		CompletedAt:         in.completedAt,
		DurationMinutes:     in.elapsed / 60,
		ElapsedSeconds:      in.elapsed,
		QuestionsAnswered:   in.index + 1,
		TotalQuestions:      in.total,
		OverallScore:        between(rnd, scoreMin, scoreMax),
		AverageResponseTime: between(rnd, responseTimeMin, responseTimeMax),
		ImprovementScore:    between(rnd, improvementMin, improvementMax),
		Scores: Scores{
			Communication:  between(rnd, scoreMin, scoreMax),
			Technical:      between(rnd, scoreMin, scoreMax),
			ProblemSolving: between(rnd, scoreMin, scoreMax),
		},
	}
	if in.recording != nil {
		s.Recording = RecordingInfo{
			MimeType: in.recording.MimeType,
			Chunks:   len(in.recording.Chunks),
			Bytes:    in.recording.Bytes,
		}
	}
	return s
}

// FormatClock renders seconds as mm:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Progress is the fraction of questions reached, counting the current one.
func Progress(index, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(index+1) / float64(total)
}
