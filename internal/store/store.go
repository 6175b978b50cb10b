// Package store keeps completed interview sessions in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/audiolibrelab/rehearse/internal/session"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get for an unknown session id.
var ErrNotFound = errors.New("session not found")

// Sort orders for List.
const (
	SortByDate     = "date"
	SortByScore    = "score"
	SortByDuration = "duration"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	interviewType TEXT NOT NULL,
	difficulty TEXT NOT NULL,
	status TEXT NOT NULL,
	startedAt REAL NOT NULL,
	completedAt REAL NOT NULL,
	durationMinutes INTEGER NOT NULL,
	elapsedSeconds INTEGER NOT NULL,
	questionsAnswered INTEGER NOT NULL,
	totalQuestions INTEGER NOT NULL,
	averageResponseTime INTEGER NOT NULL,
	improvementScore INTEGER NOT NULL,
	overallScore INTEGER NOT NULL,
	communication INTEGER NOT NULL,
	technical INTEGER NOT NULL,
	problemSolving INTEGER NOT NULL,
	mimeType TEXT,
	chunks INTEGER NOT NULL DEFAULT 0,
	bytes INTEGER NOT NULL DEFAULT 0,
	path TEXT
);
CREATE INDEX IF NOT EXISTS sessions_completed ON sessions(completedAt);
`

const columns = `id, title, interviewType, difficulty, status, startedAt, completedAt,
	durationMinutes, elapsedSeconds, questionsAnswered, totalQuestions,
	averageResponseTime, improvementScore, overallScore,
	communication, technical, problemSolving, mimeType, chunks, bytes, path`

// Store provides access to the session history database.
type Store struct {
	db *sql.DB
}

// Filter narrows and orders List results.
type Filter struct {
	InterviewType string
	SortBy        string
	Limit         int
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" a single database and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append stores a completed session. Appending the same id twice replaces
// the earlier record.
func (s *Store) Append(ctx context.Context, sum session.Summary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sessions (`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sum.ID, sum.Title, sum.InterviewType, sum.Difficulty, sum.Status,
		unixFromTime(sum.StartedAt), unixFromTime(sum.CompletedAt),
		sum.DurationMinutes, sum.ElapsedSeconds, sum.QuestionsAnswered, sum.TotalQuestions,
		sum.AverageResponseTime, sum.ImprovementScore, sum.OverallScore,
		sum.Scores.Communication, sum.Scores.Technical, sum.Scores.ProblemSolving,
		nullString(sum.Recording.MimeType), sum.Recording.Chunks, sum.Recording.Bytes,
		nullString(sum.Recording.Path),
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", sum.ID, err)
	}
	return nil
}

// List returns stored sessions, newest first unless the filter sorts by
// score or duration.
func (s *Store) List(ctx context.Context, f Filter) ([]session.Summary, error) {
	order, err := orderClause(f.SortBy)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + columns + ` FROM sessions`
	var args []any
	if f.InterviewType != "" && f.InterviewType != "all" {
		query += ` WHERE interviewType = ?`
		args = append(args, f.InterviewType)
	}
	query += ` ORDER BY ` + order
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []session.Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Get returns one session by id.
func (s *Store) Get(ctx context.Context, id string) (*session.Summary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM sessions WHERE id = ?`, id)
	sum, err := scanSummary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &sum, nil
}

func orderClause(sortBy string) (string, error) {
	switch sortBy {
	case "", SortByDate:
		return "completedAt DESC", nil
	case SortByScore:
		return "overallScore DESC, completedAt DESC", nil
	case SortByDuration:
		return "elapsedSeconds DESC, completedAt DESC", nil
	default:
		return "", fmt.Errorf("unknown sort order %q (valid: date, score, duration)", sortBy)
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (session.Summary, error) {
	var sum session.Summary
	var startedAt, completedAt float64
	var mimeType, path sql.NullString

	err := row.Scan(
		&sum.ID, &sum.Title, &sum.InterviewType, &sum.Difficulty, &sum.Status,
		&startedAt, &completedAt,
		&sum.DurationMinutes, &sum.ElapsedSeconds, &sum.QuestionsAnswered, &sum.TotalQuestions,
		&sum.AverageResponseTime, &sum.ImprovementScore, &sum.OverallScore,
		&sum.Scores.Communication, &sum.Scores.Technical, &sum.Scores.ProblemSolving,
		&mimeType, &sum.Recording.Chunks, &sum.Recording.Bytes, &path,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sum, err
		}
		return sum, fmt.Errorf("scan session: %w", err)
	}

	sum.StartedAt = timeFromUnix(startedAt)
	sum.CompletedAt = timeFromUnix(completedAt)
	sum.Recording.MimeType = mimeType.String
	sum.Recording.Path = path.String
	return sum, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(f float64) time.Time {
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}
