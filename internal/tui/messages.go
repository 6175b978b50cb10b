package tui

import "github.com/audiolibrelab/rehearse/internal/session"

// TickMsg asks the model to refresh its snapshot.
type TickMsg struct{}

// SnapshotMsg carries a fresh session snapshot.
type SnapshotMsg struct {
	Snapshot session.Snapshot
}

// ActionResultMsg carries the outcome of a session operation.
type ActionResultMsg struct {
	Action string
	Err    error
}

// ClearNoticeMsg clears a transient notice.
type ClearNoticeMsg struct {
	Seq int
}
