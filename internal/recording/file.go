package recording

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extension returns the file extension for a recorder mime type.
func Extension(mimeType string) string {
	base := strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
	switch base {
	case "video/x-matroska":
		return "mkv"
	case "video/mp4":
		return "mp4"
	default:
		return "webm"
	}
}

// Path returns where the recording of sessionID is saved under dir.
func Path(dir, sessionID, mimeType string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%s", sessionID, Extension(mimeType)))
}

// WriteFile concatenates the chunks of rec into the session's file.
func WriteFile(dir, sessionID string, rec *Recording) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("no recording to write")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := Path(dir, sessionID, rec.MimeType)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create recording file: %w", err)
	}
	defer f.Close()

	for _, chunk := range rec.Chunks {
		if _, err := f.Write(chunk); err != nil {
			return "", fmt.Errorf("failed to write recording file: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close recording file: %w", err)
	}
	return path, nil
}
