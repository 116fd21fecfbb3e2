package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNoteNotFound indicates no note exists with the requested id.
	ErrNoteNotFound = errors.New("note not found")
	// ErrInvalidNote indicates a note fails validation.
	ErrInvalidNote = errors.New("invalid note")
)

// Note is a dated build log entry attached to a project, optionally with a photo.
type Note struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewNote holds the fields supplied when adding a note.
type NewNote struct {
	Content  string
	ImageURL string
}

func validateNote(n NewNote) error {
	if strings.TrimSpace(n.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidNote)
	}
	return nil
}
