package session

import (
	"errors"

	"github.com/google/uuid"
	"github.com/link-review/backend/internal/models"
)

// ErrNoReview is returned when the session has no dataset bound to it.
var ErrNoReview = errors.New("no dataset uploaded")

// Flash levels.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Level   string `msgpack:"l"`
	Message string `msgpack:"m"`
}

// State is everything the browser session carries between requests.
type State struct {
	Partition string              `msgpack:"pid,omitempty"`
	Review    *models.ReviewState `msgpack:"review,omitempty"`
	Flashes   []Flash             `msgpack:"flash,omitempty"`
}

// EnsurePartition returns the partition id, creating one on first use.
func (s *State) EnsurePartition() string {
	if s.Partition == "" {
		s.Partition = uuid.New().String()
	}
	return s.Partition
}

// RequireReview returns the bound review or ErrNoReview.
func (s *State) RequireReview() (*models.ReviewState, error) {
	if s.Partition == "" || s.Review == nil || s.Review.Path == "" {
		return nil, ErrNoReview
	}
	return s.Review, nil
}

// Bind attaches a freshly ingested dataset with the cursor at zero.
func (s *State) Bind(path, originalName string, total int) {
	s.Review = &models.ReviewState{
		Path:         path,
		OriginalName: originalName,
		Cursor:       0,
		Total:        total,
	}
}

// ClearReview forgets the bound dataset. The partition is kept.
func (s *State) ClearReview() {
	s.Review = nil
}

// AddFlash queues a message for the next page.
func (s *State) AddFlash(level, message string) {
	s.Flashes = append(s.Flashes, Flash{Level: level, Message: message})
}

// PopFlashes returns and clears queued messages.
func (s *State) PopFlashes() []Flash {
	f := s.Flashes
	s.Flashes = nil
	return f
}
