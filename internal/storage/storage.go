package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jwebster45206/story-grid/pkg/survey"
)

var (
	// ErrDraftNotFound is returned when no draft is cached for a respondent.
	ErrDraftNotFound = errors.New("draft not found")
	// ErrInvalidRespondentID is returned for ids that cannot name a draft.
	ErrInvalidRespondentID = errors.New("invalid respondent id")
)

// DraftStore caches in-progress survey documents by respondent id. Writes
// replace the previous draft; there is no history.
type DraftStore interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	SaveDraft(ctx context.Context, doc survey.Document) error
	LoadDraft(ctx context.Context, respondentID string) (survey.Document, error)
	DeleteDraft(ctx context.Context, respondentID string) error
}

var respondentIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidateRespondentID checks that id is usable as a cache key and file name.
func ValidateRespondentID(id string) error {
	if !respondentIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidRespondentID, id)
	}
	return nil
}

func draftKey(respondentID string) string {
	return "draft:" + respondentID
}
