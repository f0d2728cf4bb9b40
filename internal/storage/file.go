package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/jwebster45206/story-grid/pkg/survey"
)

// FileStore implements DraftStore on the local filesystem, one JSON file per
// respondent under <dir>/drafts. It stands in for the browser cache when the
// editor runs without Redis.
type FileStore struct {
	mu     sync.Mutex
	dir    string
	logger *slog.Logger
}

// Ensure FileStore implements DraftStore interface
var _ DraftStore = (*FileStore)(nil)

// NewFileStore creates a file store rooted at dataDir.
func NewFileStore(dataDir string, logger *slog.Logger) *FileStore {
	if dataDir == "" {
		dataDir = "./data"
	}
	return &FileStore{
		dir:    filepath.Join(dataDir, "drafts"),
		logger: logger,
	}
}

func (s *FileStore) path(respondentID string) string {
	return filepath.Join(s.dir, respondentID+".json")
}

// Ping checks that the drafts directory can be created.
func (s *FileStore) Ping(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("drafts directory unavailable: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) SaveDraft(ctx context.Context, doc survey.Document) error {
	if err := ValidateRespondentID(doc.RespondentID); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeFileAtomic(s.path(doc.RespondentID), data); err != nil {
		s.logger.Error("Failed to save draft", "respondent_id", doc.RespondentID, "error", err)
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

func (s *FileStore) LoadDraft(ctx context.Context, respondentID string) (survey.Document, error) {
	if err := ValidateRespondentID(respondentID); err != nil {
		return survey.Document{}, err
	}

	s.mu.Lock()
	data, err := os.ReadFile(s.path(respondentID))
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return survey.Document{}, fmt.Errorf("%w: %s", ErrDraftNotFound, respondentID)
		}
		return survey.Document{}, fmt.Errorf("failed to read draft: %w", err)
	}

	doc, err := survey.DecodeDocument(data)
	if err != nil {
		s.logger.Warn("Ignoring unreadable draft", "respondent_id", respondentID, "error", err)
		return survey.Document{}, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return doc, nil
}

func (s *FileStore) DeleteDraft(ctx context.Context, respondentID string) error {
	if err := ValidateRespondentID(respondentID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(respondentID)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrDraftNotFound, respondentID)
		}
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// WriteExport writes doc as an indented download file named after the
// respondent's name and returns its path.
func WriteExport(dir string, doc survey.Document) (string, error) {
	data, err := doc.Encode()
	if err != nil {
		return "", fmt.Errorf("failed to encode export: %w", err)
	}
	path := filepath.Join(dir, survey.ExportFileName(doc.Values["name"]))
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

// ReadExport reads a previously downloaded or hand-edited survey file.
func ReadExport(path string) (survey.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return survey.Document{}, fmt.Errorf("failed to read export: %w", err)
	}
	doc, err := survey.DecodeDocument(data)
	if err != nil {
		return survey.Document{}, fmt.Errorf("failed to load %s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
