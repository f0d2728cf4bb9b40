package autosave

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jwebster45206/story-grid/internal/storage"
	"github.com/jwebster45206/story-grid/pkg/survey"
)

const (
	// DefaultDelay is the quiet period before a draft is written.
	DefaultDelay = 500 * time.Millisecond
	// DefaultWriteTimeout bounds a single draft write.
	DefaultWriteTimeout = 5 * time.Second
)

// Saver writes survey drafts after a quiet period. Each Schedule supersedes
// the pending draft and restarts the delay. Writes are best effort: a failure
// is logged and reported to the error callback, never retried.
type Saver struct {
	store        storage.DraftStore
	log          *slog.Logger
	delay        time.Duration
	writeTimeout time.Duration
	onError      func(error)
	onSaved      func(survey.Document)

	mu      sync.Mutex
	timer   *time.Timer
	pending *survey.Document
	gen     uint64
	closed  bool
	wg      sync.WaitGroup
}

// Option configures a Saver.
type Option func(*Saver)

// WithDelay sets the quiet period.
func WithDelay(d time.Duration) Option {
	return func(s *Saver) { s.delay = d }
}

// WithWriteTimeout bounds each write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Saver) { s.writeTimeout = d }
}

// WithLogger sets the saver's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Saver) { s.log = l }
}

// OnError sets a callback for failed writes. It runs on the writing
// goroutine.
func OnError(fn func(error)) Option {
	return func(s *Saver) { s.onError = fn }
}

// OnSaved sets a callback for successful writes. It runs on the writing
// goroutine.
func OnSaved(fn func(survey.Document)) Option {
	return func(s *Saver) { s.onSaved = fn }
}

// New creates a saver writing to store.
func New(store storage.DraftStore, opts ...Option) *Saver {
	s := &Saver{
		store:        store,
		delay:        DefaultDelay,
		writeTimeout: DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Schedule queues doc to be written after the delay. A document with only
// blank values cancels the pending write instead, so an untouched form never
// overwrites a stored draft.
func (s *Saver) Schedule(doc survey.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.stopLocked()
	s.pending = nil
	if doc.IsEmpty() {
		return
	}

	s.gen++
	gen := s.gen
	s.pending = &doc
	s.wg.Add(1)
	s.timer = time.AfterFunc(s.delay, func() {
		defer s.wg.Done()
		s.fire(gen)
	})
}

// Pending reports whether a write is waiting for its delay.
func (s *Saver) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Flush writes the pending draft now, if any.
func (s *Saver) Flush(ctx context.Context) error {
	s.mu.Lock()
	s.stopLocked()
	doc := s.pending
	s.pending = nil
	s.mu.Unlock()

	if doc == nil {
		return nil
	}
	return s.write(ctx, *doc)
}

// Close drops any pending draft and waits for an in-flight write.
func (s *Saver) Close() {
	s.mu.Lock()
	s.closed = true
	s.stopLocked()
	s.pending = nil
	s.mu.Unlock()
	s.wg.Wait()
}

// stopLocked cancels the armed timer. The caller holds s.mu.
func (s *Saver) stopLocked() {
	if s.timer != nil && s.timer.Stop() {
		s.wg.Done()
	}
	s.timer = nil
}

func (s *Saver) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.pending == nil || s.closed {
		s.mu.Unlock()
		return
	}
	doc := *s.pending
	s.pending = nil
	s.timer = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()
	_ = s.write(ctx, doc)
}

func (s *Saver) write(ctx context.Context, doc survey.Document) error {
	if err := s.store.SaveDraft(ctx, doc); err != nil {
		s.log.Warn("Autosave failed", "respondent_id", doc.RespondentID, "error", err)
		if s.onError != nil {
			s.onError(err)
		}
		return err
	}
	s.log.Debug("Draft autosaved", "respondent_id", doc.RespondentID)
	if s.onSaved != nil {
		s.onSaved(doc)
	}
	return nil
}
