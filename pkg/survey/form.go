package survey

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-grid/pkg/catalog"
	"github.com/jwebster45206/story-grid/pkg/grid"
	"github.com/jwebster45206/story-grid/pkg/script"
)

// ErrUnknownField is returned when setting a key the form does not have.
var ErrUnknownField = errors.New("unknown form field")

// Form holds the values of one respondent and a grid per story-grid field.
// Grid changes are folded into the field values as JSON strings. A Form is
// not safe for concurrent use.
type Form struct {
	log      *slog.Logger
	now      func() time.Time
	resolver *script.Resolver
	catalog  *catalog.Catalog

	respondentID string
	values       map[string]string
	grids        map[string]*grid.Grid
	unsubscribe  []func()
	listeners    []func(key string)
	loading      bool
}

// FormOption configures a Form.
type FormOption func(*Form)

// WithLogger sets the form's logger.
func WithLogger(l *slog.Logger) FormOption {
	return func(f *Form) { f.log = l }
}

// WithClock sets the snapshot clock.
func WithClock(now func() time.Time) FormOption {
	return func(f *Form) { f.now = now }
}

// WithResolver sets the script resolver shared by the form's grids.
func WithResolver(r *script.Resolver) FormOption {
	return func(f *Form) { f.resolver = r }
}

// WithCatalog sets the character catalog shared by the form's grids.
func WithCatalog(c *catalog.Catalog) FormOption {
	return func(f *Form) { f.catalog = c }
}

// WithRespondentID sets the respondent id instead of generating one.
func WithRespondentID(id string) FormOption {
	return func(f *Form) { f.respondentID = id }
}

// NewForm creates an empty form with a fresh grid for every story-grid field.
func NewForm(opts ...FormOption) *Form {
	f := &Form{
		now:    time.Now,
		values: make(map[string]string, len(fields)),
		grids:  make(map[string]*grid.Grid),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.log == nil {
		f.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if f.resolver == nil {
		f.resolver = script.NewDefaultResolver(nil)
	}
	if f.catalog == nil {
		f.catalog = catalog.Default()
	}
	if f.respondentID == "" {
		f.respondentID = uuid.NewString()
	}

	for _, fld := range fields {
		f.values[fld.Key] = ""
		if !fld.IsStoryGrid() {
			continue
		}
		key := fld.Key
		g := grid.New(
			grid.WithScenario(fld.ScenarioKey),
			grid.WithResolver(f.resolver),
			grid.WithCatalog(f.catalog),
			grid.WithLogger(f.log.With("field", key)),
		)
		f.grids[key] = g
		f.unsubscribe = append(f.unsubscribe, g.Subscribe(func(fd grid.FormData) {
			f.fold(key, fd)
		}))
	}
	return f
}

func (f *Form) fold(key string, fd grid.FormData) {
	if f.loading {
		return
	}
	data, err := json.Marshal(fd)
	if err != nil {
		f.log.Error("Failed to encode story grid", "field", key, "error", err)
		return
	}
	f.setValue(key, string(data))
}

func (f *Form) setValue(key, value string) {
	if f.values[key] == value {
		return
	}
	f.values[key] = value
	for _, fn := range f.listeners {
		fn(key)
	}
}

// OnChange registers fn to be called with the key of every changed value.
func (f *Form) OnChange(fn func(key string)) {
	f.listeners = append(f.listeners, fn)
}

// RespondentID returns the respondent the form belongs to.
func (f *Form) RespondentID() string { return f.respondentID }

// Grid returns the grid behind a story-grid field.
func (f *Form) Grid(key string) (*grid.Grid, bool) {
	g, ok := f.grids[key]
	return g, ok
}

// Value returns a field's current value.
func (f *Form) Value(key string) string { return f.values[key] }

// Set updates a plain field. Story-grid fields are imported into their grid.
func (f *Form) Set(key, value string) error {
	fld, ok := LookupField(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	if fld.IsStoryGrid() {
		_, err := f.grids[key].SetData([]byte(value))
		return err
	}
	f.setValue(key, value)
	return nil
}

// Load replaces the form with a saved document. Story-grid values are
// imported into their grids; a field that fails to import keeps its prior
// grid and value, and its error is returned joined with the others.
func (f *Form) Load(doc Document) error {
	f.loading = true
	defer func() { f.loading = false }()

	var errs []error
	changed := make([]string, 0, len(doc.Values))
	for key, value := range doc.Values {
		g, isGrid := f.grids[key]
		if !isGrid {
			if f.values[key] != value {
				f.values[key] = value
				changed = append(changed, key)
			}
			continue
		}

		if strings.TrimSpace(value) == "" {
			g.Reset()
			g.ClearAll()
			if f.values[key] != "" {
				f.values[key] = ""
				changed = append(changed, key)
			}
			continue
		}
		if _, err := g.SetData([]byte(value)); err != nil {
			f.log.Warn("Skipping story grid field", "field", key, "error", err)
			errs = append(errs, fmt.Errorf("field %s: %w", key, err))
			continue
		}
		data, err := json.Marshal(g.Export())
		if err != nil {
			errs = append(errs, fmt.Errorf("field %s: %w", key, err))
			continue
		}
		if f.values[key] != string(data) {
			f.values[key] = string(data)
			changed = append(changed, key)
		}
	}
	if doc.RespondentID != "" {
		f.respondentID = doc.RespondentID
	}

	f.loading = false
	for _, key := range changed {
		for _, fn := range f.listeners {
			fn(key)
		}
	}
	return errors.Join(errs...)
}

// Snapshot returns the document for the current values.
func (f *Form) Snapshot() Document {
	values := make(map[string]string, len(f.values))
	for k, v := range f.values {
		values[k] = v
	}
	return Document{
		Values:       values,
		RespondentID: f.respondentID,
		Timestamp:    FormatTimestamp(f.now()),
	}
}

// IsEmpty reports whether every value is blank.
func (f *Form) IsEmpty() bool {
	for _, v := range f.values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Clear empties every value and resets every grid. The respondent is kept.
func (f *Form) Clear() {
	f.loading = true
	for _, g := range f.grids {
		g.Reset()
		g.ClearAll()
	}
	f.loading = false
	for key := range f.values {
		f.setValue(key, "")
	}
}

// Story tells the closing story of a story-grid field, using the respondent's
// name and the characters placed below each step.
func (f *Form) Story(key, needs string) (string, error) {
	g, ok := f.grids[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	st, _ := g.Structure()
	in := script.StoryInput{
		Name:        f.values["name"],
		Needs:       needs,
		ScenarioKey: g.ScenarioKey(),
		Structure:   st,
	}
	for _, m := range g.Markers() {
		if m.Row >= grid.FirstLaneRow {
			in.Characters[m.Column] = append(in.Characters[m.Column], m.Type)
		}
	}
	return f.resolver.Tell(in), nil
}

// Close detaches the form from its grids.
func (f *Form) Close() {
	for _, fn := range f.unsubscribe {
		fn()
	}
	f.unsubscribe = nil
}
