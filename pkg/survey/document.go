package survey

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jwebster45206/story-grid/pkg/grid"
)

// TimestampLayout matches JavaScript's toISOString output.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

var (
	// ErrMalformedDocument is returned for input that is not a JSON document.
	ErrMalformedDocument = errors.New("malformed survey document")
	// ErrMissingValues is returned for a document without a values object.
	ErrMissingValues = errors.New("survey document has no values")
)

// Document is the saved form: draft cache entries, downloads and uploads all
// share this shape. Story-grid values hold the grid's form data as a JSON
// string.
type Document struct {
	Values       map[string]string `json:"values"`
	RespondentID string            `json:"respondentId"`
	Timestamp    string            `json:"timestamp"`
}

// FormatTimestamp renders t in UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// IsEmpty reports whether every value is blank.
func (d Document) IsEmpty() bool {
	for _, v := range d.Values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Encode writes the document as indented JSON with every known field present.
func (d Document) Encode() ([]byte, error) {
	out := Document{
		Values:       make(map[string]string, len(fields)),
		RespondentID: d.RespondentID,
		Timestamp:    d.Timestamp,
	}
	for k, v := range d.Values {
		out.Values[k] = v
	}
	for _, f := range fields {
		if _, ok := out.Values[f.Key]; !ok {
			out.Values[f.Key] = ""
		}
	}
	return json.MarshalIndent(out, "", "  ")
}

// DecodeDocument parses a saved document.
func DecodeDocument(data []byte) (Document, error) {
	var raw struct {
		Values       map[string]any `json:"values"`
		RespondentID string         `json:"respondentId"`
		Timestamp    string         `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if raw.Values == nil {
		return Document{}, ErrMissingValues
	}

	doc := Document{
		Values:       make(map[string]string, len(raw.Values)),
		RespondentID: raw.RespondentID,
		Timestamp:    raw.Timestamp,
	}
	for k, v := range raw.Values {
		switch val := v.(type) {
		case nil:
			doc.Values[k] = ""
		case string:
			doc.Values[k] = val
		default:
			// Older files stored grid data as an object or numbers unquoted.
			b, err := json.Marshal(val)
			if err != nil {
				return Document{}, fmt.Errorf("%w: value %q: %v", ErrMalformedDocument, k, err)
			}
			doc.Values[k] = string(b)
		}
	}
	return doc, nil
}

// GridData decodes the story-grid fields of the document keyed by export
// name. Blank fields are skipped; fields that fail to decode are reported by
// field key.
func (d Document) GridData() (map[string]grid.Payload, map[string]error) {
	out := make(map[string]grid.Payload)
	errs := make(map[string]error)
	for _, f := range StoryGridFields() {
		v := strings.TrimSpace(d.Values[f.Key])
		if v == "" {
			continue
		}
		p, err := grid.DecodePayload([]byte(v))
		if err != nil {
			errs[f.Key] = err
			continue
		}
		out[f.ExportName] = p
	}
	return out, errs
}

var unsafeFileChars = regexp.MustCompile(`[^\w\x{4e00}-\x{9fa5}-]+`)

// ExportFileName is the download name for a respondent.
func ExportFileName(name string) string {
	if name == "" {
		name = "anonymous"
	}
	return "learning_route_map_" + unsafeFileChars.ReplaceAllString(name, "_") + ".json"
}
