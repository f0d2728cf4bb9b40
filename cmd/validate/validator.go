package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jwebster45206/story-grid/internal/storage"
	"github.com/jwebster45206/story-grid/pkg/grid"
	"github.com/jwebster45206/story-grid/pkg/script"
	"github.com/jwebster45206/story-grid/pkg/survey"
	"gopkg.in/yaml.v3"
)

// Report collects the findings for one file. Errors fail the file; warnings
// describe data the editor would silently drop or replace on import.
type Report struct {
	File     string
	Errors   []string
	Warnings []string
}

// Err returns the errors as one error, or nil.
func (r *Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("validation errors in %s:\n%s", r.File, strings.Join(r.Errors, "\n"))
}

func (r *Report) addError(format string, args ...any) {
	r.Errors = append(r.Errors, "  - "+fmt.Sprintf(format, args...))
}

func (r *Report) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

var validScriptFilenameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

func validateSurveyFile(filename string) *Report {
	r := &Report{File: filename}
	if !strings.HasSuffix(filename, ".json") {
		r.addError("survey file must have .json extension: %s", filepath.Base(filename))
		return r
	}

	doc, err := storage.ReadExport(filename)
	if err != nil {
		r.addError("%v", err)
		return r
	}
	validateDocument(r, doc)
	return r
}

func validateDocument(r *Report, doc survey.Document) {
	if doc.RespondentID == "" {
		r.addWarning("no respondentId; a new one is generated on import")
	} else if err := storage.ValidateRespondentID(doc.RespondentID); err != nil {
		r.addError("%v", err)
	}
	if doc.Timestamp != "" {
		if _, err := time.Parse(survey.TimestampLayout, doc.Timestamp); err != nil {
			r.addError("timestamp %q is not in %s form", doc.Timestamp, survey.TimestampLayout)
		}
	}

	keys := make([]string, 0, len(doc.Values))
	for key := range doc.Values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, ok := survey.LookupField(key); !ok {
			r.addError("unknown field %q", key)
		}
	}

	_, errs := doc.GridData()
	for _, f := range survey.StoryGridFields() {
		if err, bad := errs[f.Key]; bad {
			r.addError("field %s: %v", f.Key, err)
			continue
		}
		value := strings.TrimSpace(doc.Values[f.Key])
		if value == "" {
			continue
		}
		// A throwaway grid applies the same import rules as the editor.
		g := grid.New(grid.WithScenario(f.ScenarioKey))
		report, err := g.SetData([]byte(value))
		if err != nil {
			r.addError("field %s: %v", f.Key, err)
			continue
		}
		if report.Dropped > 0 {
			r.addWarning("field %s: %d entries have invalid or duplicate cells and are dropped", f.Key, report.Dropped)
		}
		if report.UnknownTypes > 0 {
			r.addWarning("field %s: %d entries have unknown character types", f.Key, report.UnknownTypes)
		}
	}
}

func validateScriptFile(filename string) *Report {
	r := &Report{File: filename}
	baseName := filepath.Base(filename)
	ext := filepath.Ext(baseName)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		r.addError("script file must have .json, .yaml or .yml extension: %s", baseName)
		return r
	}
	if !validScriptFilenameRegex.MatchString(strings.TrimSuffix(baseName, ext)) {
		r.addError("script filename '%s' must start with a letter and use only letters, digits, '-' or '_'", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		r.addError("failed to read file %s: %v", filename, err)
		return r
	}

	var s script.Script
	if ext == ".json" {
		if !json.Valid(data) {
			r.addError("file %s contains invalid JSON", filename)
			return r
		}
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		err = decoder.Decode(&s)
	} else {
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		err = decoder.Decode(&s)
	}
	if err != nil {
		r.addError("file %s failed strict unmarshaling: %v", filename, err)
		return r
	}
	if err := script.Validate(s); err != nil {
		r.addError("%v", err)
	}
	if len(s.Steps) > script.StepCount {
		r.addWarning("only the first %d of %d steps are used", script.StepCount, len(s.Steps))
	}
	return r
}
