package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-grid/internal/events"
	"github.com/jwebster45206/story-grid/internal/storage"
	"github.com/jwebster45206/story-grid/pkg/grid"
	"github.com/jwebster45206/story-grid/pkg/script"
	"github.com/jwebster45206/story-grid/pkg/survey"
)

const maxDraftBytes = 1 << 20

type StoryResponse struct {
	Field string `json:"field"`
	Story string `json:"story"`
}

type DraftsHandler struct {
	drafts    storage.DraftStore
	publisher events.Publisher
	resolver  *script.Resolver
	logger    *slog.Logger
	now       func() time.Time
}

// NewDraftsHandler creates a drafts handler. publisher may be nil when no
// event bus is configured.
func NewDraftsHandler(drafts storage.DraftStore, publisher events.Publisher, resolver *script.Resolver, logger *slog.Logger) *DraftsHandler {
	return &DraftsHandler{
		drafts:    drafts,
		publisher: publisher,
		resolver:  resolver,
		logger:    logger,
		now:       time.Now,
	}
}

// ServeHTTP handles HTTP requests for survey drafts
// Routes:
// POST /v1/drafts                 - Create a draft, generating a respondent id when absent
// GET /v1/drafts/{id}             - Read a draft
// PUT /v1/drafts/{id}             - Replace a draft
// DELETE /v1/drafts/{id}          - Delete a draft
// GET /v1/drafts/{id}/export      - Download a draft as a survey file
// GET /v1/drafts/{id}/story?field= - Tell the story of a story-grid field
func (h *DraftsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Extract respondent id and optional action from path
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/drafts"), "/"), "/")
	id, action := "", ""
	if parts[0] != "" {
		id = parts[0]
	}
	if len(parts) > 1 {
		action = parts[1]
	}
	if len(parts) > 2 {
		writeError(w, h.logger, http.StatusNotFound, "Not found")
		return
	}
	if id != "" {
		if err := storage.ValidateRespondentID(id); err != nil {
			h.logger.Warn("Invalid respondent ID", "id", id)
			writeError(w, h.logger, http.StatusBadRequest, "Invalid respondent ID format")
			return
		}
	}

	switch {
	case id == "" && r.Method == http.MethodPost:
		h.handleSave(w, r, "", http.StatusCreated)
	case id == "":
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
	case action == "export" && r.Method == http.MethodGet:
		h.handleExport(w, r, id)
	case action == "story" && r.Method == http.MethodGet:
		h.handleStory(w, r, id)
	case action != "":
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	case r.Method == http.MethodGet:
		h.handleGet(w, r, id)
	case r.Method == http.MethodPut:
		h.handleSave(w, r, id, http.StatusOK)
	case r.Method == http.MethodDelete:
		h.handleDelete(w, r, id)
	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *DraftsHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	doc, ok := h.load(w, r, id)
	if !ok {
		return
	}
	writeJSON(w, h.logger, http.StatusOK, doc)
}

// handleSave normalizes the posted document through a form, so story-grid
// values are stored in the current shape whatever shape they arrived in.
func (h *DraftsHandler) handleSave(w http.ResponseWriter, r *http.Request, id string, status int) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDraftBytes+1))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if len(body) > maxDraftBytes {
		writeError(w, h.logger, http.StatusRequestEntityTooLarge, "Draft too large")
		return
	}

	doc := survey.Document{Values: map[string]string{}}
	if len(strings.TrimSpace(string(body))) > 0 {
		doc, err = survey.DecodeDocument(body)
		if err != nil {
			h.logger.Warn("Invalid draft body", "error", err)
			writeError(w, h.logger, http.StatusBadRequest, "Invalid draft document", err.Error())
			return
		}
	}

	// A body id must match the path id
	switch {
	case id != "" && doc.RespondentID != "" && doc.RespondentID != id:
		writeError(w, h.logger, http.StatusBadRequest, "Respondent ID in body does not match path")
		return
	case id != "":
		doc.RespondentID = id
	case doc.RespondentID == "":
		doc.RespondentID = uuid.NewString()
	}
	if err := storage.ValidateRespondentID(doc.RespondentID); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid respondent ID format")
		return
	}

	// Collect unknown fields and unreadable grids
	var details []string
	for key := range doc.Values {
		if _, ok := survey.LookupField(key); !ok {
			details = append(details, "unknown field: "+key)
		}
	}
	form := survey.NewForm(
		survey.WithRespondentID(doc.RespondentID),
		survey.WithResolver(h.resolver),
		survey.WithLogger(h.logger),
		survey.WithClock(h.now),
	)
	defer form.Close()
	if err := form.Load(doc); err != nil {
		details = append(details, strings.Split(err.Error(), "\n")...)
	}
	if len(details) > 0 {
		writeError(w, h.logger, http.StatusUnprocessableEntity, "Draft has invalid fields", details...)
		return
	}
	saved := form.Snapshot()

	// Load the previous draft so only changed fields are published
	var previous survey.Document
	if id != "" {
		prev, err := h.drafts.LoadDraft(r.Context(), id)
		if err != nil && !errors.Is(err, storage.ErrDraftNotFound) {
			h.logger.Warn("Failed to load previous draft", "respondent_id", id, "error", err)
		}
		previous = prev
	}

	if err := h.drafts.SaveDraft(r.Context(), saved); err != nil {
		h.logger.Error("Failed to save draft", "respondent_id", saved.RespondentID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save draft")
		return
	}

	h.publishChanges(r, previous, saved)
	writeJSON(w, h.logger, status, saved)
}

func (h *DraftsHandler) publishChanges(r *http.Request, previous, saved survey.Document) {
	if h.publisher == nil {
		return
	}
	ctx := r.Context()
	for _, f := range survey.Fields() {
		value := saved.Values[f.Key]
		if previous.Values[f.Key] == value {
			continue
		}
		total := -1
		if f.IsStoryGrid() {
			total = 0
			var fd grid.FormData
			if err := json.Unmarshal([]byte(value), &fd); err == nil {
				total = fd.TotalElements
			}
		}
		if err := h.publisher.PublishFieldChanged(ctx, saved.RespondentID, f.Key, total); err != nil {
			h.logger.Warn("Failed to publish field change", "field", f.Key, "error", err)
		}
	}
	if err := h.publisher.PublishDraftSaved(ctx, saved.RespondentID, saved.Timestamp); err != nil {
		h.logger.Warn("Failed to publish draft saved", "respondent_id", saved.RespondentID, "error", err)
	}
}

func (h *DraftsHandler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.drafts.DeleteDraft(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrDraftNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Draft not found")
			return
		}
		h.logger.Error("Failed to delete draft", "respondent_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete draft")
		return
	}
	if h.publisher != nil {
		if err := h.publisher.PublishDraftDeleted(r.Context(), id); err != nil {
			h.logger.Warn("Failed to publish draft deleted", "respondent_id", id, "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DraftsHandler) handleExport(w http.ResponseWriter, r *http.Request, id string) {
	doc, ok := h.load(w, r, id)
	if !ok {
		return
	}
	data, err := doc.Encode()
	if err != nil {
		h.logger.Error("Failed to encode export", "respondent_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to export draft")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+survey.ExportFileName(doc.Values["name"])+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("Failed to write export", "error", err)
	}
}

func (h *DraftsHandler) handleStory(w http.ResponseWriter, r *http.Request, id string) {
	key := r.URL.Query().Get("field")
	f, ok := survey.LookupField(key)
	if !ok || !f.IsStoryGrid() {
		writeError(w, h.logger, http.StatusBadRequest, "field must name a story-grid field")
		return
	}
	doc, ok := h.load(w, r, id)
	if !ok {
		return
	}

	form := survey.NewForm(survey.WithRespondentID(id), survey.WithResolver(h.resolver), survey.WithLogger(h.logger))
	defer form.Close()
	if err := form.Load(doc); err != nil {
		h.logger.Warn("Draft has unreadable fields", "respondent_id", id, "error", err)
	}
	story, err := form.Story(key, r.URL.Query().Get("needs"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, h.logger, http.StatusOK, StoryResponse{Field: key, Story: story})
}

func (h *DraftsHandler) load(w http.ResponseWriter, r *http.Request, id string) (survey.Document, bool) {
	doc, err := h.drafts.LoadDraft(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrDraftNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Draft not found")
			return survey.Document{}, false
		}
		h.logger.Error("Failed to load draft", "respondent_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load draft")
		return survey.Document{}, false
	}
	return doc, true
}
