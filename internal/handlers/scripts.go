package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/story-grid/pkg/script"
)

type ScriptsResponse struct {
	Scripts []script.Script `json:"scripts"`
	Stats   script.Stats    `json:"stats"`
}

type StructureResponse struct {
	Key       string            `json:"key"`
	Structure []script.StepInfo `json:"structure"`
}

type ScriptsHandler struct {
	resolver *script.Resolver
	logger   *slog.Logger
}

func NewScriptsHandler(resolver *script.Resolver, logger *slog.Logger) *ScriptsHandler {
	return &ScriptsHandler{
		resolver: resolver,
		logger:   logger,
	}
}

// ServeHTTP handles script queries
// Routes:
// GET /v1/scripts       - List scripts with stats
// GET /v1/scripts/{key} - Resolve a script into a step path
func (h *ScriptsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	key := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/scripts"), "/")
	if key == "" {
		h.handleList(w)
		return
	}
	h.handleResolve(w, key)
}

func (h *ScriptsHandler) handleList(w http.ResponseWriter) {
	keys := h.resolver.Keys()
	resp := ScriptsResponse{
		Scripts: make([]script.Script, 0, len(keys)),
		Stats:   h.resolver.Stats(),
	}
	for _, k := range keys {
		if s, ok := h.resolver.Script(k); ok {
			resp.Scripts = append(resp.Scripts, s)
		}
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

// handleResolve draws a fresh resolution on every call. Callers that render
// it must keep the result rather than asking again.
func (h *ScriptsHandler) handleResolve(w http.ResponseWriter, key string) {
	if _, ok := h.resolver.Script(key); !ok {
		writeError(w, h.logger, http.StatusNotFound, "Script not found")
		return
	}
	st := h.resolver.Resolve(key)
	writeJSON(w, h.logger, http.StatusOK, StructureResponse{Key: key, Structure: st[:]})
}
