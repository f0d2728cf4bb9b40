package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jwebster45206/story-grid/internal/storage"
	"github.com/jwebster45206/story-grid/pkg/survey"
)

// ErrorResponse matches the API error body.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// apiStore keeps drafts on a story-grid API server.
type apiStore struct {
	client  *http.Client
	baseURL string
}

var _ storage.DraftStore = (*apiStore)(nil)

func newAPIStore(client *http.Client, baseURL string) *apiStore {
	return &apiStore{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *apiStore) Ping(ctx context.Context) error {
	_, err := s.do(ctx, http.MethodGet, "/health", nil, http.StatusOK)
	return err
}

func (s *apiStore) Close() error { return nil }

func (s *apiStore) SaveDraft(ctx context.Context, doc survey.Document) error {
	if err := storage.ValidateRespondentID(doc.RespondentID); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	_, err = s.do(ctx, http.MethodPut, "/v1/drafts/"+doc.RespondentID, data, http.StatusOK)
	return err
}

func (s *apiStore) LoadDraft(ctx context.Context, respondentID string) (survey.Document, error) {
	if err := storage.ValidateRespondentID(respondentID); err != nil {
		return survey.Document{}, err
	}
	body, err := s.do(ctx, http.MethodGet, "/v1/drafts/"+respondentID, nil, http.StatusOK)
	if err != nil {
		return survey.Document{}, err
	}
	return survey.DecodeDocument(body)
}

func (s *apiStore) DeleteDraft(ctx context.Context, respondentID string) error {
	if err := storage.ValidateRespondentID(respondentID); err != nil {
		return err
	}
	_, err := s.do(ctx, http.MethodDelete, "/v1/drafts/"+respondentID, nil, http.StatusNoContent)
	return err
}

func (s *apiStore) do(ctx context.Context, method, path string, payload []byte, want int) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound && strings.HasPrefix(path, "/v1/drafts/") {
		return nil, storage.ErrDraftNotFound
	}
	if resp.StatusCode != want {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Error == "" {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		if len(errorResp.Details) > 0 {
			return nil, fmt.Errorf("%s: %s", errorResp.Error, strings.Join(errorResp.Details, "; "))
		}
		return nil, fmt.Errorf("%s", errorResp.Error)
	}
	return body, nil
}

// SSEEvent represents an event from the SSE stream
type SSEEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// listenToSSE connects to a respondent's event stream and forwards events
// until ctx ends or the stream closes.
func listenToSSE(ctx context.Context, client *http.Client, baseURL, respondentID string, eventChan chan<- SSEEvent) error {
	url := fmt.Sprintf("%s/v1/events/drafts/%s", strings.TrimRight(baseURL, "/"), respondentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to SSE: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("SSE connection failed with status %d: %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	var currentEvent SSEEvent

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			// Empty line signals end of event
			if currentEvent.Type != "" {
				select {
				case eventChan <- currentEvent:
				case <-ctx.Done():
					return ctx.Err()
				}
				currentEvent = SSEEvent{}
			}
			continue
		}

		if strings.HasPrefix(line, "event: ") {
			currentEvent.Type = strings.TrimPrefix(line, "event: ")
		} else if strings.HasPrefix(line, "data: ") {
			var data map[string]any
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &data); err == nil {
				currentEvent.Data = data
			}
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error reading SSE stream: %w", err)
	}
	return nil
}
