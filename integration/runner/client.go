package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/jwebster45206/story-grid/pkg/survey"
)

// Response is a raw API response
type Response struct {
	Status   int
	Body     []byte
	FileName string // From Content-Disposition, when present
}

// draftRequest is the body sent for put steps. Grid values may be given as
// JSON objects in case files; the API re-encodes them.
type draftRequest struct {
	Values       map[string]any `json:"values"`
	RespondentID string         `json:"respondentId,omitempty"`
}

// Do sends a request and reads the whole response
func Do(ctx context.Context, client *http.Client, method, url string, body any) (Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return Response{}, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return Response{}, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("failed to send %s request: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read response: %w", err)
	}
	out := Response{Status: resp.StatusCode, Body: data}
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			out.FileName = params["filename"]
		}
	}
	return out, nil
}

// CreateDraft posts a new draft and returns the stored document
func CreateDraft(ctx context.Context, client *http.Client, baseURL string, values map[string]any) (survey.Document, error) {
	if values == nil {
		values = map[string]any{}
	}
	resp, err := Do(ctx, client, http.MethodPost, baseURL+"/v1/drafts", draftRequest{Values: values})
	if err != nil {
		return survey.Document{}, err
	}
	if resp.Status != http.StatusCreated {
		return survey.Document{}, fmt.Errorf("create draft returned %d (expected 201): %s", resp.Status, string(resp.Body))
	}
	return survey.DecodeDocument(resp.Body)
}

// PutDraft replaces a draft
func PutDraft(ctx context.Context, client *http.Client, baseURL, respondentID string, values map[string]any) (Response, error) {
	return Do(ctx, client, http.MethodPut, draftURL(baseURL, respondentID, ""), draftRequest{Values: values, RespondentID: respondentID})
}

// GetDraft retrieves the stored draft
func GetDraft(ctx context.Context, client *http.Client, baseURL, respondentID string) (survey.Document, error) {
	resp, err := Do(ctx, client, http.MethodGet, draftURL(baseURL, respondentID, ""), nil)
	if err != nil {
		return survey.Document{}, err
	}
	if resp.Status != http.StatusOK {
		return survey.Document{}, fmt.Errorf("draft endpoint returned %d: %s", resp.Status, string(resp.Body))
	}
	return survey.DecodeDocument(resp.Body)
}

func draftURL(baseURL, respondentID, action string) string {
	u := baseURL + "/v1/drafts/" + url.PathEscape(respondentID)
	if action != "" {
		u += "/" + action
	}
	return u
}
