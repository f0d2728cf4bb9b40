package handlers

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jwebster45206/story-grid/internal/events"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEventsRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// readEvent reads one SSE frame and returns its event name and data line.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if name != "" {
				return name, data
			}
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEventsHandler_StreamsPublishedEvents(t *testing.T) {
	client := setupEventsRedis(t)
	srv := httptest.NewServer(NewEventsHandler(client, testLogger()))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/events/drafts/resp-1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body := bufio.NewReader(resp.Body)
	name, data := readEvent(t, body)
	assert.Equal(t, "connected", name)
	assert.Contains(t, data, `"respondent_id":"resp-1"`)

	b := events.NewBroadcaster(client, testLogger())
	require.NoError(t, b.PublishFieldChanged(ctx, "resp-1", "routeMap2-1", 3))
	require.NoError(t, b.PublishFieldChanged(ctx, "resp-2", "name", -1))
	require.NoError(t, b.PublishDraftSaved(ctx, "resp-1", "2025-01-01T00:00:00.000Z"))

	name, data = readEvent(t, body)
	assert.Equal(t, string(events.EventTypeFieldChanged), name)
	assert.JSONEq(t, `{"field":"routeMap2-1","total_elements":3}`, data)

	name, data = readEvent(t, body)
	assert.Equal(t, string(events.EventTypeDraftSaved), name)
	assert.Contains(t, data, "2025-01-01T00:00:00.000Z")
}

func TestEventsHandler_Keepalive(t *testing.T) {
	client := setupEventsRedis(t)
	h := NewEventsHandler(client, testLogger())
	h.keepalive = 20 * time.Millisecond
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/events/drafts/resp-1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body := bufio.NewReader(resp.Body)
	name, _ := readEvent(t, body)
	require.Equal(t, "connected", name)

	for {
		line, err := body.ReadString('\n')
		require.NoError(t, err)
		if line == ": keepalive\n" {
			break
		}
	}
}

func TestEventsHandler_Rejections(t *testing.T) {
	client := setupEventsRedis(t)
	h := NewEventsHandler(client, testLogger())

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"post", http.MethodPost, "/v1/events/drafts/resp-1", http.StatusMethodNotAllowed},
		{"missing id", http.MethodGet, "/v1/events/drafts", http.StatusBadRequest},
		{"wrong resource", http.MethodGet, "/v1/events/games/resp-1", http.StatusBadRequest},
		{"invalid id", http.MethodGet, "/v1/events/drafts/a.b", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
