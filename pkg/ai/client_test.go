package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"unimate-go/internal/config"
	"unimate-go/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string, timeoutSeconds int) Client {
	return NewClient(config.AIConfig{BaseURL: baseURL, TimeoutSeconds: timeoutSeconds})
}

func TestChat_Success(t *testing.T) {
	var gotReq ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ai/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(ChatResponse{
			Message: "hello there",
			Sources: []string{"kb/1"},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 5)
	resp, err := client.Chat(context.Background(), &ChatRequest{
		Message:   "hi",
		UserID:    "42",
		SessionID: "session_42_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Reply())
	assert.Equal(t, []string{"kb/1"}, resp.Sources)
	assert.Equal(t, "hi", gotReq.Message)
	assert.Equal(t, "session_42_1", gotReq.SessionID)
}

func TestChat_StatusCodeMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   apperr.Kind
	}{
		{"bad request", http.StatusBadRequest, apperr.KindInvalidInput},
		{"rate limited", http.StatusTooManyRequests, apperr.KindRateLimited},
		{"server error", http.StatusInternalServerError, apperr.KindUnavailable},
		{"bad gateway", http.StatusBadGateway, apperr.KindUnavailable},
		{"unexpected redirect", http.StatusFound, apperr.KindUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := newTestClient(server.URL, 5)
			_, err := client.Chat(context.Background(), &ChatRequest{Message: "hi"})
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
}

func TestChat_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(3 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL, 1)
	start := time.Now()
	_, err := client.Chat(context.Background(), &ChatRequest{Message: "hi"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindTimeout, apperr.KindOf(err))
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestChat_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	client := newTestClient(url, 1)
	_, err := client.Chat(context.Background(), &ChatRequest{Message: "hi"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
}

func TestChat_MalformedResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 5)
	_, err := client.Chat(context.Background(), &ChatRequest{Message: "hi"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
}

func TestChatResponse_Reply(t *testing.T) {
	assert.Equal(t, "a", (&ChatResponse{Message: "a", Response: "b", Content: "c"}).Reply())
	assert.Equal(t, "b", (&ChatResponse{Response: "b", Content: "c"}).Reply())
	assert.Equal(t, "c", (&ChatResponse{Content: "c"}).Reply())
	assert.Equal(t, DefaultReply, (&ChatResponse{}).Reply())
}
