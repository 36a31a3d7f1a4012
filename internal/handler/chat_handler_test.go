package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"unimate-go/internal/model"
	"unimate-go/internal/service"
	"unimate-go/pkg/apperr"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChatService 是 service.ChatService 的测试替身。
type fakeChatService struct {
	sendResult *service.SendResult
	sendErr    error
	history    *service.HistoryPage
	deleteErr  error

	lastMessage string
	lastPage    int
	lastLimit   int
	lastConvID  string
}

func (f *fakeChatService) Send(_ context.Context, _ *model.User, message string, _ *service.SendContext) (*service.SendResult, error) {
	f.lastMessage = message
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return f.sendResult, nil
}

func (f *fakeChatService) History(_ context.Context, _ uint, page, limit int) (*service.HistoryPage, error) {
	f.lastPage = page
	f.lastLimit = limit
	return f.history, nil
}

func (f *fakeChatService) Delete(_ context.Context, _ uint, conversationID string) error {
	f.lastConvID = conversationID
	return f.deleteErr
}

var _ service.ChatService = (*fakeChatService)(nil)

// chatRouter 用注入的假用户代替完整的认证中间件。
func chatRouter(svc service.ChatService) *gin.Engine {
	h := NewChatHandler(svc)
	r := gin.New()
	injectUser := func(c *gin.Context) {
		c.Set("user", &model.User{ID: 7, Email: "student@example.com", Role: model.RoleStudent})
	}
	r.POST("/api/chat/send", injectUser, h.Send)
	r.GET("/api/chat/history", injectUser, h.History)
	r.DELETE("/api/chat/history/:id", injectUser, h.Delete)
	return r
}

func TestChatSend_Success(t *testing.T) {
	svc := &fakeChatService{sendResult: &service.SendResult{
		Reply:   "here is your answer",
		Sources: []string{"kb/1"},
		Context: model.ConversationContext{Stage: "application"},
	}}
	router := chatRouter(svc)

	w := postJSON(t, router, "/api/chat/send", gin.H{"message": "what are the deadlines?"})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "here is your answer", body["message"])
	assert.Equal(t, []interface{}{"kb/1"}, body["sources"])
	assert.Equal(t, "what are the deadlines?", svc.lastMessage)
}

func TestChatSend_MalformedBody(t *testing.T) {
	router := chatRouter(&fakeChatService{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat/send", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Message is required and must be a non-empty string", decodeBody(t, w)["message"])
}

func TestChatSend_UpstreamErrorStatus(t *testing.T) {
	tests := []struct {
		kind   apperr.Kind
		status int
	}{
		{apperr.KindTimeout, http.StatusGatewayTimeout},
		{apperr.KindUnavailable, http.StatusServiceUnavailable},
		{apperr.KindRateLimited, http.StatusTooManyRequests},
		{apperr.KindInvalidInput, http.StatusBadRequest},
	}
	for _, tt := range tests {
		router := chatRouter(&fakeChatService{sendErr: apperr.New(tt.kind, "upstream trouble")})
		w := postJSON(t, router, "/api/chat/send", gin.H{"message": "hi"})
		assert.Equal(t, tt.status, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "upstream trouble", body["message"])
	}
}

func TestChatHistory_DefaultsAndPassThrough(t *testing.T) {
	svc := &fakeChatService{history: &service.HistoryPage{
		Conversations: []model.Conversation{},
		Pagination:    service.Pagination{Page: 1, Limit: 20},
	}}
	router := chatRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/chat/history", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, svc.lastPage)
	assert.Equal(t, 20, svc.lastLimit)

	req = httptest.NewRequest(http.MethodGet, "/api/chat/history?page=3&limit=5", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, 3, svc.lastPage)
	assert.Equal(t, 5, svc.lastLimit)

	var body struct {
		Success       bool                   `json:"success"`
		Conversations []model.Conversation   `json:"conversations"`
		Pagination    map[string]interface{} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.NotNil(t, body.Pagination)
}

func TestChatDelete_Success(t *testing.T) {
	svc := &fakeChatService{}
	router := chatRouter(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/chat/history/42", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Conversation deleted successfully", decodeBody(t, w)["message"])
	assert.Equal(t, "42", svc.lastConvID)
}

func TestChatDelete_NotFound(t *testing.T) {
	router := chatRouter(&fakeChatService{
		deleteErr: apperr.New(apperr.KindNotFound, "Conversation not found or you do not have permission to delete it"),
	})

	req := httptest.NewRequest(http.MethodDelete, "/api/chat/history/999", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Conversation not found or you do not have permission to delete it", body["message"])
}
