package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"unimate-go/internal/model"
	"unimate-go/internal/service"
	"unimate-go/pkg/apperr"
	"unimate-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	log.Init("error", "console", "")
	os.Exit(m.Run())
}

// fakeAuthService 是 service.AuthService 的测试替身。
type fakeAuthService struct {
	registerErr error
	loginErr    error
	refreshErr  error
	logoutErr   error
	user        *model.User
}

func (f *fakeAuthService) Register(_ context.Context, email, _ string) (*model.User, string, string, error) {
	if f.registerErr != nil {
		return nil, "", "", f.registerErr
	}
	return &model.User{ID: 1, Email: email, Role: model.RoleStudent}, "access-token", "refresh-token", nil
}

func (f *fakeAuthService) Login(_ context.Context, email, _ string) (*model.User, string, string, error) {
	if f.loginErr != nil {
		return nil, "", "", f.loginErr
	}
	return &model.User{ID: 1, Email: email, Role: model.RoleStudent}, "access-token", "refresh-token", nil
}

func (f *fakeAuthService) Refresh(_ context.Context, _ string) (string, string, error) {
	if f.refreshErr != nil {
		return "", "", f.refreshErr
	}
	return "new-access", "new-refresh", nil
}

func (f *fakeAuthService) GetUserByID(uint) (*model.User, error) {
	if f.user == nil {
		return nil, apperr.New(apperr.KindUnauthorized, "User not found")
	}
	return f.user, nil
}

func (f *fakeAuthService) Logout(context.Context, string) error { return f.logoutErr }

func (f *fakeAuthService) IsTokenRevoked(context.Context, string) (bool, error) {
	return false, nil
}

var _ service.AuthService = (*fakeAuthService)(nil)

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func authRouter(svc service.AuthService) *gin.Engine {
	h := NewAuthHandler(svc)
	r := gin.New()
	r.POST("/api/auth/register", h.Register)
	r.POST("/api/auth/login", h.Login)
	r.POST("/api/auth/refresh", h.Refresh)
	return r
}

func TestRegister_Success(t *testing.T) {
	router := authRouter(&fakeAuthService{})

	w := postJSON(t, router, "/api/auth/register", gin.H{
		"email":    "new@example.com",
		"password": "Secret123",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "User created successfully", body["message"])
	assert.Equal(t, "access-token", body["token"])
	assert.Equal(t, "refresh-token", body["refreshToken"])

	user := body["user"].(map[string]interface{})
	assert.Equal(t, "new@example.com", user["email"])
	// 密码散列绝不能出现在响应中
	_, leaked := user["password"]
	assert.False(t, leaked)
}

func TestRegister_MissingFields(t *testing.T) {
	router := authRouter(&fakeAuthService{})

	for _, body := range []gin.H{
		{},
		{"email": "new@example.com"},
		{"password": "Secret123"},
	} {
		w := postJSON(t, router, "/api/auth/register", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeBody(t, w)
		assert.Equal(t, false, resp["success"])
		assert.Equal(t, "Email and password are required", resp["message"])
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	router := authRouter(&fakeAuthService{
		registerErr: apperr.New(apperr.KindConflict, "User with this email already exists"),
	})

	w := postJSON(t, router, "/api/auth/register", gin.H{
		"email":    "taken@example.com",
		"password": "Secret123",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "User with this email already exists", body["message"])
}

func TestLogin_Success(t *testing.T) {
	router := authRouter(&fakeAuthService{})

	w := postJSON(t, router, "/api/auth/login", gin.H{
		"email":    "user@example.com",
		"password": "Secret123",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Login successful", body["message"])
	assert.NotEmpty(t, body["token"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	router := authRouter(&fakeAuthService{
		loginErr: apperr.New(apperr.KindUnauthorized, "Invalid email or password"),
	})

	w := postJSON(t, router, "/api/auth/login", gin.H{
		"email":    "user@example.com",
		"password": "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Invalid email or password", body["message"])
}

func TestRefresh_Success(t *testing.T) {
	router := authRouter(&fakeAuthService{})

	w := postJSON(t, router, "/api/auth/refresh", gin.H{"refreshToken": "some-token"})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "new-access", body["token"])
	assert.Equal(t, "new-refresh", body["refreshToken"])
}

func TestRefresh_MissingToken(t *testing.T) {
	router := authRouter(&fakeAuthService{})

	w := postJSON(t, router, "/api/auth/refresh", gin.H{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Refresh token is required", decodeBody(t, w)["message"])
}

func TestRefresh_Expired(t *testing.T) {
	router := authRouter(&fakeAuthService{
		refreshErr: apperr.New(apperr.KindUnauthorized, "Refresh token expired"),
	})

	w := postJSON(t, router, "/api/auth/refresh", gin.H{"refreshToken": "stale"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Refresh token expired", decodeBody(t, w)["message"])
}
