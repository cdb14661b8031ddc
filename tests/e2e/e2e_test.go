package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"familytree/internal/database"
	"familytree/internal/domain"
	"familytree/internal/middleware"
	"familytree/internal/modules/auth"
	jwtsvc "familytree/internal/pkg/jwt"
	"familytree/internal/pkg/ratelimit"
	"familytree/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "e2e-secret"
	testIssuer = "familytree-e2e"
	loginLimit = 5
)

type TestResponse struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   *ErrorDetail           `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"traceId"`
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.RefreshToken{}))

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)

	j := jwtsvc.New(testSecret, testIssuer)
	limiter := ratelimit.New()

	authService := auth.NewService(userRepo, tokenRepo, j, "e2e-pepper", 5*time.Minute, 7*24*time.Hour)
	authHandler := auth.NewHandler(authService, j, false, "Lax", "/", 5*time.Minute, 7*24*time.Hour)

	r := gin.New()
	r.Use(middleware.ErrorLogger())
	r.Use(middleware.JWTAuth(j))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	authHandler.RegisterPublicRoutes(api,
		middleware.RateLimit(limiter, loginLimit, time.Minute),
		middleware.RateLimit(limiter, 20, time.Minute),
	)

	protected := api.Group("/")
	protected.Use(middleware.RequireAuth())
	authHandler.RegisterProtectedRoutes(protected)

	return r
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any, header map[string]string) (*httptest.ResponseRecorder, *TestResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var parsed TestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	return w, &parsed
}

func tokensFrom(t *testing.T, resp *TestResponse) (access, refresh string) {
	t.Helper()

	tokens, ok := resp.Data["tokens"].(map[string]interface{})
	require.True(t, ok, "response has no tokens: %+v", resp)
	access, _ = tokens["accessToken"].(string)
	refresh, _ = tokens["refreshToken"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	return access, refresh
}

func TestAuthFlow(t *testing.T) {
	router := setupRouter(t)

	// Signup issues a full pair.
	w, resp := doJSON(t, router, "POST", "/api/auth/signup", gin.H{
		"name":     "Anna Lee",
		"email":    "anna@example.com",
		"password": "supersecret1",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	access, refresh := tokensFrom(t, resp)

	tokens := resp.Data["tokens"].(map[string]interface{})
	assert.Equal(t, "Bearer", tokens["tokenType"])
	assert.Equal(t, float64(300), tokens["expiresIn"])

	// Access token opens the protected surface.
	w, resp = doJSON(t, router, "GET", "/api/users/me", nil, map[string]string{
		"Authorization": "Bearer " + access,
	})
	require.Equal(t, http.StatusOK, w.Code)
	user := resp.Data["user"].(map[string]interface{})
	assert.Equal(t, "anna@example.com", user["email"])

	// No credentials on a protected endpoint: 401 from the authorization
	// layer, not an exception from the filter.
	w, resp = doJSON(t, router, "GET", "/api/users/me", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, middleware.CodeAuthRequired, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.TraceID)

	// Refresh rotates the pair.
	w, resp = doJSON(t, router, "POST", "/api/auth/refresh", gin.H{"refreshToken": refresh}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, rotated := tokensFrom(t, resp)
	assert.NotEqual(t, refresh, rotated)

	// The consumed refresh token is dead.
	w, resp = doJSON(t, router, "POST", "/api/auth/refresh", gin.H{"refreshToken": refresh}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", resp.Error.Code)

	// Logout via the rotated token, then nothing refreshes any more.
	w, _ = doJSON(t, router, "POST", "/api/auth/logout", gin.H{"refreshToken": rotated}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = doJSON(t, router, "POST", "/api/auth/refresh", gin.H{"refreshToken": rotated}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", resp.Error.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	router := setupRouter(t)

	w, _ := doJSON(t, router, "POST", "/api/auth/signup", gin.H{
		"name":     "Bob",
		"email":    "bob@example.com",
		"password": "supersecret1",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp := doJSON(t, router, "POST", "/api/auth/login", gin.H{
		"email":    "bob@example.com",
		"password": "wrong-password",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", resp.Error.Code)
}

func TestLogin_RateLimited(t *testing.T) {
	router := setupRouter(t)

	body := gin.H{"email": "nobody@example.com", "password": "irrelevant1"}
	for i := 0; i < loginLimit; i++ {
		w, _ := doJSON(t, router, "POST", "/api/auth/login", body, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code, "attempt %d", i+1)
	}

	// The (N+1)th attempt inside the window is throttled.
	w, resp := doJSON(t, router, "POST", "/api/auth/login", body, nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", resp.Error.Code)
	assert.NotEmpty(t, resp.Error.TraceID)
}

func TestExpiredAccessToken(t *testing.T) {
	router := setupRouter(t)

	expired, err := jwtsvc.New(testSecret, testIssuer).Issue(1, "x@example.com", "X", "user", -1*time.Second)
	require.NoError(t, err)

	w, resp := doJSON(t, router, "GET", "/api/users/me", nil, map[string]string{
		"Authorization": "Bearer " + expired,
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, middleware.CodeTokenExpired, resp.Error.Code)
}
