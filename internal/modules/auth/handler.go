package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"familytree/internal/domain"
	"familytree/internal/middleware"
	jwtsvc "familytree/internal/pkg/jwt"
	"familytree/internal/pkg/response"
	"familytree/internal/pkg/validator"

	"github.com/gin-gonic/gin"
)

// Cookie carrying the refresh token between rotations.
const RefreshTokenCookie = "refreshToken"

// Handler manages all HTTP interactions for authentication
type Handler struct {
	service        *Service
	jwt            tokenCodec
	cookieSecure   bool
	cookieSameSite string
	cookiePath     string
	accessTTL      time.Duration
	refreshTTL     time.Duration
}

func NewHandler(service *Service, jwt tokenCodec, cookieSecure bool, cookieSameSite, cookiePath string, accessTTL, refreshTTL time.Duration) *Handler {
	return &Handler{
		service:        service,
		jwt:            jwt,
		cookieSecure:   cookieSecure,
		cookieSameSite: cookieSameSite,
		cookiePath:     cookiePath,
		accessTTL:      accessTTL,
		refreshTTL:     refreshTTL,
	}
}

// RegisterPublicRoutes mounts the auth endpoints. Login and refresh take a
// rate-limit guard because they are the two credential-exchange paths.
func (h *Handler) RegisterPublicRoutes(api *gin.RouterGroup, loginGuard, refreshGuard gin.HandlerFunc) {
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", h.Signup)
		authGroup.POST("/login", loginGuard, h.Login)
		authGroup.POST("/refresh", refreshGuard, h.Refresh)
		authGroup.POST("/logout", h.Logout)
	}
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	userGroup := protected.Group("/users")
	{
		userGroup.GET("/me", h.GetMe)
	}
}

func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}
	if fields := validator.Validate(&req); fields != nil {
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request validation failed", fields)
		return
	}

	user, pair, err := h.service.Signup(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			response.Error(c, http.StatusConflict, "EMAIL_EXISTS", "This email is already registered")
			return
		}
		response.Error(c, http.StatusInternalServerError, "SIGNUP_FAILED", "Failed to create account")
		return
	}

	h.setTokenCookies(c, pair)
	response.Success(c, http.StatusCreated, gin.H{
		"user":   toPublic(user),
		"tokens": toPairResponse(pair),
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}
	if fields := validator.Validate(&req); fields != nil {
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request validation failed", fields)
		return
	}

	user, pair, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Email or password is incorrect")
			return
		}
		response.Error(c, http.StatusInternalServerError, "LOGIN_FAILED", "Failed to login")
		return
	}

	h.setTokenCookies(c, pair)
	response.Success(c, http.StatusOK, gin.H{
		"user":   toPublic(user),
		"tokens": toPairResponse(pair),
	})
}

func (h *Handler) Refresh(c *gin.Context) {
	refreshRaw := h.extractRefreshToken(c)
	if refreshRaw == "" {
		response.Error(c, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Refresh token is missing")
		return
	}

	pair, err := h.service.Refresh(c.Request.Context(), refreshRaw)
	if err != nil {
		switch {
		case errors.Is(err, jwtsvc.ErrTokenExpired):
			response.Error(c, http.StatusUnauthorized, "TOKEN_EXPIRED", "Refresh token has expired")
		case errors.Is(err, jwtsvc.ErrTokenMalformed):
			response.Error(c, http.StatusUnauthorized, "TOKEN_MALFORMED", "Refresh token is malformed")
		case errors.Is(err, jwtsvc.ErrTokenInvalid), errors.Is(err, ErrInvalidRefreshToken):
			response.Error(c, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Refresh token is invalid")
		default:
			response.Error(c, http.StatusInternalServerError, "REFRESH_FAILED", "Failed to refresh session")
		}
		return
	}

	h.setTokenCookies(c, pair)
	response.Success(c, http.StatusOK, gin.H{
		"tokens": toPairResponse(pair),
	})
}

// Logout resolves the user from the request principal when one is present,
// falling back to the refresh token itself (the filter bypasses this path,
// so cookie-based clients arrive without a principal).
func (h *Handler) Logout(c *gin.Context) {
	userID := c.GetInt64(middleware.CtxUserID)
	if userID == 0 {
		if refreshRaw := h.extractRefreshToken(c); refreshRaw != "" {
			if id, err := h.jwt.Verify(refreshRaw); err == nil {
				userID = id.UserID
			}
		}
	}
	if userID == 0 {
		response.Error(c, http.StatusUnauthorized, middleware.CodeAuthRequired, "Authentication required")
		return
	}

	if err := h.service.Logout(c.Request.Context(), userID); err != nil {
		response.Error(c, http.StatusInternalServerError, "LOGOUT_FAILED", "Failed to logout")
		return
	}

	h.clearTokenCookies(c)
	response.Success(c, http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

func (h *Handler) GetMe(c *gin.Context) {
	userID := c.GetInt64(middleware.CtxUserID)

	user, err := h.service.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "User not found")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user": user,
	})
}

// extractRefreshToken prefers the request body, falling back to the
// HttpOnly cookie set on login.
func (h *Handler) extractRefreshToken(c *gin.Context) string {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err == nil && strings.TrimSpace(req.RefreshToken) != "" {
		return strings.TrimSpace(req.RefreshToken)
	}

	cookie, err := c.Cookie(RefreshTokenCookie)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie)
}

func (h *Handler) setTokenCookies(c *gin.Context, pair *TokenPair) {
	c.SetSameSite(parseSameSite(h.cookieSameSite))
	c.SetCookie(middleware.AccessTokenCookie, pair.AccessToken, int(h.accessTTL.Seconds()), h.cookiePath, "", h.cookieSecure, true)
	c.SetCookie(RefreshTokenCookie, pair.RefreshToken, int(h.refreshTTL.Seconds()), h.cookiePath, "", h.cookieSecure, true)
}

func (h *Handler) clearTokenCookies(c *gin.Context) {
	c.SetSameSite(parseSameSite(h.cookieSameSite))
	c.SetCookie(middleware.AccessTokenCookie, "", -1, h.cookiePath, "", h.cookieSecure, true)
	c.SetCookie(RefreshTokenCookie, "", -1, h.cookiePath, "", h.cookieSecure, true)
}

func toPairResponse(pair *TokenPair) TokenPairResponse {
	return TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
	}
}

func toPublic(u *domain.User) UserPublic {
	return UserPublic{
		ID:    u.ID,
		Role:  string(u.Role),
		Name:  u.Name,
		Email: u.Email,
	}
}

func parseSameSite(mode string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
