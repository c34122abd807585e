package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/locallibrary/internal/config"
)

// DefaultLoginRedirect is where a successful login lands without a "next".
const DefaultLoginRedirect = "/catalog/"

// isLocalPath validates that a redirect path is local to prevent open redirect attacks.
func isLocalPath(path string) bool {
	if path == "" {
		return false
	}

	// Must start with /
	if !strings.HasPrefix(path, "/") {
		return false
	}

	// Reject protocol-relative URLs (//evil.com)
	if strings.HasPrefix(path, "//") {
		return false
	}

	if strings.Contains(path, "://") {
		return false
	}

	if strings.Contains(path, "\\") {
		return false
	}

	return true
}

// sanitizeRedirectPath returns a safe redirect path, defaulting to the
// catalog index if invalid.
func sanitizeRedirectPath(path string) string {
	if isLocalPath(path) {
		return path
	}
	return DefaultLoginRedirect
}

// AuthEventLogger records login and logout attempts.
type AuthEventLogger interface {
	LogAuth(userID uint, action string, ipAddr, userAgent string, success bool)
}

// AuthController handles authentication-related HTTP endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	rateLimiter    *RateLimiter
	events         AuthEventLogger
}

// NewAuthController creates a new authentication controller. events may be nil.
func NewAuthController(service *Service, sessionManager *SessionManager, cfg config.Auth, events AuthEventLogger) *AuthController {
	rateLimiter := NewRateLimiter(RateLimitConfig{
		MaxAttempts:     cfg.MaxLoginAttempts,
		WindowDuration:  cfg.RateLimitWindow,
		LockoutDuration: cfg.LockoutDuration,
	})

	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		rateLimiter:    rateLimiter,
		events:         events,
	}
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router gin.IRouter) {
	accounts := router.Group("/accounts")
	accounts.GET("/login/", ac.LoginPage)
	accounts.POST("/login/", ac.Login)
	accounts.POST("/logout/", ac.Logout)
	accounts.GET("/logout/", ac.Logout)
	accounts.POST("/password/", ac.ChangePassword)
}

// Stop cleans up resources (rate limiter background goroutine).
func (ac *AuthController) Stop() {
	if ac.rateLimiter != nil {
		ac.rateLimiter.Stop()
	}
}

type loginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
	Next     string `form:"next" json:"next"`
}

// LoginPage describes the login form.
func (ac *AuthController) LoginPage(c *gin.Context) {
	next := sanitizeRedirectPath(c.Query("next"))

	if IsAuthenticated(c) {
		c.Redirect(http.StatusFound, next)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"next":       next,
		"csrf_token": GetCSRFToken(c),
		"fields":     []string{"username", "password"},
	})
}

// Login checks credentials, starts a session and redirects to "next".
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Next == "" {
		req.Next = c.Query("next")
	}
	next := sanitizeRedirectPath(req.Next)
	clientIP := c.ClientIP()

	if req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	if ac.rateLimiter != nil {
		allowed, retryAfter := ac.rateLimiter.Allow(clientIP, req.Username)
		if !allowed {
			c.Header("Retry-After", retryAfter.String())
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many login attempts",
				"retry_after": retryAfter.String(),
			})
			return
		}
	}

	user, err := ac.service.Authenticate(req.Username, req.Password)
	if err != nil {
		if ac.rateLimiter != nil {
			ac.rateLimiter.RecordFailure(clientIP, req.Username)
		}
		ac.logEvent(c, 0, "login", false)

		msg := "invalid username or password"
		if errors.Is(err, ErrAccountLocked) {
			msg = "account is locked, try again later"
		} else if !errors.Is(err, ErrUserNotFound) && !errors.Is(err, ErrInvalidPassword) {
			log.Printf("Login failed for %q: %v", req.Username, err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": msg, "next": next})
		return
	}

	if ac.rateLimiter != nil {
		ac.rateLimiter.RecordSuccess(clientIP, req.Username)
	}

	if ac.sessionManager != nil {
		if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
			log.Printf("Failed to create session for user %d: %v", user.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
			return
		}
	}
	ac.logEvent(c, user.ID, "login", true)

	c.Redirect(http.StatusFound, next)
}

// Logout destroys the session and redirects to the login page.
func (ac *AuthController) Logout(c *gin.Context) {
	userID := GetUserID(c)
	if ac.sessionManager != nil {
		_ = ac.sessionManager.DestroySession(c.Request)
	}
	if userID != 0 {
		ac.logEvent(c, userID, "logout", true)
	}
	c.Redirect(http.StatusFound, LoginPath)
}

type changePasswordRequest struct {
	OldPassword string `form:"old_password" json:"old_password"`
	NewPassword string `form:"new_password" json:"new_password"`
}

// ChangePassword replaces the signed-in user's password. Wrong old
// passwords count against the login rate limit.
func (ac *AuthController) ChangePassword(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		redirectToLogin(c)
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "old_password and new_password are required"})
		return
	}

	clientIP := c.ClientIP()
	if ac.rateLimiter != nil {
		allowed, retryAfter := ac.rateLimiter.Allow(clientIP, user.Username)
		if !allowed {
			c.Header("Retry-After", retryAfter.String())
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many attempts",
				"retry_after": retryAfter.String(),
			})
			return
		}
	}

	err := ac.service.ChangePassword(user.ID, req.OldPassword, req.NewPassword)
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidPassword):
		if ac.rateLimiter != nil {
			ac.rateLimiter.RecordFailure(clientIP, user.Username)
		}
		ac.logEvent(c, user.ID, "password_change", false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "current password is incorrect"})
		return
	case errors.Is(err, ErrPasswordTooShort), errors.Is(err, ErrPasswordTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	default:
		log.Printf("Password change failed for user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to change password"})
		return
	}

	if ac.rateLimiter != nil {
		ac.rateLimiter.RecordSuccess(clientIP, user.Username)
	}
	if ac.sessionManager != nil {
		if err := ac.sessionManager.RenewToken(c.Request.Context()); err != nil {
			log.Printf("Failed to renew session for user %d: %v", user.ID, err)
		}
	}
	ac.logEvent(c, user.ID, "password_change", true)

	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

func (ac *AuthController) logEvent(c *gin.Context, userID uint, action string, success bool) {
	if ac.events == nil {
		return
	}
	ac.events.LogAuth(userID, action, c.ClientIP(), c.Request.UserAgent(), success)
}
