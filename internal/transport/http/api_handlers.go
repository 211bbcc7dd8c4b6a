package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/rapidchat-server/internal/auth"
	"github.com/vovakirdan/rapidchat-server/internal/store"
)

const (
	msgMissingFields      = "Email, password, and name are required"
	msgUserExists         = "User already exists"
	msgInvalidCredentials = "Invalid email or password"
	msgRegistered         = "User registered successfully"
	msgSecretTooLong      = "Password must be at most 72 bytes"
)

// APIHandlers provides HTTP handlers for REST API endpoints.
type APIHandlers struct {
	authService *auth.Service
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(authService *auth.Service, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		log:         logger,
	}
}

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenRequest carries a session token in the body.
type TokenRequest struct {
	Token string `json:"token"`
}

// RegisterResponse is returned after a successful registration.
type RegisterResponse struct {
	Message string `json:"message"`
	Name    string `json:"name"`
}

// SessionResponse represents a session token and the name it belongs to.
type SessionResponse struct {
	Token string `json:"token"`
	Name  string `json:"name"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Register handles credential registration.
// POST /register
func (h *APIHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid register request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgMissingFields})
		return
	}

	cred, err := h.authService.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingFields):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgMissingFields})
		case errors.Is(err, store.ErrDuplicateContact):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgUserExists})
		case errors.Is(err, auth.ErrSecretTooLong):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgSecretTooLong})
		default:
			h.log.Error().Err(err).Str("email", req.Email).Msg("failed to register user")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	h.log.Info().Str("email", cred.Contact).Msg("user registered successfully")
	c.JSON(http.StatusCreated, RegisterResponse{Message: msgRegistered, Name: cred.DisplayName})
}

// Login handles credential login.
// POST /login
func (h *APIHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidCredentials})
		return
	}

	token, cred, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgInvalidCredentials})
			return
		}
		h.log.Error().Err(err).Str("email", req.Email).Msg("failed to login user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("email", cred.Contact).Msg("user logged in successfully")
	c.JSON(http.StatusOK, SessionResponse{Token: token, Name: cred.DisplayName})
}

// Profile echoes a valid token with its current display name.
// An unknown or invalid token yields 204 with no body.
// POST /profile
func (h *APIHandlers) Profile(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid profile request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	name, err := h.authService.Profile(c.Request.Context(), req.Token)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidToken) {
			h.log.Error().Err(err).Msg("failed to resolve profile")
		}
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, SessionResponse{Token: req.Token, Name: name})
}

// Logout revokes the token. Unknown tokens are ignored.
// POST /logout
func (h *APIHandlers) Logout(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid logout request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), req.Token); err != nil {
		h.log.Error().Err(err).Msg("failed to revoke token")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}
