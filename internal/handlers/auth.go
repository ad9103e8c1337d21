package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/emilythestrangee/hasker/backend/internal/errors"
	"github.com/emilythestrangee/hasker/backend/internal/middleware"
	"github.com/emilythestrangee/hasker/backend/internal/models"
)

type AuthHandler struct {
	users     UserService
	jwtSecret []byte
}

func NewAuthHandler(users UserService, jwtSecret []byte) *AuthHandler {
	return &AuthHandler{users: users, jwtSecret: jwtSecret}
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var input models.RegisterRequest
	if err := bindJSON(c, &input); err != nil {
		apperrors.Respond(c, err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), input)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	// Generate JWT token AFTER creating user
	token, err := middleware.GenerateToken(h.jwtSecret, *user)
	if err != nil {
		apperrors.Respond(c, apperrors.InternalError("Failed to generate token", err))
		return
	}

	log.Info().Int("user_id", user.ID).Str("username", user.Username).Msg("User registered")
	c.JSON(http.StatusCreated, models.AuthResponse{
		Message: "User registered successfully",
		Token:   token,
		User:    user.Summary(),
	})
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var input models.LoginRequest
	if err := bindJSON(c, &input); err != nil {
		apperrors.Respond(c, err)
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	token, err := middleware.GenerateToken(h.jwtSecret, *user)
	if err != nil {
		apperrors.Respond(c, apperrors.InternalError("Failed to generate token", err))
		return
	}

	c.JSON(http.StatusOK, models.AuthResponse{
		Message: "Login successful",
		Token:   token,
		User:    user.Summary(),
	})
}

// GetMe returns the current authenticated user
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	user, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":              user.ID,
		"username":        user.Username,
		"email":           user.Email,
		"phone":           user.Phone,
		"photo_big_url":   user.PhotoURL(),
		"photo_small_url": user.ThumbURL(),
		"created_at":      user.CreatedAt,
	})
}
