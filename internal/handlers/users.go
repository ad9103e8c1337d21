package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/emilythestrangee/hasker/backend/internal/errors"
	"github.com/emilythestrangee/hasker/backend/internal/models"
)

type UserHandler struct {
	users UserService
}

func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

// GetUserProfile returns a user's public profile.
func (h *UserHandler) GetUserProfile(c *gin.Context) {
	userID, err := paramID(c, "id")
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	profile, err := h.users.Profile(c.Request.Context(), userID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateUserProfile updates the authenticated user's settings.
func (h *UserHandler) UpdateUserProfile(c *gin.Context) {
	userID, err := paramID(c, "id")
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	actorID, err := currentUserID(c)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	var input models.UpdateProfileRequest
	if err := bindJSON(c, &input); err != nil {
		apperrors.Respond(c, err)
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), userID, actorID, input)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    user.Summary(),
	})
}
