package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/emilythestrangee/hasker/backend/internal/errors"
	"github.com/emilythestrangee/hasker/backend/internal/models"
)

// VoteHandler serves the votes of one kind of content. Each method takes
// the subject kind and returns the gin handler for it.
type VoteHandler struct {
	votes VoteService
}

func NewVoteHandler(votes VoteService) *VoteHandler {
	return &VoteHandler{votes: votes}
}

// Cast applies a toggle vote on {target_id, value} and returns the new rating.
func (h *VoteHandler) Cast(subject models.Votable) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := currentUserID(c)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}

		var input models.CastVoteRequest
		if err := bindJSON(c, &input); err != nil {
			apperrors.Respond(c, err)
			return
		}

		rating, err := h.votes.Cast(c.Request.Context(), subject, input.TargetID, userID, input.Value)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"rating": rating})
	}
}

func (h *VoteHandler) List(subject models.Votable) gin.HandlerFunc {
	return func(c *gin.Context) {
		subjectID, err := paramID(c, "id")
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
		page, err := pageParam(c)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}

		result, err := h.votes.List(c.Request.Context(), subject, subjectID, page)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func (h *VoteHandler) Get(subject models.Votable) gin.HandlerFunc {
	return func(c *gin.Context) {
		subjectID, voteID, err := voteParams(c)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}

		vote, err := h.votes.Get(c.Request.Context(), subject, subjectID, voteID)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, vote)
	}
}

// Create records a vote; voting twice is rejected.
func (h *VoteHandler) Create(subject models.Votable) gin.HandlerFunc {
	return func(c *gin.Context) {
		subjectID, err := paramID(c, "id")
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
		userID, err := currentUserID(c)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}

		var input models.VoteRequest
		if err := bindJSON(c, &input); err != nil {
			apperrors.Respond(c, err)
			return
		}

		vote, err := h.votes.Create(c.Request.Context(), subject, subjectID, userID, input.Value)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
		c.JSON(http.StatusCreated, vote)
	}
}

func (h *VoteHandler) Change(subject models.Votable) gin.HandlerFunc {
	return func(c *gin.Context) {
		subjectID, voteID, err := voteParams(c)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
		userID, err := currentUserID(c)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}

		var input models.VoteRequest
		if err := bindJSON(c, &input); err != nil {
			apperrors.Respond(c, err)
			return
		}

		vote, err := h.votes.Change(c.Request.Context(), subject, subjectID, voteID, userID, input.Value)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, vote)
	}
}

func (h *VoteHandler) Retract(subject models.Votable) gin.HandlerFunc {
	return func(c *gin.Context) {
		subjectID, voteID, err := voteParams(c)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}
		userID, err := currentUserID(c)
		if err != nil {
			apperrors.Respond(c, err)
			return
		}

		if err := h.votes.Retract(c.Request.Context(), subject, subjectID, voteID, userID); err != nil {
			apperrors.Respond(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func voteParams(c *gin.Context) (subjectID, voteID int, err error) {
	if subjectID, err = paramID(c, "id"); err != nil {
		return 0, 0, err
	}
	if voteID, err = paramID(c, "voteId"); err != nil {
		return 0, 0, err
	}
	return subjectID, voteID, nil
}
