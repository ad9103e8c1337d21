package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/emilythestrangee/hasker/backend/internal/errors"
	"github.com/emilythestrangee/hasker/backend/internal/models"
)

type AnswerHandler struct {
	answers AnswerService
}

func NewAnswerHandler(answers AnswerService) *AnswerHandler {
	return &AnswerHandler{answers: answers}
}

// GetAnswers lists the answers of a question, accepted answer first.
func (h *AnswerHandler) GetAnswers(c *gin.Context) {
	questionID, err := paramID(c, "id")
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	page, err := pageParam(c)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	result, err := h.answers.List(c.Request.Context(), questionID, page)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	out := models.Page[models.AnswerResponse]{
		Count:   result.Count,
		Results: make([]models.AnswerResponse, 0, len(result.Results)),
	}
	for _, a := range result.Results {
		out.Results = append(out.Results, a.Response())
	}
	c.JSON(http.StatusOK, out)
}

// CreateAnswer posts an answer to a question.
func (h *AnswerHandler) CreateAnswer(c *gin.Context) {
	questionID, err := paramID(c, "id")
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	userID, err := currentUserID(c)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	var input models.CreateAnswerRequest
	if err := bindJSON(c, &input); err != nil {
		apperrors.Respond(c, err)
		return
	}

	answer, err := h.answers.Create(c.Request.Context(), questionID, userID, input.Content)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, answer.Response())
}

func (h *AnswerHandler) GetAnswer(c *gin.Context) {
	answerID, err := paramID(c, "id")
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	answer, err := h.answers.Get(c.Request.Context(), answerID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, answer.Response())
}

// UpdateAnswer sets is_accepted on behalf of the question author.
func (h *AnswerHandler) UpdateAnswer(c *gin.Context) {
	answerID, err := paramID(c, "id")
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	userID, err := currentUserID(c)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	var input models.UpdateAnswerRequest
	if err := bindJSON(c, &input); err != nil {
		apperrors.Respond(c, err)
		return
	}

	answer, err := h.answers.SetAccepted(c.Request.Context(), answerID, userID, *input.IsAccepted)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, answer.Response())
}

// MarkAnswer toggles the accepted flag.
func (h *AnswerHandler) MarkAnswer(c *gin.Context) {
	answerID, err := paramID(c, "id")
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	userID, err := currentUserID(c)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	accepted, err := h.answers.Toggle(c.Request.Context(), answerID, userID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accepted": accepted})
}

func (h *AnswerHandler) DeleteAnswer(c *gin.Context) {
	answerID, err := paramID(c, "id")
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	userID, err := currentUserID(c)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	if err := h.answers.Delete(c.Request.Context(), answerID, userID); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
