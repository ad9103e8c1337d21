package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/emilythestrangee/hasker/backend/internal/errors"
	"github.com/emilythestrangee/hasker/backend/internal/models"
	"github.com/emilythestrangee/hasker/backend/internal/services"
)

type QuestionHandler struct {
	questions QuestionService
}

func NewQuestionHandler(questions QuestionService) *QuestionHandler {
	return &QuestionHandler{questions: questions}
}

func questionPage(page *models.Page[models.Question]) models.Page[models.QuestionResponse] {
	out := models.Page[models.QuestionResponse]{
		Count:   page.Count,
		Results: make([]models.QuestionResponse, 0, len(page.Results)),
	}
	for _, q := range page.Results {
		out.Results = append(out.Results, q.Response())
	}
	return out
}

// GetQuestions lists questions with optional sort, tag and search filters.
func (h *QuestionHandler) GetQuestions(c *gin.Context) {
	h.list(c, c.Query("tag"))
}

// GetTagQuestions lists the questions carrying the tag in the path.
func (h *QuestionHandler) GetTagQuestions(c *gin.Context) {
	h.list(c, c.Param("tag"))
}

func (h *QuestionHandler) list(c *gin.Context, tag string) {
	page, err := pageParam(c)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	search := c.Query("search")
	if search == "" {
		search = c.Query("q")
	}

	result, err := h.questions.List(c.Request.Context(), services.QuestionQuery{
		Sort:   c.Query("sort"),
		Tag:    tag,
		Search: search,
		Page:   page,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, questionPage(result))
}

// GetTrending returns the most voted questions.
func (h *QuestionHandler) GetTrending(c *gin.Context) {
	count := 0
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			apperrors.Respond(c, apperrors.ValidationError("Invalid count.").
				WithField("count", "Count must be a positive integer."))
			return
		}
		count = n
	}

	questions, err := h.questions.Trending(c.Request.Context(), count)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	results := make([]models.QuestionResponse, 0, len(questions))
	for _, q := range questions {
		results = append(results, q.Response())
	}
	c.JSON(http.StatusOK, results)
}

// GetQuestion returns a single question
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	questionID, err := paramID(c, "id")
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	question, err := h.questions.Get(c.Request.Context(), questionID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, question.Response())
}

// CreateQuestion handles creating a new question
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	var input models.CreateQuestionRequest
	if err := bindJSON(c, &input); err != nil {
		apperrors.Respond(c, err)
		return
	}

	question, err := h.questions.Create(c.Request.Context(), userID, input.Title, input.Content, input.Tags)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, question.Response())
}

// UpdateQuestion handles updating a question (only by author)
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
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

	var input models.UpdateQuestionRequest
	if err := bindJSON(c, &input); err != nil {
		apperrors.Respond(c, err)
		return
	}

	question, err := h.questions.Update(c.Request.Context(), questionID, userID, input)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, question.Response())
}

// DeleteQuestion handles deleting a question (only by author)
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
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

	if err := h.questions.Delete(c.Request.Context(), questionID, userID); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
