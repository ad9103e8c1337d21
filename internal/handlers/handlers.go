package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/emilythestrangee/hasker/backend/internal/errors"
	"github.com/emilythestrangee/hasker/backend/internal/middleware"
	"github.com/emilythestrangee/hasker/backend/internal/models"
	"github.com/emilythestrangee/hasker/backend/internal/services"
)

// QuestionService is the question store used by the handlers.
type QuestionService interface {
	List(ctx context.Context, q services.QuestionQuery) (*models.Page[models.Question], error)
	Trending(ctx context.Context, count int) ([]models.Question, error)
	Get(ctx context.Context, questionID int) (*models.Question, error)
	Create(ctx context.Context, authorID int, title, content string, tags []string) (*models.Question, error)
	Update(ctx context.Context, questionID, actorID int, req models.UpdateQuestionRequest) (*models.Question, error)
	Delete(ctx context.Context, questionID, actorID int) error
}

// AnswerService is the answer store used by the handlers.
type AnswerService interface {
	Create(ctx context.Context, questionID, authorID int, content string) (*models.Answer, error)
	Get(ctx context.Context, answerID int) (*models.Answer, error)
	List(ctx context.Context, questionID, page int) (*models.Page[models.Answer], error)
	Delete(ctx context.Context, answerID, actorID int) error
	Toggle(ctx context.Context, answerID, actorID int) (bool, error)
	SetAccepted(ctx context.Context, answerID, actorID int, accepted bool) (*models.Answer, error)
}

// VoteService is the vote ledger used by the handlers.
type VoteService interface {
	Cast(ctx context.Context, subject models.Votable, subjectID, voterID, value int) (int, error)
	Create(ctx context.Context, subject models.Votable, subjectID, voterID, value int) (*models.VoteRecord, error)
	Retract(ctx context.Context, subject models.Votable, subjectID, voteID, actorID int) error
	Change(ctx context.Context, subject models.Votable, subjectID, voteID, actorID, value int) (*models.VoteRecord, error)
	List(ctx context.Context, subject models.Votable, subjectID, page int) (*models.Page[models.VoteRecord], error)
	Get(ctx context.Context, subject models.Votable, subjectID, voteID int) (*models.VoteRecord, error)
}

// UserService is the account store used by the handlers.
type UserService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	Get(ctx context.Context, userID int) (*models.User, error)
	Profile(ctx context.Context, userID int) (*services.Profile, error)
	UpdateProfile(ctx context.Context, userID, actorID int, req models.UpdateProfileRequest) (*models.User, error)
}

// Services bundles the dependencies of the handlers.
type Services struct {
	Questions QuestionService
	Answers   AnswerService
	Votes     VoteService
	Users     UserService
}

// Handler combines all handler types
type Handler struct {
	Auth     *AuthHandler
	Question *QuestionHandler
	Answer   *AnswerHandler
	Vote     *VoteHandler
	User     *UserHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(svc Services, jwtSecret []byte) *Handler {
	return &Handler{
		Auth:     NewAuthHandler(svc.Users, jwtSecret),
		Question: NewQuestionHandler(svc.Questions),
		Answer:   NewAnswerHandler(svc.Answers),
		Vote:     NewVoteHandler(svc.Votes),
		User:     NewUserHandler(svc.Users),
	}
}

// paramID parses a numeric path parameter. Ids that are not positive
// integers are reported as not found.
func paramID(c *gin.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id < 1 {
		return 0, apperrors.NotFoundError("Not found.").WithContext(name, c.Param(name))
	}
	return id, nil
}

// pageParam reads ?page=, defaulting to the first page.
func pageParam(c *gin.Context) (int, error) {
	raw := c.Query("page")
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.ValidationError("Invalid page.").
			WithField("page", "Page must be a positive integer.")
	}
	return page, nil
}

func currentUserID(c *gin.Context) (int, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, apperrors.ForbiddenError("Authentication credentials were not provided.")
	}
	return id, nil
}

// bindJSON decodes the request body, turning binding failures into a
// validation error with one entry per offending field.
func bindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}

	verr := apperrors.ValidationError("Invalid request body.")
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			verr.WithField(snakeCase(fe.Field()), fieldMessage(fe))
		}
		return verr
	}
	return verr.WithField("non_field_errors", err.Error())
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return "Ensure this field has at least " + fe.Param() + " characters."
	case "max":
		return "Ensure this field has no more than " + fe.Param() + " characters."
	case "oneof":
		return "Must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ") + "."
	default:
		return "Invalid value."
	}
}

func snakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
