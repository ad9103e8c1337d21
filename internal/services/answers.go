package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	apperrors "github.com/emilythestrangee/hasker/backend/internal/errors"
	"github.com/emilythestrangee/hasker/backend/internal/models"
	"github.com/emilythestrangee/hasker/backend/internal/notify"
)

const notifyTimeout = 30 * time.Second

type AnswerService struct {
	db       *gorm.DB
	notifier notify.Notifier
	limits   Limits
	baseURL  string
}

func NewAnswerService(db *gorm.DB, notifier notify.Notifier, limits Limits, baseURL string) *AnswerService {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &AnswerService{db: db, notifier: notifier, limits: limits.withDefaults(), baseURL: baseURL}
}

// Create posts an answer, bumps the question's answer count and notifies
// the question author. Notification failures never undo the answer.
func (s *AnswerService) Create(ctx context.Context, questionID, authorID int, content string) (*models.Answer, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.ValidationError("Invalid answer.").
			WithField("content", "This field may not be blank.")
	}

	var (
		answer   models.Answer
		question models.Question
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Author").Take(&question, questionID).Error; err != nil {
			return notFoundOr(err, "Question not found.")
		}

		answer = models.Answer{Content: content, AuthorID: authorID, QuestionID: questionID}
		if err := tx.Create(&answer).Error; err != nil {
			return err
		}

		return tx.Model(&models.Question{}).
			Where("id = ?", questionID).
			UpdateColumn("number_of_answers", gorm.Expr("number_of_answers + 1")).Error
	})
	if err != nil {
		return nil, err
	}

	created, err := s.Get(ctx, answer.ID)
	if err != nil {
		return nil, err
	}

	s.notify(question, created.Author.Username)
	return created, nil
}

// notify runs detached from the request so a slow provider never delays
// the response.
func (s *AnswerService) notify(question models.Question, answerAuthor string) {
	notice := notify.NewAnswerNotice{
		QuestionID:     question.ID,
		QuestionTitle:  question.Title,
		QuestionURL:    notify.QuestionURL(s.baseURL, question.ID),
		AuthorUsername: question.Author.Username,
		AuthorPhone:    question.Author.Phone,
		AnswerAuthor:   answerAuthor,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.NewAnswer(ctx, notice); err != nil {
			log.Error().Err(err).Int("question_id", notice.QuestionID).Msg("Failed to send new answer notification")
		}
	}()
}

func (s *AnswerService) Get(ctx context.Context, answerID int) (*models.Answer, error) {
	var answer models.Answer
	if err := s.db.WithContext(ctx).Preload("Author").Take(&answer, answerID).Error; err != nil {
		return nil, notFoundOr(err, "Answer not found.")
	}
	return &answer, nil
}

// List returns a page of the question's answers: accepted first, then by
// rating, then newest.
func (s *AnswerService) List(ctx context.Context, questionID, page int) (*models.Page[models.Answer], error) {
	if err := validatePage(page); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var n int64
	if err := db.Model(&models.Question{}).Where("id = ?", questionID).Count(&n).Error; err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, apperrors.NotFoundError("Question not found.").WithContext("question_id", questionID)
	}

	q := db.Model(&models.Answer{}).Where("question_id = ?", questionID).Session(&gorm.Session{})

	result := &models.Page[models.Answer]{Results: []models.Answer{}}
	if err := q.Count(&result.Count).Error; err != nil {
		return nil, err
	}
	err := q.Preload("Author").
		Order("is_accepted desc, rating desc, posted desc, id desc").
		Scopes(paginate(page, s.limits.PageSize)).
		Find(&result.Results).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes an answer owned by actorID along with its votes.
func (s *AnswerService) Delete(ctx context.Context, answerID, actorID int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var answer models.Answer
		if err := tx.Take(&answer, answerID).Error; err != nil {
			return notFoundOr(err, "Answer not found.")
		}
		if answer.AuthorID != actorID {
			return apperrors.ForbiddenError("You can only delete your own answers.").
				WithContext("answer_id", answerID)
		}

		if err := tx.Where("answer_id = ?", answerID).Delete(&models.AnswerVote{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Answer{}, answerID).Error; err != nil {
			return err
		}
		return tx.Model(&models.Question{}).
			Where("id = ?", answer.QuestionID).
			UpdateColumn("number_of_answers", gorm.Expr("number_of_answers - 1")).Error
	})
}

// Mark accepts the answer and unaccepts every other answer of its question.
// Accepting an already accepted answer is a no-op.
func (s *AnswerService) Mark(ctx context.Context, answerID int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		answer, err := acceptanceState(tx, answerID)
		if err != nil {
			return err
		}
		return mark(tx, answer)
	})
}

// Unmark clears the accepted flag. Unmarking a non-accepted answer is a no-op.
func (s *AnswerService) Unmark(ctx context.Context, answerID int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		answer, err := acceptanceState(tx, answerID)
		if err != nil {
			return err
		}
		return unmark(tx, answer)
	})
}

// Toggle flips the accepted flag on behalf of the question author and
// returns the new state.
func (s *AnswerService) Toggle(ctx context.Context, answerID, actorID int) (bool, error) {
	var accepted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		answer, err := authorizeAcceptance(tx, answerID, actorID)
		if err != nil {
			return err
		}
		if answer.IsAccepted {
			return unmark(tx, answer)
		}
		accepted = true
		return mark(tx, answer)
	})
	return accepted, err
}

// SetAccepted sets the accepted flag on behalf of the question author.
func (s *AnswerService) SetAccepted(ctx context.Context, answerID, actorID int, accepted bool) (*models.Answer, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		answer, err := authorizeAcceptance(tx, answerID, actorID)
		if err != nil {
			return err
		}
		if accepted {
			return mark(tx, answer)
		}
		return unmark(tx, answer)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, answerID)
}

func acceptanceState(tx *gorm.DB, answerID int) (*models.Answer, error) {
	var answer models.Answer
	err := tx.Select("id", "question_id", "is_accepted").Take(&answer, answerID).Error
	if err != nil {
		return nil, notFoundOr(err, "Answer not found.")
	}
	return &answer, nil
}

// authorizeAcceptance loads the answer and checks that actorID wrote the
// question it answers.
func authorizeAcceptance(tx *gorm.DB, answerID, actorID int) (*models.Answer, error) {
	answer, err := acceptanceState(tx, answerID)
	if err != nil {
		return nil, err
	}

	var question models.Question
	if err := tx.Select("id", "author_id").Take(&question, answer.QuestionID).Error; err != nil {
		return nil, notFoundOr(err, "Question not found.")
	}
	if question.AuthorID != actorID {
		return nil, apperrors.ForbiddenError("Only the question author can accept answers.").
			WithContext("answer_id", answerID)
	}
	return answer, nil
}

// mark resets every answer of the question before accepting the target.
// The unconditional reset locks the sibling rows, so concurrent marks on
// the same question serialize; the partial unique index on accepted
// answers backs this up.
func mark(tx *gorm.DB, answer *models.Answer) error {
	if answer.IsAccepted {
		return nil
	}
	err := tx.Model(&models.Answer{}).
		Where("question_id = ?", answer.QuestionID).
		UpdateColumn("is_accepted", false).Error
	if err != nil {
		return err
	}
	err = tx.Model(&models.Answer{}).
		Where("id = ?", answer.ID).
		UpdateColumn("is_accepted", true).Error
	if err != nil {
		return err
	}
	answer.IsAccepted = true
	return nil
}

func unmark(tx *gorm.DB, answer *models.Answer) error {
	if !answer.IsAccepted {
		return nil
	}
	err := tx.Model(&models.Answer{}).
		Where("id = ?", answer.ID).
		UpdateColumn("is_accepted", false).Error
	if err != nil {
		return err
	}
	answer.IsAccepted = false
	return nil
}

func notFoundOr(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFoundError(message)
	}
	return err
}
