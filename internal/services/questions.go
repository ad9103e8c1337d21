package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	apperrors "github.com/emilythestrangee/hasker/backend/internal/errors"
	"github.com/emilythestrangee/hasker/backend/internal/models"
)

const (
	maxTitleLength   = 255
	maxTrendingCount = 100
)

// Sort is a question ordering.
type Sort string

const (
	SortLatest   Sort = "latest"
	SortPopular  Sort = "popular"
	SortTrending Sort = "trending"
)

var sortOrders = map[Sort]string{
	SortLatest:   "questions.posted desc, questions.id desc",
	SortPopular:  "questions.rating desc, questions.posted desc, questions.id desc",
	SortTrending: "questions.number_of_votes desc, questions.posted desc, questions.id desc",
}

// ParseSort maps a sort token to a Sort. The empty token means latest.
func ParseSort(token string) (Sort, error) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return SortLatest, nil
	}
	s := Sort(token)
	if _, ok := sortOrders[s]; !ok {
		return "", apperrors.ValidationError("Invalid sort.").
			WithField("sort", "Sort must be one of latest, popular, trending.").
			WithContext("sort", token)
	}
	return s, nil
}

// QuestionQuery filters and orders the question listing. Filters combine
// with AND.
type QuestionQuery struct {
	Sort   string
	Tag    string
	Search string
	Page   int
}

type QuestionService struct {
	db     *gorm.DB
	limits Limits
}

func NewQuestionService(db *gorm.DB, limits Limits) *QuestionService {
	return &QuestionService{db: db, limits: limits.withDefaults()}
}

func (s *QuestionService) Limits() Limits {
	return s.limits
}

// List returns one page of questions matching q, with the total count.
// A page past the end yields no results.
func (s *QuestionService) List(ctx context.Context, q QuestionQuery) (*models.Page[models.Question], error) {
	sort, err := ParseSort(q.Sort)
	if err != nil {
		return nil, err
	}
	if err := validatePage(q.Page); err != nil {
		return nil, err
	}

	tag := NormalizeTag(q.Tag)
	search := strings.TrimSpace(q.Search)
	if name, ok := searchTag(search); ok {
		tag = name
		search = ""
	}

	query := s.db.WithContext(ctx).Model(&models.Question{})
	if tag != "" {
		query = query.Where(
			"EXISTS (SELECT 1 FROM question_tags JOIN tags ON tags.id = question_tags.tag_id"+
				" WHERE question_tags.question_id = questions.id AND tags.name = ?)", tag)
	}
	if search != "" {
		pattern := likePattern(search)
		query = query.Where(
			`(LOWER(questions.title) LIKE ? ESCAPE '\' OR LOWER(questions.content) LIKE ? ESCAPE '\')`,
			pattern, pattern)
	}
	query = query.Session(&gorm.Session{})

	result := &models.Page[models.Question]{Results: []models.Question{}}
	if err := query.Count(&result.Count).Error; err != nil {
		return nil, err
	}

	err = query.Preload("Author").Preload("Tags").
		Order(sortOrders[sort]).
		Scopes(paginate(q.Page, s.limits.PageSize)).
		Find(&result.Results).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Trending returns the count most voted questions. A count below one
// falls back to the configured default; counts above the cap are rejected.
func (s *QuestionService) Trending(ctx context.Context, count int) ([]models.Question, error) {
	if count < 1 {
		count = s.limits.TrendingCount
	}
	if limit := max(maxTrendingCount, s.limits.TrendingCount); count > limit {
		return nil, apperrors.ValidationError("Invalid count.").
			WithField("count", fmt.Sprintf("Count must be at most %d.", limit)).
			WithContext("count", count)
	}
	questions := []models.Question{}
	err := s.db.WithContext(ctx).
		Preload("Author").Preload("Tags").
		Order(sortOrders[SortTrending]).
		Limit(count).
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *QuestionService) Get(ctx context.Context, questionID int) (*models.Question, error) {
	var question models.Question
	err := s.db.WithContext(ctx).Preload("Author").Preload("Tags").Take(&question, questionID).Error
	if err != nil {
		return nil, notFoundOr(err, "Question not found.")
	}
	return &question, nil
}

// Create stores a question with its tags, creating missing tags.
func (s *QuestionService) Create(ctx context.Context, authorID int, title, content string, rawTags []string) (*models.Question, error) {
	title, content, err := validateQuestion(title, content)
	if err != nil {
		return nil, err
	}
	tagNames, err := NormalizeTags(rawTags, s.limits.MaxTags, s.limits.MaxTagLength)
	if err != nil {
		return nil, err
	}

	question := models.Question{Title: title, Content: content, AuthorID: authorID}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := ensureTags(tx, authorID, tagNames)
		if err != nil {
			return err
		}
		question.Tags = tags
		return tx.Create(&question).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, question.ID)
}

// Update edits the title or content of a question owned by actorID.
func (s *QuestionService) Update(ctx context.Context, questionID, actorID int, req models.UpdateQuestionRequest) (*models.Question, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		question, err := ownedQuestion(tx, questionID, actorID)
		if err != nil {
			return err
		}

		title, content := question.Title, question.Content
		if req.Title != nil {
			title = *req.Title
		}
		if req.Content != nil {
			content = *req.Content
		}
		title, content, err = validateQuestion(title, content)
		if err != nil {
			return err
		}

		return tx.Model(question).Updates(map[string]any{"title": title, "content": content}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, questionID)
}

// Delete removes a question owned by actorID together with its answers,
// every vote on either, and its tag links.
func (s *QuestionService) Delete(ctx context.Context, questionID, actorID int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		question, err := ownedQuestion(tx, questionID, actorID)
		if err != nil {
			return err
		}

		answerIDs := tx.Model(&models.Answer{}).Select("id").Where("question_id = ?", questionID)
		if err := tx.Where("answer_id IN (?)", answerIDs).Delete(&models.AnswerVote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("question_id = ?", questionID).Delete(&models.Answer{}).Error; err != nil {
			return err
		}
		if err := tx.Where("question_id = ?", questionID).Delete(&models.QuestionVote{}).Error; err != nil {
			return err
		}
		if err := tx.Model(question).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(question).Error
	})
}

func ownedQuestion(tx *gorm.DB, questionID, actorID int) (*models.Question, error) {
	var question models.Question
	if err := tx.Take(&question, questionID).Error; err != nil {
		return nil, notFoundOr(err, "Question not found.")
	}
	if question.AuthorID != actorID {
		return nil, apperrors.ForbiddenError("You can only modify your own questions.").
			WithContext("question_id", questionID)
	}
	return &question, nil
}

func validateQuestion(title, content string) (string, string, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)

	var verr *apperrors.Error
	fail := func(field, msg string) {
		if verr == nil {
			verr = apperrors.ValidationError("Invalid question.")
		}
		verr.WithField(field, msg)
	}
	if title == "" {
		fail("title", "This field may not be blank.")
	} else if utf8.RuneCountInString(title) > maxTitleLength {
		fail("title", "Ensure this field has no more than 255 characters.")
	}
	if content == "" {
		fail("content", "This field may not be blank.")
	}
	if verr != nil {
		return "", "", verr
	}
	return title, content, nil
}

// searchTag extracts the tag of a "tag:name" search. The marker may appear
// anywhere in the query. An empty name leaves the query a text search.
func searchTag(search string) (string, bool) {
	const marker = "tag:"
	for i := 0; i+len(marker) <= len(search); i++ {
		if strings.EqualFold(search[i:i+len(marker)], marker) {
			name := NormalizeTag(search[i+len(marker):])
			return name, name != ""
		}
	}
	return "", false
}
