package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/emilythestrangee/hasker/backend/internal/database"
	apperrors "github.com/emilythestrangee/hasker/backend/internal/errors"
	"github.com/emilythestrangee/hasker/backend/internal/models"
)

var ctx = context.Background()

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	svc, err := database.New(database.Options{
		Driver:   "sqlite",
		DSN:      "file::memory:?_foreign_keys=on",
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc.GetDB()
}

func createUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{
		Username: username,
		Email:    username + "@mail.fake",
		Password: "x",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createUsers(t *testing.T, db *gorm.DB, n int) []models.User {
	t.Helper()
	users := make([]models.User, n)
	for i := range users {
		users[i] = createUser(t, db, fmt.Sprintf("user%d", i+1))
	}
	return users
}

type questionOpt func(*models.Question)

func postedAt(ts time.Time) questionOpt {
	return func(q *models.Question) { q.Posted = ts }
}

func withVotes(n int) questionOpt {
	return func(q *models.Question) { q.NumberOfVotes = n }
}

func withRating(r int) questionOpt {
	return func(q *models.Question) { q.Rating = r }
}

func createQuestion(t *testing.T, db *gorm.DB, authorID int, title string, opts ...questionOpt) models.Question {
	t.Helper()
	q := models.Question{Title: title, Content: "content of " + title, AuthorID: authorID}
	for _, opt := range opts {
		opt(&q)
	}
	require.NoError(t, db.Create(&q).Error)
	return q
}

func createAnswer(t *testing.T, db *gorm.DB, questionID, authorID int) models.Answer {
	t.Helper()
	a := models.Answer{Content: "an answer", QuestionID: questionID, AuthorID: authorID}
	require.NoError(t, db.Create(&a).Error)
	return a
}

// requireLedgerConsistent checks that the subject's counters match its votes.
func requireLedgerConsistent(t *testing.T, db *gorm.DB, subject models.Votable, subjectID int) (rating, votes int) {
	t.Helper()

	var ledger struct {
		Sum   int
		Count int
	}
	err := db.Table(subject.VoteTableName()).
		Select("COALESCE(SUM(value), 0) AS sum, COUNT(*) AS count").
		Where(subject.VoteSubjectColumn()+" = ?", subjectID).
		Scan(&ledger).Error
	require.NoError(t, err)

	var row struct {
		Rating        int
		NumberOfVotes int
	}
	err = db.Table(subject.TableName()).
		Select("rating, number_of_votes").
		Where("id = ?", subjectID).
		Scan(&row).Error
	require.NoError(t, err)

	require.Equal(t, ledger.Sum, row.Rating, "rating must equal the sum of votes")
	require.Equal(t, ledger.Count, row.NumberOfVotes, "number_of_votes must equal the vote count")
	return row.Rating, row.NumberOfVotes
}

func requireErrorType(t *testing.T, err error, typ apperrors.ErrorType) *apperrors.Error {
	t.Helper()
	require.Error(t, err)
	var structured *apperrors.Error
	require.ErrorAs(t, err, &structured)
	require.Equal(t, typ, structured.Type, structured.Message)
	return structured
}
