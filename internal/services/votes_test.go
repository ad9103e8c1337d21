package services

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/emilythestrangee/hasker/backend/internal/errors"
	"github.com/emilythestrangee/hasker/backend/internal/models"
)

func TestCastNewVote(t *testing.T) {
	db := newTestDB(t)
	users := createUsers(t, db, 2)
	q := createQuestion(t, db, users[0].ID, "q")
	svc := NewVoteService(db, DefaultLimits())

	rating, err := svc.Cast(ctx, models.Question{}, q.ID, users[1].ID, models.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 1, rating)

	rating, votes := requireLedgerConsistent(t, db, models.Question{}, q.ID)
	assert.Equal(t, 1, rating)
	assert.Equal(t, 1, votes)
}

func TestCastSameValueIsNoop(t *testing.T) {
	db := newTestDB(t)
	users := createUsers(t, db, 2)
	q := createQuestion(t, db, users[0].ID, "q")
	svc := NewVoteService(db, DefaultLimits())

	for i := 0; i < 3; i++ {
		rating, err := svc.Cast(ctx, models.Question{}, q.ID, users[1].ID, models.VoteDown)
		require.NoError(t, err)
		assert.Equal(t, -1, rating)
	}

	_, votes := requireLedgerConsistent(t, db, models.Question{}, q.ID)
	assert.Equal(t, 1, votes)
}

func TestCastOppositeValueRemovesVote(t *testing.T) {
	db := newTestDB(t)
	users := createUsers(t, db, 3)
	q := createQuestion(t, db, users[0].ID, "q")
	svc := NewVoteService(db, DefaultLimits())

	_, err := svc.Cast(ctx, models.Question{}, q.ID, users[1].ID, models.VoteUp)
	require.NoError(t, err)
	_, err = svc.Cast(ctx, models.Question{}, q.ID, users[2].ID, models.VoteUp)
	require.NoError(t, err)

	// An opposite vote un-votes: one vote fewer, rating down by one.
	rating, err := svc.Cast(ctx, models.Question{}, q.ID, users[1].ID, models.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, 1, rating)

	_, votes := requireLedgerConsistent(t, db, models.Question{}, q.ID)
	assert.Equal(t, 1, votes)

	var n int64
	require.NoError(t, db.Model(&models.QuestionVote{}).Where("user_id = ?", users[1].ID).Count(&n).Error)
	assert.Zero(t, n)

	// Voting again after the removal records the new value.
	rating, err = svc.Cast(ctx, models.Question{}, q.ID, users[1].ID, models.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, 0, rating)
	_, votes = requireLedgerConsistent(t, db, models.Question{}, q.ID)
	assert.Equal(t, 2, votes)
}

func TestCastOnAnswer(t *testing.T) {
	db := newTestDB(t)
	users := createUsers(t, db, 2)
	q := createQuestion(t, db, users[0].ID, "q")
	a := createAnswer(t, db, q.ID, users[0].ID)
	svc := NewVoteService(db, DefaultLimits())

	rating, err := svc.Cast(ctx, models.Answer{}, a.ID, users[1].ID, models.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, -1, rating)
	requireLedgerConsistent(t, db, models.Answer{}, a.ID)

	// The question's ledger is untouched.
	rating, votes := requireLedgerConsistent(t, db, models.Question{}, q.ID)
	assert.Zero(t, rating)
	assert.Zero(t, votes)
}

func TestCastUnknownSubject(t *testing.T) {
	db := newTestDB(t)
	users := createUsers(t, db, 1)
	svc := NewVoteService(db, DefaultLimits())

	_, err := svc.Cast(ctx, models.Question{}, 999, users[0].ID, models.VoteUp)
	structured := requireErrorType(t, err, apperrors.TypeNotFound)
	assert.Contains(t, structured.Fields, "target_id")

	_, err = svc.Cast(ctx, models.Answer{}, 999, users[0].ID, models.VoteUp)
	requireErrorType(t, err, apperrors.TypeNotFound)
}

func TestCastInvalidValue(t *testing.T) {
	db := newTestDB(t)
	users := createUsers(t, db, 1)
	q := createQuestion(t, db, users[0].ID, "q")
	svc := NewVoteService(db, DefaultLimits())

	for _, v := range []int{0, 2, -2} {
		_, err := svc.Cast(ctx, models.Question{}, q.ID, users[0].ID, v)
		structured := requireErrorType(t, err, apperrors.TypeValidation)
		assert.Contains(t, structured.Fields, "value")
	}
}

func TestCreateVote(t *testing.T) {
	db := newTestDB(t)
	users := createUsers(t, db, 2)
	q := createQuestion(t, db, users[0].ID, "q")
	svc := NewVoteService(db, DefaultLimits())

	vote, err := svc.Create(ctx, models.Question{}, q.ID, users[1].ID, models.VoteUp)
	require.NoError(t, err)
	assert.NotZero(t, vote.ID)
	assert.Equal(t, q.ID, vote.SubjectID)
	assert.Equal(t, models.VoteUp, vote.Value)
	assert.Equal(t, users[1].Username, vote.User.Username)
	assert.False(t, vote.Timestamp.IsZero())

	_, err = svc.Create(ctx, models.Question{}, q.ID, users[1].ID, models.VoteDown)
	structured := requireErrorType(t, err, apperrors.TypeValidation)
	assert.Equal(t, []string{"Vote already exists."}, structured.Fields["non_field_errors"])

	rating, votes := requireLedgerConsistent(t, db, models.Question{}, q.ID)
	assert.Equal(t, 1, rating)
	assert.Equal(t, 1, votes)
}

func TestRetractVote(t *testing.T) {
	db := newTestDB(t)
	users := createUsers(t, db, 3)
	q := createQuestion(t, db, users[0].ID, "q")
	svc := NewVoteService(db, DefaultLimits())

	vote, err := svc.Create(ctx, models.Question{}, q.ID, users[1].ID, models.VoteDown)
	require.NoError(t, err)

	t.Run("other user is forbidden", func(t *testing.T) {
		err := svc.Retract(ctx, models.Question{}, q.ID, vote.ID, users[2].ID)
		requireErrorType(t, err, apperrors.TypeForbidden)
	})

	t.Run("owner retracts", func(t *testing.T) {
		require.NoError(t, svc.Retract(ctx, models.Question{}, q.ID, vote.ID, users[1].ID))
		rating, votes := requireLedgerConsistent(t, db, models.Question{}, q.ID)
		assert.Zero(t, rating)
		assert.Zero(t, votes)
	})

	t.Run("missing vote", func(t *testing.T) {
		err := svc.Retract(ctx, models.Question{}, q.ID, vote.ID, users[1].ID)
		requireErrorType(t, err, apperrors.TypeNotFound)
	})
}

func TestChangeVoteRecomputes(t *testing.T) {
	db := newTestDB(t)
	users := createUsers(t, db, 3)
	q := createQuestion(t, db, users[0].ID, "q")
	svc := NewVoteService(db, DefaultLimits())

	_, err := svc.Create(ctx, models.Question{}, q.ID, users[1].ID, models.VoteUp)
	require.NoError(t, err)
	vote, err := svc.Create(ctx, models.Question{}, q.ID, users[2].ID, models.VoteUp)
	require.NoError(t, err)

	changed, err := svc.Change(ctx, models.Question{}, q.ID, vote.ID, users[2].ID, models.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, models.VoteDown, changed.Value)

	rating, votes := requireLedgerConsistent(t, db, models.Question{}, q.ID)
	assert.Equal(t, 0, rating)
	assert.Equal(t, 2, votes)

	_, err = svc.Change(ctx, models.Question{}, q.ID, vote.ID, users[1].ID, models.VoteUp)
	requireErrorType(t, err, apperrors.TypeForbidden)

	_, err = svc.Change(ctx, models.Question{}, q.ID, vote.ID, users[2].ID, 5)
	requireErrorType(t, err, apperrors.TypeValidation)

	_, err = svc.Change(ctx, models.Question{}, 12345, vote.ID, users[2].ID, models.VoteUp)
	structured := requireErrorType(t, err, apperrors.TypeNotFound)
	assert.Contains(t, structured.Fields, "target_id")
}

func TestRecomputeRepairsCounters(t *testing.T) {
	db := newTestDB(t)
	users := createUsers(t, db, 3)
	q := createQuestion(t, db, users[0].ID, "q")
	svc := NewVoteService(db, DefaultLimits())

	_, err := svc.Cast(ctx, models.Question{}, q.ID, users[1].ID, models.VoteUp)
	require.NoError(t, err)
	_, err = svc.Cast(ctx, models.Question{}, q.ID, users[2].ID, models.VoteUp)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Question{}).Where("id = ?", q.ID).
		UpdateColumns(map[string]any{"rating": 99, "number_of_votes": 7}).Error)

	require.NoError(t, svc.Recompute(ctx, models.Question{}, q.ID))
	rating, votes := requireLedgerConsistent(t, db, models.Question{}, q.ID)
	assert.Equal(t, 2, rating)
	assert.Equal(t, 2, votes)

	err = svc.Recompute(ctx, models.Question{}, 12345)
	requireErrorType(t, err, apperrors.TypeNotFound)
}

func TestLedgerInvariantUnderMixedOperations(t *testing.T) {
	db := newTestDB(t)
	users := createUsers(t, db, 6)
	q := createQuestion(t, db, users[0].ID, "q")
	a := createAnswer(t, db, q.ID, users[0].ID)
	svc := NewVoteService(db, DefaultLimits())

	subjects := []struct {
		subject models.Votable
		id      int
	}{
		{models.Question{}, q.ID},
		{models.Answer{}, a.ID},
	}
	values := []int{models.VoteUp, models.VoteDown}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		s := subjects[rng.Intn(len(subjects))]
		voter := users[rng.Intn(len(users))]
		value := values[rng.Intn(len(values))]

		switch rng.Intn(3) {
		case 0:
			_, err := svc.Cast(ctx, s.subject, s.id, voter.ID, value)
			require.NoError(t, err)
		case 1:
			vote, err := findVote(db, s.subject, s.id, voter.ID)
			require.NoError(t, err)
			if vote != nil {
				_, err = svc.Change(ctx, s.subject, s.id, vote.ID, voter.ID, value)
				require.NoError(t, err)
			}
		case 2:
			vote, err := findVote(db, s.subject, s.id, voter.ID)
			require.NoError(t, err)
			if vote != nil {
				require.NoError(t, svc.Retract(ctx, s.subject, s.id, vote.ID, voter.ID))
			}
		}

		requireLedgerConsistent(t, db, s.subject, s.id)
	}
}

func TestListVotes(t *testing.T) {
	db := newTestDB(t)
	users := createUsers(t, db, 13)
	q := createQuestion(t, db, users[0].ID, "q")
	svc := NewVoteService(db, Limits{PageSize: 10})

	for _, u := range users[1:] {
		_, err := svc.Cast(ctx, models.Question{}, q.ID, u.ID, models.VoteUp)
		require.NoError(t, err)
	}

	page1, err := svc.List(ctx, models.Question{}, q.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(12), page1.Count)
	require.Len(t, page1.Results, 10)
	assert.Equal(t, users[1].Username, page1.Results[0].User.Username)
	assert.Equal(t, models.DefaultPhotoURL, page1.Results[0].User.PhotoSmallURL)

	page2, err := svc.List(ctx, models.Question{}, q.ID, 2)
	require.NoError(t, err)
	assert.Len(t, page2.Results, 2)

	page3, err := svc.List(ctx, models.Question{}, q.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(12), page3.Count)
	assert.Empty(t, page3.Results)

	_, err = svc.List(ctx, models.Question{}, q.ID, 0)
	requireErrorType(t, err, apperrors.TypeValidation)

	_, err = svc.List(ctx, models.Question{}, 999, 1)
	requireErrorType(t, err, apperrors.TypeNotFound)
}

func TestGetVote(t *testing.T) {
	db := newTestDB(t)
	users := createUsers(t, db, 2)
	q := createQuestion(t, db, users[0].ID, "q")
	other := createQuestion(t, db, users[0].ID, "other")
	svc := NewVoteService(db, DefaultLimits())

	vote, err := svc.Create(ctx, models.Question{}, q.ID, users[1].ID, models.VoteUp)
	require.NoError(t, err)

	got, err := svc.Get(ctx, models.Question{}, q.ID, vote.ID)
	require.NoError(t, err)
	assert.Equal(t, vote.ID, got.ID)
	assert.Equal(t, users[1].ID, got.User.ID)

	// A vote is only reachable through its own subject.
	_, err = svc.Get(ctx, models.Question{}, other.ID, vote.ID)
	requireErrorType(t, err, apperrors.TypeNotFound)
}
