package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/emilythestrangee/hasker/backend/internal/errors"
	"github.com/emilythestrangee/hasker/backend/internal/models"
)

// VoteService maintains the vote ledger of questions and answers together
// with the denormalized rating and number_of_votes counters.
//
// After every operation the subject's rating equals the sum of its vote
// values and number_of_votes equals the number of votes.
type VoteService struct {
	db     *gorm.DB
	limits Limits
}

func NewVoteService(db *gorm.DB, limits Limits) *VoteService {
	return &VoteService{db: db, limits: limits.withDefaults()}
}

// Cast applies toggle semantics and returns the subject's new rating.
//
// Without a prior vote the vote is recorded. Repeating the same value is a
// no-op. Voting the opposite way removes the existing vote rather than
// flipping it.
func (s *VoteService) Cast(ctx context.Context, subject models.Votable, subjectID, voterID, value int) (int, error) {
	if err := validateVoteValue(value); err != nil {
		return 0, err
	}

	var rating int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireSubject(tx, subject, subjectID); err != nil {
			return err
		}

		existing, err := findVote(tx, subject, subjectID, voterID)
		if err != nil {
			return err
		}

		if existing == nil {
			inserted, err := insertVote(tx, subject, subjectID, voterID, value)
			if err != nil {
				return err
			}
			if !inserted {
				// Lost a race with a concurrent vote by the same voter.
				existing, err = findVote(tx, subject, subjectID, voterID)
				if err != nil {
					return err
				}
			}
		}

		if existing != nil && existing.Value != value {
			if err := removeVote(tx, subject, subjectID, existing); err != nil {
				return err
			}
		}

		rating, err = readRating(tx, subject, subjectID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return rating, nil
}

// Create records a new vote and fails if the voter already voted.
func (s *VoteService) Create(ctx context.Context, subject models.Votable, subjectID, voterID, value int) (*models.VoteRecord, error) {
	if err := validateVoteValue(value); err != nil {
		return nil, err
	}

	var vote *models.VoteRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireSubject(tx, subject, subjectID); err != nil {
			return err
		}

		existing, err := findVote(tx, subject, subjectID, voterID)
		if err != nil {
			return err
		}
		inserted := false
		if existing == nil {
			inserted, err = insertVote(tx, subject, subjectID, voterID, value)
			if err != nil {
				return err
			}
		}
		if !inserted {
			return apperrors.ValidationError("Vote already exists.").
				WithField("non_field_errors", "Vote already exists.")
		}

		vote, err = findVote(tx, subject, subjectID, voterID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.withVoter(ctx, vote)
}

// Retract deletes a vote owned by actorID.
func (s *VoteService) Retract(ctx context.Context, subject models.Votable, subjectID, voteID, actorID int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vote, err := ownedVote(tx, subject, subjectID, voteID, actorID)
		if err != nil {
			return err
		}
		return removeVote(tx, subject, subjectID, vote)
	})
}

// Change replaces the value of a vote owned by actorID and recomputes the
// subject's counters from the ledger.
func (s *VoteService) Change(ctx context.Context, subject models.Votable, subjectID, voteID, actorID, value int) (*models.VoteRecord, error) {
	if err := validateVoteValue(value); err != nil {
		return nil, err
	}

	var vote *models.VoteRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockSubject(tx, subject, subjectID); err != nil {
			return err
		}

		existing, err := ownedVote(tx, subject, subjectID, voteID, actorID)
		if err != nil {
			return err
		}

		err = tx.Table(subject.VoteTableName()).
			Where("id = ?", existing.ID).
			UpdateColumns(map[string]any{"value": value, "timestamp": time.Now().UTC()}).Error
		if err != nil {
			return err
		}

		if err := recompute(tx, subject, subjectID); err != nil {
			return err
		}

		vote, err = voteByID(tx, subject, subjectID, voteID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.withVoter(ctx, vote)
}

// Recompute rebuilds rating and number_of_votes from the ledger.
func (s *VoteService) Recompute(ctx context.Context, subject models.Votable, subjectID int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockSubject(tx, subject, subjectID); err != nil {
			return err
		}
		return recompute(tx, subject, subjectID)
	})
}

// List returns a page of the subject's votes, oldest first.
func (s *VoteService) List(ctx context.Context, subject models.Votable, subjectID, page int) (*models.Page[models.VoteRecord], error) {
	if err := validatePage(page); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := requireSubject(db, subject, subjectID); err != nil {
		return nil, err
	}

	q := db.Table(subject.VoteTableName()).
		Where(subject.VoteSubjectColumn()+" = ?", subjectID).
		Session(&gorm.Session{})

	result := &models.Page[models.VoteRecord]{Results: []models.VoteRecord{}}
	if err := q.Count(&result.Count).Error; err != nil {
		return nil, err
	}

	err := q.Select("*, " + subject.VoteSubjectColumn() + " AS subject_id").
		Order("id").
		Scopes(paginate(page, s.limits.PageSize)).
		Find(&result.Results).Error
	if err != nil {
		return nil, err
	}

	if err := attachVoters(db, result.Results); err != nil {
		return nil, err
	}
	return result, nil
}

// Get returns a single vote of the subject.
func (s *VoteService) Get(ctx context.Context, subject models.Votable, subjectID, voteID int) (*models.VoteRecord, error) {
	vote, err := voteByID(s.db.WithContext(ctx), subject, subjectID, voteID)
	if err != nil {
		return nil, err
	}
	return s.withVoter(ctx, vote)
}

func (s *VoteService) withVoter(ctx context.Context, vote *models.VoteRecord) (*models.VoteRecord, error) {
	votes := []models.VoteRecord{*vote}
	if err := attachVoters(s.db.WithContext(ctx), votes); err != nil {
		return nil, err
	}
	return &votes[0], nil
}

func validateVoteValue(value int) error {
	if !models.ValidVoteValue(value) {
		return apperrors.ValidationError("Invalid vote value.").
			WithField("value", "Vote value must be 1 or -1.")
	}
	return nil
}

func requireSubject(tx *gorm.DB, subject models.Votable, subjectID int) error {
	var n int64
	if err := tx.Table(subject.TableName()).Where("id = ?", subjectID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return subjectNotFound(subject, subjectID)
	}
	return nil
}

// lockSubject takes a row lock on the subject. Taken before the ledger is
// read, it makes a recompute wait for concurrent counter writers to commit
// so its aggregate sees their votes.
func lockSubject(tx *gorm.DB, subject models.Votable, subjectID int) error {
	var row struct{ ID int }
	err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Table(subject.TableName()).
		Select("id").
		Where("id = ?", subjectID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return subjectNotFound(subject, subjectID)
	}
	return err
}

func subjectNotFound(subject models.Votable, subjectID int) error {
	return apperrors.NotFoundError(fmt.Sprintf("The %s does not exist.", subject.Kind())).
		WithField("target_id", fmt.Sprintf("Invalid pk %d - object does not exist.", subjectID)).
		WithContext("target_id", subjectID)
}

func voteQuery(tx *gorm.DB, subject models.Votable, subjectID int) *gorm.DB {
	col := subject.VoteSubjectColumn()
	return tx.Table(subject.VoteTableName()).
		Select("*, "+col+" AS subject_id").
		Where(col+" = ?", subjectID)
}

// findVote returns the voter's vote on the subject, or nil.
func findVote(tx *gorm.DB, subject models.Votable, subjectID, voterID int) (*models.VoteRecord, error) {
	var vote models.VoteRecord
	err := voteQuery(tx, subject, subjectID).Where("user_id = ?", voterID).Take(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func voteByID(tx *gorm.DB, subject models.Votable, subjectID, voteID int) (*models.VoteRecord, error) {
	var vote models.VoteRecord
	err := voteQuery(tx, subject, subjectID).Where("id = ?", voteID).Take(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFoundError("Vote not found.").WithContext("vote_id", voteID)
	}
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func ownedVote(tx *gorm.DB, subject models.Votable, subjectID, voteID, actorID int) (*models.VoteRecord, error) {
	vote, err := voteByID(tx, subject, subjectID, voteID)
	if err != nil {
		return nil, err
	}
	if vote.UserID != actorID {
		return nil, apperrors.ForbiddenError("You do not have permission to perform this action.").
			WithContext("vote_id", voteID)
	}
	return vote, nil
}

// insertVote inserts a vote and bumps the counters. It reports false when
// the voter already has a vote on the subject.
func insertVote(tx *gorm.DB, subject models.Votable, subjectID, voterID, value int) (bool, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(subject.NewVote(subjectID, voterID, value))
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, adjustCounters(tx, subject, subjectID, value, 1)
}

// removeVote deletes the vote if it still holds its value and reverses its
// effect on the counters.
func removeVote(tx *gorm.DB, subject models.Votable, subjectID int, vote *models.VoteRecord) error {
	res := tx.Where("id = ? AND value = ?", vote.ID, vote.Value).Delete(subject.NewVote(0, 0, 0))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}
	return adjustCounters(tx, subject, subjectID, -vote.Value, -1)
}

func adjustCounters(tx *gorm.DB, subject models.Votable, subjectID, ratingDelta, votesDelta int) error {
	return tx.Table(subject.TableName()).
		Where("id = ?", subjectID).
		UpdateColumns(map[string]any{
			"rating":          gorm.Expr("rating + ?", ratingDelta),
			"number_of_votes": gorm.Expr("number_of_votes + ?", votesDelta),
		}).Error
}

// recompute rewrites the counters from the ledger. Callers hold the
// subject's row lock.
func recompute(tx *gorm.DB, subject models.Votable, subjectID int) error {
	col := subject.VoteSubjectColumn()
	ledger := func() *gorm.DB {
		return tx.Session(&gorm.Session{NewDB: true}).
			Table(subject.VoteTableName()).
			Where(col+" = ?", subjectID)
	}
	return tx.Table(subject.TableName()).
		Where("id = ?", subjectID).
		UpdateColumns(map[string]any{
			"rating":          gorm.Expr("(?)", ledger().Select("COALESCE(SUM(value), 0)")),
			"number_of_votes": gorm.Expr("(?)", ledger().Select("COUNT(*)")),
		}).Error
}

func readRating(tx *gorm.DB, subject models.Votable, subjectID int) (int, error) {
	var rating int
	err := tx.Table(subject.TableName()).Select("rating").Where("id = ?", subjectID).Scan(&rating).Error
	return rating, err
}

// attachVoters fills in the public voter info of each vote.
func attachVoters(db *gorm.DB, votes []models.VoteRecord) error {
	if len(votes) == 0 {
		return nil
	}
	ids := make([]int, 0, len(votes))
	for _, v := range votes {
		ids = append(ids, v.UserID)
	}

	var users []models.User
	if err := db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return err
	}
	byID := make(map[int]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for i := range votes {
		votes[i].User = byID[votes[i].UserID].Summary()
	}
	return nil
}
