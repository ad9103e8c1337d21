package models

import "time"

// Vote values.
const (
	VoteUp   = 1
	VoteDown = -1
)

// ValidVoteValue reports whether v is an up or down vote.
func ValidVoteValue(v int) bool {
	return v == VoteUp || v == VoteDown
}

// QuestionVote tracks a user's vote on a question.
type QuestionVote struct {
	ID         int       `gorm:"primaryKey"`
	QuestionID int       `gorm:"not null;uniqueIndex:idx_question_votes_question_user"`
	UserID     int       `gorm:"not null;uniqueIndex:idx_question_votes_question_user;index"`
	Value      int       `gorm:"not null"`
	Timestamp  time.Time `gorm:"autoUpdateTime"`
}

// AnswerVote tracks a user's vote on an answer.
type AnswerVote struct {
	ID        int       `gorm:"primaryKey"`
	AnswerID  int       `gorm:"not null;uniqueIndex:idx_answer_votes_answer_user"`
	UserID    int       `gorm:"not null;uniqueIndex:idx_answer_votes_answer_user;index"`
	Value     int       `gorm:"not null"`
	Timestamp time.Time `gorm:"autoUpdateTime"`
}

// VoteRecord is the shape shared by both vote tables, with the subject
// column aliased to subject_id.
type VoteRecord struct {
	ID        int         `json:"id"`
	SubjectID int         `json:"-"`
	UserID    int         `json:"-"`
	User      UserSummary `gorm:"-" json:"user"`
	Value     int         `json:"value"`
	Timestamp time.Time   `json:"timestamp"`
}

type VoteRequest struct {
	Value int `json:"value" binding:"required,oneof=-1 1"`
}

// CastVoteRequest is the toggle-vote payload used by the question and answer pages.
type CastVoteRequest struct {
	TargetID int `json:"target_id" binding:"required"`
	Value    int `json:"value" binding:"required,oneof=-1 1"`
}
