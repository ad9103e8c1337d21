package models

import "time"

type Answer struct {
	ID            int       `gorm:"primaryKey" json:"id"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	AuthorID      int       `gorm:"not null;index" json:"-"`
	Author        User      `gorm:"foreignKey:AuthorID" json:"-"`
	QuestionID    int       `gorm:"not null;index;uniqueIndex:idx_answers_accepted_per_question,where:is_accepted = true" json:"question"`
	Posted        time.Time `gorm:"autoCreateTime" json:"posted"`
	IsAccepted    bool      `gorm:"not null;default:false" json:"is_accepted"`
	Rating        int       `gorm:"not null;default:0" json:"rating"`
	NumberOfVotes int       `gorm:"not null;default:0" json:"number_of_votes"`
	UpdatedAt     time.Time `json:"-"`
}

func (Answer) TableName() string         { return "answers" }
func (Answer) VoteTableName() string     { return "answer_votes" }
func (Answer) VoteSubjectColumn() string { return "answer_id" }
func (Answer) Kind() string              { return "answer" }

func (Answer) NewVote(answerID, userID, value int) any {
	return &AnswerVote{AnswerID: answerID, UserID: userID, Value: value}
}

type AnswerResponse struct {
	Answer
	Author UserSummary `json:"author"`
}

func (a Answer) Response() AnswerResponse {
	return AnswerResponse{Answer: a, Author: a.Author.Summary()}
}

type CreateAnswerRequest struct {
	Content string `json:"content"`
}

type UpdateAnswerRequest struct {
	IsAccepted *bool `json:"is_accepted" binding:"required"`
}
