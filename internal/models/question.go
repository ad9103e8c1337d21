package models

import (
	"sort"
	"time"
)

type Question struct {
	ID              int       `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"size:255;not null" json:"title"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	AuthorID        int       `gorm:"not null;index" json:"-"`
	Author          User      `gorm:"foreignKey:AuthorID" json:"-"`
	Posted          time.Time `gorm:"autoCreateTime;index" json:"posted"`
	Rating          int       `gorm:"not null;default:0;index" json:"rating"`
	NumberOfVotes   int       `gorm:"not null;default:0;index" json:"number_of_votes"`
	NumberOfAnswers int       `gorm:"not null;default:0" json:"number_of_answers"`
	Tags            []Tag     `gorm:"many2many:question_tags" json:"-"`
	UpdatedAt       time.Time `json:"-"`
}

func (Question) TableName() string         { return "questions" }
func (Question) VoteTableName() string     { return "question_votes" }
func (Question) VoteSubjectColumn() string { return "question_id" }
func (Question) Kind() string              { return "question" }

func (Question) NewVote(questionID, userID, value int) any {
	return &QuestionVote{QuestionID: questionID, UserID: userID, Value: value}
}

// TagNames returns the sorted names of the loaded tags.
func (q Question) TagNames() []string {
	names := make([]string, 0, len(q.Tags))
	for _, t := range q.Tags {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

type QuestionResponse struct {
	Question
	Author UserSummary `json:"author"`
	Tags   []string    `json:"tags"`
}

func (q Question) Response() QuestionResponse {
	return QuestionResponse{Question: q, Author: q.Author.Summary(), Tags: q.TagNames()}
}

type CreateQuestionRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

type UpdateQuestionRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}
