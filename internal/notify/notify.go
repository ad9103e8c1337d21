// Package notify delivers "new answer" notifications to question authors.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// NewAnswerNotice describes an answer posted to someone's question.
type NewAnswerNotice struct {
	QuestionID     int
	QuestionTitle  string
	QuestionURL    string
	AuthorUsername string
	AuthorPhone    string
	AnswerAuthor   string
}

// Message renders the notice as plain text.
func (n NewAnswerNotice) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hasker - new answer! %s answered your question %q.", n.AnswerAuthor, n.QuestionTitle)
	if n.QuestionURL != "" {
		b.WriteString(" ")
		b.WriteString(n.QuestionURL)
	}
	return b.String()
}

// Notifier sends new-answer notifications.
type Notifier interface {
	NewAnswer(ctx context.Context, notice NewAnswerNotice) error
}

// LogNotifier writes notifications to the application log.
type LogNotifier struct{}

func (LogNotifier) NewAnswer(_ context.Context, notice NewAnswerNotice) error {
	log.Info().
		Int("question_id", notice.QuestionID).
		Str("to", notice.AuthorUsername).
		Str("answer_author", notice.AnswerAuthor).
		Msg(notice.Message())
	return nil
}

// QuestionURL builds the public link to a question.
func QuestionURL(baseURL string, questionID int) string {
	if baseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/questions/%d", strings.TrimRight(baseURL, "/"), questionID)
}
