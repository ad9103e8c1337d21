package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// messageCreator is the subset of the Twilio REST API used for SMS.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioNotifier sends notifications as SMS to the question author's phone.
type TwilioNotifier struct {
	api  messageCreator
	from string
}

func NewTwilioNotifier(accountSID, authToken, from string) *TwilioNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioNotifier{api: client.Api, from: from}
}

func (t *TwilioNotifier) NewAnswer(ctx context.Context, notice NewAnswerNotice) error {
	if notice.AuthorPhone == "" {
		log.Debug().Int("question_id", notice.QuestionID).Msg("Question author has no phone, skipping SMS")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(notice.AuthorPhone)
	params.SetFrom(t.from)
	params.SetBody(notice.Message())

	resp, err := t.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}

	event := log.Info().Int("question_id", notice.QuestionID)
	if resp != nil && resp.Sid != nil {
		event = event.Str("sid", *resp.Sid)
	}
	event.Msg("New answer SMS sent")
	return nil
}
