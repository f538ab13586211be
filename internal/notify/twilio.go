package notify

import (
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Config holds Twilio credentials and the notification route.
type Config struct {
	AccountSID string
	AuthToken  string
	From       string
	To         string
}

// SMSNotifier sends an SMS to the recruiting team when an interview finishes.
type SMSNotifier struct {
	config Config
	client *twilio.RestClient
}

func New(config Config) *SMSNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: config.AccountSID,
		Password: config.AuthToken,
	})
	return &SMSNotifier{config: config, client: client}
}

// InterviewCompleted sends the completion notification.
func (n *SMSNotifier) InterviewCompleted(sessionID, candidateName string, turns int) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(n.config.From)
	params.SetTo(n.config.To)
	params.SetBody(completionMessage(sessionID, candidateName, turns))

	if _, err := n.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("send completion sms: %w", err)
	}
	return nil
}

func completionMessage(sessionID, candidateName string, turns int) string {
	if candidateName == "" {
		candidateName = "unknown candidate"
	}
	return fmt.Sprintf("Interview %s completed: %s, %d turns. Transcript is in the archive.", sessionID, candidateName, turns)
}
