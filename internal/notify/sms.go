package notify

import (
	"fmt"
	"log/slog"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSSender dispatches the password-reset SMS for users who registered a
// phone number but no email. The phone path of forgot-password is still a
// stub in practice: without Twilio credentials this only logs.
type SMSSender interface {
	Send(to, message string) error
}

// TwilioSender implements SMSSender over the Twilio REST API.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
	logger *slog.Logger
}

// NewTwilioSender creates a TwilioSender. With an empty fromNumber the
// sender logs instead of sending.
func NewTwilioSender(accountSID, authToken, fromNumber string, logger *slog.Logger) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioSender{
		client: client,
		from:   fromNumber,
		logger: logger,
	}
}

// Send delivers an SMS, or logs it when Twilio is not configured.
func (t *TwilioSender) Send(to, message string) error {
	if t.from == "" {
		t.logger.Info("SMS not configured, logging instead",
			slog.String("to", to),
			slog.String("message", message),
		)
		return nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(message)

	if _, err := t.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("notify: sending SMS: %w", err)
	}

	return nil
}
