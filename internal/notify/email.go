// internal/notify/email.go
package notify

import (
	"context"
	"fmt"

	"tour-estimate-workers/internal/common/logger"
	"tour-estimate-workers/internal/estimate"
)

// Mailer sends plain text email. *aws.SESClient satisfies it.
type Mailer interface {
	SendText(ctx context.Context, to []string, subject, body string) (string, error)
}

// EmailHook mails the expert desk about submissions and customer responses,
// and the customer when their estimate is sent.
type EmailHook struct {
	mailer       Mailer
	expertEmail  string
	shareBaseURL string
	logger       logger.Logger
}

func NewEmailHook(mailer Mailer, expertEmail, shareBaseURL string, log logger.Logger) *EmailHook {
	return &EmailHook{
		mailer:       mailer,
		expertEmail:  expertEmail,
		shareBaseURL: shareBaseURL,
		logger:       logger.ForComponent(log, "notify-email"),
	}
}

func (h *EmailHook) Name() string { return "email" }

func (h *EmailHook) Fire(ctx context.Context, n estimate.Notice) error {
	var (
		msg message
		to  string
	)
	switch n.Trigger {
	case estimate.TriggerSubmitted:
		msg, to = expertSubmitted, h.expertEmail
	case estimate.TriggerRevisionRequested:
		msg, to = expertRevision, h.expertEmail
	case estimate.TriggerApproved, estimate.TriggerDeclined:
		msg, to = expertResponse, h.expertEmail
	case estimate.TriggerSent:
		msg = customerSent
		if n.Session != nil {
			to = n.Session.Contact.Email
		}
	default:
		return nil
	}
	if to == "" {
		h.logger.Debug("No recipient for notification", map[string]interface{}{
			"trigger":   string(n.Trigger),
			"sessionId": n.SessionID(),
		})
		return nil
	}

	subject, body, err := msg.render(newView(n, h.shareBaseURL))
	if err != nil {
		return err
	}
	id, err := h.mailer.SendText(ctx, []string{to}, subject, body)
	if err != nil {
		return fmt.Errorf("email %s: %w", n.Trigger, err)
	}
	h.logger.Info("Notification email sent", map[string]interface{}{
		"trigger":   string(n.Trigger),
		"sessionId": n.SessionID(),
		"messageId": id,
	})
	return nil
}
