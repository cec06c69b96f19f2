// internal/notify/sms.go
package notify

import (
	"context"
	"fmt"

	"tour-estimate-workers/internal/common/logger"
	"tour-estimate-workers/internal/estimate"
)

// Texter sends SMS. *aws.SNSClient satisfies it.
type Texter interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

// SMSHook texts the customer when an estimate is sent to them or approved.
type SMSHook struct {
	texter       Texter
	shareBaseURL string
	logger       logger.Logger
}

func NewSMSHook(texter Texter, shareBaseURL string, log logger.Logger) *SMSHook {
	return &SMSHook{texter: texter, shareBaseURL: shareBaseURL, logger: logger.ForComponent(log, "notify-sms")}
}

func (h *SMSHook) Name() string { return "sms" }

func (h *SMSHook) Fire(ctx context.Context, n estimate.Notice) error {
	if n.Session == nil || n.Session.Contact.Phone == "" || n.Estimate == nil {
		return nil
	}

	var text string
	switch n.Trigger {
	case estimate.TriggerSent:
		text = "Your travel estimate is ready: " + ShareURL(h.shareBaseURL, n.Estimate.ShareToken)
	case estimate.TriggerApproved:
		text = "Thanks! Your travel estimate is confirmed. Your expert will be in touch shortly."
	default:
		return nil
	}

	id, err := h.texter.SendSMS(ctx, n.Session.Contact.Phone, text)
	if err != nil {
		return fmt.Errorf("sms %s: %w", n.Trigger, err)
	}
	h.logger.Info("Notification SMS sent", map[string]interface{}{
		"trigger":   string(n.Trigger),
		"sessionId": n.SessionID(),
		"messageId": id,
	})
	return nil
}
