// internal/notify/crm.go
package notify

import (
	"context"
	"fmt"
	"strings"

	"tour-estimate-workers/internal/common/logger"
	"tour-estimate-workers/internal/common/zoho"
	"tour-estimate-workers/internal/estimate"
)

const leadSource = "AI Estimate"

// LeadCreator pushes leads to the CRM. *zoho.CRMClient satisfies it.
type LeadCreator interface {
	CreateLead(ctx context.Context, lead *zoho.Lead) (string, error)
}

// CRMHook records a lead for every submitted session that left contact details.
type CRMHook struct {
	crm    LeadCreator
	logger logger.Logger
}

func NewCRMHook(crm LeadCreator, log logger.Logger) *CRMHook {
	return &CRMHook{crm: crm, logger: logger.ForComponent(log, "notify-crm")}
}

func (h *CRMHook) Name() string { return "crm" }

func (h *CRMHook) Fire(ctx context.Context, n estimate.Notice) error {
	if n.Trigger != estimate.TriggerSubmitted || n.Session == nil {
		return nil
	}
	contact := n.Session.Contact
	if contact.Email == "" && contact.Phone == "" {
		return nil
	}

	first, last := zoho.SplitName(contact.Name)
	lead := &zoho.Lead{
		Email:       contact.Email,
		FirstName:   first,
		LastName:    last,
		Phone:       contact.Phone,
		Source:      leadSource,
		Description: leadDescription(n),
	}
	id, err := h.crm.CreateLead(ctx, lead)
	if err != nil {
		return fmt.Errorf("crm lead: %w", err)
	}
	h.logger.Info("CRM lead created", map[string]interface{}{
		"sessionId": n.SessionID(),
		"leadId":    id,
	})
	return nil
}

func leadDescription(n estimate.Notice) string {
	s := n.Session.Survey
	parts := []string{
		fmt.Sprintf("session %s", n.Session.ID),
		fmt.Sprintf("%d days in %s", s.Days, s.Region),
		fmt.Sprintf("%d travelers", s.Travelers),
	}
	if len(s.Interests) > 0 {
		parts = append(parts, "interests: "+strings.Join(s.Interests, ", "))
	}
	if n.Estimate != nil {
		parts = append(parts, "estimate "+n.Estimate.ID)
	}
	return strings.Join(parts, "; ")
}
