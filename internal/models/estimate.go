// internal/models/estimate.go
package models

import "time"

type EstimateStatus string

const (
	StatusDraft     EstimateStatus = "draft"
	StatusPending   EstimateStatus = "pending"
	StatusSent      EstimateStatus = "sent"
	StatusApproved  EstimateStatus = "approved"
	StatusCompleted EstimateStatus = "completed"
	StatusCancelled EstimateStatus = "cancelled"
)

func (s EstimateStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusSent, StatusApproved, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// RevisionEntry is one customer modification request. The log is append-only.
type RevisionEntry struct {
	ID             string                 `json:"id"`
	RequestedAt    time.Time              `json:"requestedAt"`
	PreviousStatus EstimateStatus         `json:"previousStatus"`
	Details        string                 `json:"details,omitempty"`
	Structured     map[string]interface{} `json:"structured,omitempty"`
}

type Estimate struct {
	ID              string              `json:"id"`
	ShareToken      string              `json:"shareToken"`
	SessionID       string              `json:"sessionId"`
	Status          EstimateStatus      `json:"status"`
	Items           []EstimateItem      `json:"items"`
	RevisionHistory []RevisionEntry     `json:"revisionHistory"`
	Metadata        *GenerationMetadata `json:"generationMetadata,omitempty"`
	ValidUntil      time.Time           `json:"validUntil"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

func (e *Estimate) HasPlaceholders() bool {
	for _, it := range e.Items {
		if it.IsPlaceholder() {
			return true
		}
	}
	return false
}

func (e *Estimate) Total() int64 {
	var total int64
	for _, it := range e.Items {
		total += it.Subtotal()
	}
	return total
}

// FindItem returns the index of the item with id, or -1.
func (e *Estimate) FindItem(id string) int {
	for i, it := range e.Items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
