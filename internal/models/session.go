// internal/models/session.go
package models

import "time"

// SessionStatus tracks the quote session as seen by the survey flow.
type SessionStatus string

const (
	SessionInProgress       SessionStatus = "in_progress"
	SessionEstimateAttached SessionStatus = "estimate_attached"
)

// Survey is the completed guided survey of a quote session.
type Survey struct {
	Region      string     `json:"region"`
	Days        int        `json:"days"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	Travelers   int        `json:"travelers"`
	Interests   []string   `json:"interests,omitempty"`
	TravelStyle string     `json:"travelStyle,omitempty"`
	Budget      string     `json:"budget,omitempty"`
	MustSee     []string   `json:"mustSee,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// QuoteSession is the customer's survey session. IsCompleted flips once, when
// the session is submitted to an expert.
type QuoteSession struct {
	ID          string        `json:"id"`
	UserID      *string       `json:"userId,omitempty"`
	Status      SessionStatus `json:"status"`
	IsCompleted bool          `json:"isCompleted"`
	EstimateID  *string       `json:"estimateId,omitempty"`
	Contact     Contact       `json:"contact"`
	Survey      Survey        `json:"survey"`
	CreatedAt   time.Time     `json:"createdAt"`
}
