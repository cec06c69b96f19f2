// internal/workers/estimate/update-estimate-status/models.go
package updateestimatestatus

import "tour-estimate-workers/internal/common/validation"

type Input struct {
	EstimateID string `json:"estimateId"`
	Action     string `json:"action"` // "send" or "complete"
}

type Output struct {
	EstimateID          string `json:"estimateId"`
	PreviousStatus      string `json:"previousStatus"`
	EstimateStatus      string `json:"estimateStatus"`
	NotificationWarning bool   `json:"notificationWarning"`
}

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["estimateId", "action"],
	"properties": {
		"estimateId": {"type": "string", "minLength": 1},
		"action": {"type": "string", "enum": ["send", "complete"]}
	}
}`)
