// internal/workers/estimate/submit-to-expert/models.go
package submittoexpert

import "tour-estimate-workers/internal/common/validation"

type Input struct {
	SessionID string `json:"sessionId"`
}

type Output struct {
	AlreadySubmitted    bool   `json:"alreadySubmitted"`
	EstimateID          string `json:"estimateId,omitempty"`
	EstimateStatus      string `json:"estimateStatus,omitempty"`
	NotificationWarning bool   `json:"notificationWarning"`
}

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["sessionId"],
	"properties": {
		"sessionId": {"type": "string", "minLength": 1}
	}
}`)
