// internal/workers/estimate/generate-estimate/models.go
package generateestimate

import "tour-estimate-workers/internal/common/validation"

type Input struct {
	SessionID string `json:"sessionId"`
}

type Output struct {
	EstimateID          string `json:"estimateId"`
	ShareToken          string `json:"shareToken"`
	GenerationSource    string `json:"generationSource"`
	HasPlaceholders     bool   `json:"hasPlaceholders"`
	ItemCount           int    `json:"itemCount"`
	ConfidenceScore     int    `json:"confidenceScore"`
	NotificationWarning bool   `json:"notificationWarning"`
}

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["sessionId"],
	"properties": {
		"sessionId": {"type": "string", "minLength": 1}
	}
}`)
