// internal/workers/estimate/respond-to-estimate/models.go
package respondtoestimate

import "tour-estimate-workers/internal/common/validation"

type Input struct {
	SessionID       string                 `json:"sessionId"`
	Response        string                 `json:"response"`
	RevisionDetails string                 `json:"revisionDetails,omitempty"`
	Structured      map[string]interface{} `json:"structuredRevision,omitempty"`
}

type Output struct {
	EstimateID          string `json:"estimateId"`
	EstimateStatus      string `json:"estimateStatus"`
	RevisionID          string `json:"revisionId,omitempty"`
	NotificationWarning bool   `json:"notificationWarning"`
}

// response is left as a free string; unsupported values are rejected by the
// lifecycle with INVALID_RESPONSE.
var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["sessionId", "response"],
	"properties": {
		"sessionId": {"type": "string", "minLength": 1},
		"response": {"type": "string"},
		"revisionDetails": {"type": "string"},
		"structuredRevision": {"type": "object"}
	}
}`)
