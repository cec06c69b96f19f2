// internal/workers/session/publish-session-event/models.go
package publishsessionevent

import "tour-estimate-workers/internal/common/validation"

type Input struct {
	SessionID string      `json:"sessionId"`
	EventType string      `json:"eventType"`
	Payload   interface{} `json:"payload,omitempty"`
}

type Output struct {
	EventID     string `json:"eventId"`
	EventType   string `json:"eventType"`
	PublishedAt string `json:"publishedAt"` // RFC 3339
}

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["sessionId", "eventType"],
	"properties": {
		"sessionId": {"type": "string", "minLength": 1},
		"eventType": {"type": "string", "pattern": "^[a-z][a-z0-9_]*(\\.[a-z0-9_]+)*$"}
	}
}`)
