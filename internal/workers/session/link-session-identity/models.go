// internal/workers/session/link-session-identity/models.go
package linksessionidentity

import "tour-estimate-workers/internal/common/validation"

// Input identifies the caller either by an access token, resolved through
// Keycloak, or by a user id already verified upstream.
type Input struct {
	SessionID   string `json:"sessionId"`
	AccessToken string `json:"accessToken,omitempty"`
	UserID      string `json:"userId,omitempty"`
}

type Output struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Email     string `json:"userEmail,omitempty"`
	Linked    bool   `json:"sessionLinked"`
}

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["sessionId"],
	"properties": {
		"sessionId": {"type": "string", "minLength": 1},
		"accessToken": {"type": "string", "minLength": 1},
		"userId": {"type": "string", "minLength": 1}
	},
	"anyOf": [
		{"required": ["accessToken"]},
		{"required": ["userId"]}
	]
}`)
