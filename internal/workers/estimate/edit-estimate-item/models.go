// internal/workers/estimate/edit-estimate-item/models.go
package editestimateitem

import "tour-estimate-workers/internal/common/validation"

const (
	OperationResolve = "resolve"
	OperationRemove  = "remove"
)

type Input struct {
	EstimateID string `json:"estimateId"`
	ItemID     string `json:"itemId"`
	Operation  string `json:"operation"`
	CatalogID  int64  `json:"catalogId,omitempty"`
}

type Output struct {
	EstimateID      string `json:"estimateId"`
	EstimateStatus  string `json:"estimateStatus"`
	ItemCount       int    `json:"itemCount"`
	HasPlaceholders bool   `json:"hasPlaceholders"`
	Total           int64  `json:"total"`
}

// catalogId is only required when resolving a placeholder.
var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["estimateId", "itemId", "operation"],
	"properties": {
		"estimateId": {"type": "string", "minLength": 1},
		"itemId": {"type": "string", "minLength": 1},
		"operation": {"type": "string", "enum": ["resolve", "remove"]},
		"catalogId": {"type": "integer", "minimum": 1}
	},
	"if": {"properties": {"operation": {"const": "resolve"}}},
	"then": {"required": ["catalogId"]}
}`)
