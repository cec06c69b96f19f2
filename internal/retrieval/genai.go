// internal/retrieval/genai.go
package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	commonhttp "tour-estimate-workers/internal/common/http"
	"tour-estimate-workers/internal/common/validation"
	"tour-estimate-workers/internal/models"
)

var (
	ErrDraftingFailed = errors.New("drafting service failed")
	ErrInvalidDraft   = errors.New("drafting service returned an invalid draft")
)

const draftSchema = `{
  "type": "object",
  "required": ["items"],
  "properties": {
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "day"],
        "properties": {
          "name":          {"type": "string", "minLength": 1},
          "alias":         {"type": "string"},
          "day":           {"type": "integer", "minimum": 1},
          "orderIndex":    {"type": "integer", "minimum": 0},
          "justification": {"type": "string"},
          "itemType":      {"type": "string"},
          "catalogId":     {"type": ["integer", "null"]}
        }
      }
    }
  }
}`

var draftValidator = validation.MustCompile(draftSchema)

// GenAIClient calls the embedding and drafting endpoints of the generative service.
// Every call carries the caller's context, so cancelling it aborts the request.
type GenAIClient struct {
	http    *commonhttp.Client
	baseURL string
	apiKey  string
}

func NewGenAIClient(baseURL, apiKey string, maxRetries int) *GenAIClient {
	return &GenAIClient{
		http:    commonhttp.NewClient(0, commonhttp.WithRetries(maxRetries, 100*time.Millisecond)),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

func (c *GenAIClient) headers() map[string]string {
	if c.apiKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

// Embed returns the embedding vector of text.
func (c *GenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := c.http.PostJSON(ctx, c.baseURL+"/api/ai/embed", c.headers(), map[string]string{"input": text}, &resp); err != nil {
		return nil, fmt.Errorf("%w: embed: %w", ErrDraftingFailed, err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrInvalidDraft)
	}
	return resp.Embedding, nil
}

type DraftRequest struct {
	Survey   models.Survey `json:"survey"`
	Query    string        `json:"query"`
	Evidence []Record      `json:"evidence"`
}

// Draft asks the service for a day-by-day itinerary grounded on the evidence.
func (c *GenAIClient) Draft(ctx context.Context, req DraftRequest) ([]models.DraftItem, error) {
	raw, err := c.http.PostRaw(ctx, c.baseURL+"/api/ai/draft", c.headers(), req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDraftingFailed, err)
	}
	return decodeDraft(raw, req.Survey.Days)
}

// decodeDraft validates the payload and drops items scheduled past the trip.
func decodeDraft(raw []byte, days int) ([]models.DraftItem, error) {
	if err := draftValidator.ValidateBytes(raw).Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}
	var resp struct {
		Items []models.DraftItem `json:"items"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}

	items := make([]models.DraftItem, 0, len(resp.Items))
	for _, it := range resp.Items {
		if days > 0 && it.Day > days {
			continue
		}
		it.Name = strings.TrimSpace(it.Name)
		items = append(items, it)
	}
	return items, nil
}
