// Package retrieval turns a survey into draft items using similar historical
// requests as evidence for the generative drafting service.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"tour-estimate-workers/internal/common/logger"
	"tour-estimate-workers/internal/models"
)

type Index interface {
	Search(ctx context.Context, query string, k int, minScore float64) ([]Record, error)
}

type Drafter interface {
	Draft(ctx context.Context, req DraftRequest) ([]models.DraftItem, error)
}

type Request struct {
	Survey        models.Survey
	Limit         int
	MinSimilarity float64
}

type Result struct {
	DraftItems []models.DraftItem
	Sources    []models.RetrievalSource
	RawQuery   string
}

type Retriever struct {
	index   Index
	drafter Drafter
	logger  logger.Logger
}

func NewRetriever(index Index, drafter Drafter, log logger.Logger) *Retriever {
	return &Retriever{
		index:   index,
		drafter: drafter,
		logger:  logger.ForComponent(log, "retrieval"),
	}
}

// Retrieve searches for similar requests and drafts an itinerary from them.
// When no record clears MinSimilarity it returns an empty result and no error.
// ctx cancellation aborts both the search and the drafting call.
func (r *Retriever) Retrieve(ctx context.Context, req Request) (*Result, error) {
	query := BuildQuery(req.Survey)
	result := &Result{RawQuery: query}

	records, err := r.index.Search(ctx, query, req.Limit, req.MinSimilarity)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	evidence := make([]Record, 0, len(records))
	for _, rec := range records {
		if rec.Similarity >= req.MinSimilarity {
			evidence = append(evidence, rec)
		}
	}
	sort.SliceStable(evidence, func(a, b int) bool { return evidence[a].Similarity > evidence[b].Similarity })
	if req.Limit > 0 && len(evidence) > req.Limit {
		evidence = evidence[:req.Limit]
	}
	if len(evidence) == 0 {
		r.logger.Info("No similar requests above threshold", map[string]interface{}{
			"minSimilarity": req.MinSimilarity,
			"candidates":    len(records),
		})
		return result, nil
	}

	for _, rec := range evidence {
		result.Sources = append(result.Sources, models.RetrievalSource{
			ID:         rec.ID,
			Similarity: rec.Similarity,
			Summary:    rec.Summary,
		})
	}

	items, err := r.drafter.Draft(ctx, DraftRequest{Survey: req.Survey, Query: query, Evidence: evidence})
	if err != nil {
		return nil, fmt.Errorf("draft: %w", err)
	}
	result.DraftItems = items
	return result, nil
}

// BuildQuery renders the survey as the free-text query embedded for search.
func BuildQuery(s models.Survey) string {
	var parts []string
	add := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			parts = append(parts, label+": "+value)
		}
	}
	add("region", s.Region)
	if s.Days > 0 {
		parts = append(parts, fmt.Sprintf("days: %d", s.Days))
	}
	if s.Travelers > 0 {
		parts = append(parts, fmt.Sprintf("travelers: %d", s.Travelers))
	}
	add("interests", strings.Join(s.Interests, ", "))
	add("style", s.TravelStyle)
	add("budget", s.Budget)
	add("must-see", strings.Join(s.MustSee, ", "))
	add("notes", s.Notes)
	return strings.Join(parts, "; ")
}
