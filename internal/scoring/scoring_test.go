// internal/scoring/scoring_test.go
package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tour-estimate-workers/internal/models"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		meta models.GenerationMetadata
		want int
	}{
		{
			name: "no draft items",
			meta: models.GenerationMetadata{
				Sources: []models.RetrievalSource{{Similarity: 0.9}},
			},
			want: 0,
		},
		{
			name: "perfect",
			meta: models.GenerationMetadata{
				TotalDraftItems:    2,
				Matching:           models.MatchingStats{DirectID: 1, Exact: 1},
				Sources:            []models.RetrievalSource{{Similarity: 1}},
				RequestedInterests: []string{"history"},
				MatchedInterests:   []string{"history"},
			},
			want: 100,
		},
		{
			// 0.35*(0.8+0.5)/4 + 0.25*0.8 + 0 + 0.20*(1-0.5) = 0.41375
			name: "mixed tiers",
			meta: models.GenerationMetadata{
				TotalDraftItems:    4,
				Matching:           models.MatchingStats{Partial: 1, Fuzzy: 1, Unmatched: 2},
				PlaceholderCount:   2,
				Sources:            []models.RetrievalSource{{Similarity: 0.9}, {Similarity: 0.5}, {Similarity: 0.7}, {Similarity: 0.8}},
				RequestedInterests: []string{"food"},
			},
			want: 41,
		},
		{
			// one placeholder per day, no sources: nothing but zeros
			name: "all placeholder fallback",
			meta: models.GenerationMetadata{
				Source:           models.SourcePlaceholderFallback,
				TotalDraftItems:  3,
				Matching:         models.MatchingStats{Unmatched: 3},
				PlaceholderCount: 3,
			},
			want: 0,
		},
		{
			name: "fallback with must-see",
			meta: models.GenerationMetadata{
				Source:           models.SourcePlaceholderFallback,
				TotalDraftItems:  3,
				Matching:         models.MatchingStats{Unmatched: 3, MustSeeAdded: 1},
				PlaceholderCount: 2,
			},
			// 0.20 * (1 - 2/3)
			want: 7,
		},
		{
			// both drafts matched exactly, then the region filter removed them
			name: "all drafts region filtered",
			meta: models.GenerationMetadata{
				TotalDraftItems: 2,
				Matching:        models.MatchingStats{Unmatched: 2, RegionFiltered: 2},
				Sources:         []models.RetrievalSource{{Similarity: 0.6}},
			},
			// 0.25 * 0.6
			want: 15,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.meta))
		})
	}
}

func TestScore_AlwaysInRange(t *testing.T) {
	metas := []models.GenerationMetadata{
		{TotalDraftItems: 1, Matching: models.MatchingStats{Exact: 5}, Sources: []models.RetrievalSource{{Similarity: 7}}},
		{TotalDraftItems: 1, PlaceholderCount: 9, Sources: []models.RetrievalSource{{Similarity: -3}}},
		{TotalDraftItems: -1},
	}
	for _, m := range metas {
		s := Score(m)
		assert.GreaterOrEqual(t, s, 0)
		assert.LessOrEqual(t, s, 100)
	}
}

func TestExplain_TopThreeSources(t *testing.T) {
	b := Explain(models.GenerationMetadata{
		TotalDraftItems: 1,
		Sources: []models.RetrievalSource{
			{Similarity: 0.1}, {Similarity: 0.9}, {Similarity: 0.6}, {Similarity: 0.9},
		},
	})
	assert.InDelta(t, 0.8, b.AvgRetrievalSim, 1e-9)
	assert.Zero(t, b.InterestCoverage)
}

func TestScore_FilteredItineraryNoBetterThanFallback(t *testing.T) {
	sources := []models.RetrievalSource{{Similarity: 0.6}, {Similarity: 0.6}}
	filtered := models.GenerationMetadata{
		Source:          models.SourceRetrieval,
		TotalDraftItems: 2,
		Matching:        models.MatchingStats{Unmatched: 2, RegionFiltered: 2},
		Sources:         sources,
	}
	fallback := models.GenerationMetadata{
		Source:           models.SourcePlaceholderFallback,
		TotalDraftItems:  3,
		Matching:         models.MatchingStats{Unmatched: 3},
		PlaceholderCount: 3,
		Sources:          sources,
	}

	b := Explain(filtered)
	assert.Zero(t, b.MatchQuality)
	assert.Equal(t, 1.0, b.PlaceholderRate)
	assert.LessOrEqual(t, Score(filtered), Score(fallback))
}

func TestExplain_IneligibleDropsCountAsUnresolved(t *testing.T) {
	b := Explain(models.GenerationMetadata{
		TotalDraftItems:  4,
		Matching:         models.MatchingStats{Exact: 2, Unmatched: 2, IneligibleRemoved: 1},
		PlaceholderCount: 1,
	})
	assert.InDelta(t, 0.5, b.MatchQuality, 1e-9)
	assert.InDelta(t, 0.5, b.PlaceholderRate, 1e-9)
}
