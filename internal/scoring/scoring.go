// Package scoring derives the confidence score stored with every generated estimate.
package scoring

import (
	"math"
	"sort"

	"tour-estimate-workers/internal/models"
)

const (
	weightMatchQuality = 0.35
	weightRetrieval    = 0.25
	weightInterests    = 0.20
	weightPlaceholders = 0.20

	topSources = 3
)

var tierWeights = []struct {
	tier   models.MatchTier
	weight float64
}{
	{models.TierDirectID, 1.0},
	{models.TierExact, 1.0},
	{models.TierPartial, 0.8},
	{models.TierFuzzy, 0.5},
}

// Breakdown exposes the four normalized components behind a score.
type Breakdown struct {
	MatchQuality     float64 `json:"matchQuality"`
	AvgRetrievalSim  float64 `json:"avgRetrievalSim"`
	InterestCoverage float64 `json:"interestCoverage"`
	PlaceholderRate  float64 `json:"placeholderRate"`
}

// Score returns the confidence score in [0, 100]. A generation with no draft
// items scores 0.
func Score(meta models.GenerationMetadata) int {
	if meta.TotalDraftItems <= 0 {
		return 0
	}
	b := Explain(meta)
	raw := weightMatchQuality*b.MatchQuality +
		weightRetrieval*b.AvgRetrievalSim +
		weightInterests*b.InterestCoverage +
		weightPlaceholders*(1-b.PlaceholderRate)
	return int(math.Round(100 * clamp(raw)))
}

func Explain(meta models.GenerationMetadata) Breakdown {
	var b Breakdown
	if meta.TotalDraftItems > 0 {
		total := float64(meta.TotalDraftItems)
		var weighted float64
		for _, tw := range tierWeights {
			weighted += tw.weight * float64(meta.Matching.Count(tw.tier))
		}
		b.MatchQuality = clamp(weighted / total)
		// Drafts the filters removed never reached the itinerary as resolved
		// items and weigh like placeholders.
		unresolved := meta.PlaceholderCount + meta.Matching.FilteredOut()
		b.PlaceholderRate = clamp(float64(unresolved) / total)
	}
	b.AvgRetrievalSim = avgTopSimilarity(meta.Sources)
	if n := len(meta.RequestedInterests); n > 0 {
		b.InterestCoverage = clamp(float64(len(meta.MatchedInterests)) / float64(n))
	}
	return b
}

func avgTopSimilarity(sources []models.RetrievalSource) float64 {
	if len(sources) == 0 {
		return 0
	}
	sims := make([]float64, len(sources))
	for i, s := range sources {
		sims[i] = s.Similarity
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sims)))
	if len(sims) > topSources {
		sims = sims[:topSources]
	}
	var sum float64
	for _, s := range sims {
		sum += s
	}
	return clamp(sum / float64(len(sims)))
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
