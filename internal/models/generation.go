// internal/models/generation.go
package models

import "time"

type GenerationSource string

const (
	SourceRetrieval           GenerationSource = "retrieval"
	SourcePlaceholderFallback GenerationSource = "placeholder-fallback"
)

// RetrievalSource is a historical record that contributed to a draft.
type RetrievalSource struct {
	ID         string  `json:"id"`
	Similarity float64 `json:"similarity"`
	Summary    string  `json:"summary,omitempty"`
}

// Unresolved reasons.
const (
	ReasonNoMatch          = "no_match"
	ReasonBelowThreshold   = "below_fuzzy_threshold"
	ReasonRegionMismatch   = "region_mismatch"
	ReasonDuplicate        = "duplicate"
	ReasonIneligible       = "ineligible"
	ReasonMustSeeNotFound  = "must_see_not_found"
	ReasonUnknownCatalogID = "unknown_catalog_id"
)

type UnresolvedItem struct {
	Name      string   `json:"name"`
	Day       int      `json:"day"`
	Reason    string   `json:"reason"`
	BestScore *float64 `json:"bestScore,omitempty"`
}

type MatchingStats struct {
	DirectID          int              `json:"directId"`
	Exact             int              `json:"exact"`
	Partial           int              `json:"partial"`
	Fuzzy             int              `json:"fuzzy"`
	Unmatched         int              `json:"unmatched"`
	RegionFiltered    int              `json:"regionFiltered"`
	DuplicatesRemoved int              `json:"duplicatesRemoved"`
	IneligibleRemoved int              `json:"ineligibleRemoved"`
	MustSeeAdded      int              `json:"mustSeeAdded"`
	Unresolved        []UnresolvedItem `json:"unresolved"`
}

// Count returns the number of matches recorded for tier.
func (s MatchingStats) Count(tier MatchTier) int {
	return *s.counter(tier)
}

func (s *MatchingStats) Record(tier MatchTier) {
	*s.counter(tier)++
}

// Demote moves one resolved match of tier to unmatched, for an item a
// post-filter removed from the itinerary.
func (s *MatchingStats) Demote(tier MatchTier) {
	if tier == TierUnmatched {
		return
	}
	if c := s.counter(tier); *c > 0 {
		*c--
		s.Unmatched++
	}
}

// FilteredOut counts drafts the region and eligibility filters removed
// from the itinerary.
func (s MatchingStats) FilteredOut() int {
	return s.RegionFiltered + s.IneligibleRemoved
}

func (s *MatchingStats) counter(tier MatchTier) *int {
	switch tier {
	case TierDirectID:
		return &s.DirectID
	case TierExact:
		return &s.Exact
	case TierPartial:
		return &s.Partial
	case TierFuzzy:
		return &s.Fuzzy
	default:
		return &s.Unmatched
	}
}

// GenerationMetadata is written once per generation and never edited.
type GenerationMetadata struct {
	GeneratedAt        time.Time         `json:"generatedAt"`
	ElapsedMs          int64             `json:"elapsedMs"`
	Source             GenerationSource  `json:"source"`
	Query              string            `json:"query"`
	Sources            []RetrievalSource `json:"sources"`
	Matching           MatchingStats     `json:"matching"`
	TotalDraftItems    int               `json:"totalDraftItems"`
	PlaceholderCount   int               `json:"placeholderCount"`
	RequestedInterests []string          `json:"requestedInterests,omitempty"`
	MatchedInterests   []string          `json:"matchedInterests,omitempty"`
	FallbackReason     string            `json:"fallbackReason,omitempty"`
	ConfidenceScore    int               `json:"confidenceScore"`
}
