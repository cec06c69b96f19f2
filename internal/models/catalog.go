// internal/models/catalog.go
package models

// CatalogEntry is a place or service owned by the catalog. Read-only here.
type CatalogEntry struct {
	ID          int64    `json:"id"`
	NameKo      string   `json:"nameKo"`
	NameEn      string   `json:"nameEn"`
	ItemType    string   `json:"itemType"`
	Region      string   `json:"region,omitempty"` // empty when the catalog has no region info
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Price       int64    `json:"price"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	AutoSuggest bool     `json:"autoSuggest"`
}

// Names returns the non-empty canonical names, Korean first.
func (c CatalogEntry) Names() []string {
	names := make([]string, 0, 2)
	if c.NameKo != "" {
		names = append(names, c.NameKo)
	}
	if c.NameEn != "" {
		names = append(names, c.NameEn)
	}
	return names
}

// DisplayName prefers the English name.
func (c CatalogEntry) DisplayName() string {
	if c.NameEn != "" {
		return c.NameEn
	}
	return c.NameKo
}

// DraftItem is an unresolved suggestion produced by retrieval or drafting.
type DraftItem struct {
	Name          string `json:"name"`
	Alias         string `json:"alias,omitempty"`
	Day           int    `json:"day"`
	OrderIndex    int    `json:"orderIndex"`
	Justification string `json:"justification,omitempty"`
	CatalogID     *int64 `json:"catalogId,omitempty"`
	ItemType      string `json:"itemType,omitempty"`
}

// MatchTier is the strategy that resolved a draft item.
type MatchTier string

const (
	TierDirectID  MatchTier = "direct-id"
	TierExact     MatchTier = "exact"
	TierPartial   MatchTier = "partial"
	TierFuzzy     MatchTier = "fuzzy"
	TierUnmatched MatchTier = "unmatched"
)

// MatchResult classifies one draft item. Entry is nil iff Tier is unmatched;
// Score is set only for fuzzy matches.
type MatchResult struct {
	Draft DraftItem     `json:"draft"`
	Tier  MatchTier     `json:"tier"`
	Entry *CatalogEntry `json:"entry,omitempty"`
	Score *float64      `json:"score,omitempty"`
}
