// Package matching resolves free-text draft items against the catalog.
package matching

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"tour-estimate-workers/internal/catalog"
	"tour-estimate-workers/internal/common/logger"
	"tour-estimate-workers/internal/common/metrics"
	"tour-estimate-workers/internal/models"
)

// minPartialRunes is the shortest compact name allowed to satisfy containment.
const minPartialRunes = 2

type Options struct {
	FuzzyThreshold float64
	Region         string
	// FullRecord keeps the per-draft classification, catalog entry included, on the Outcome.
	FullRecord bool
}

// Outcome is the filtered, reindexed itinerary plus the statistics that produced it.
type Outcome struct {
	Items   []models.EstimateItem
	Results []models.MatchResult
	Stats   models.MatchingStats
	// Entries holds the catalog entry of every resolved item left in Items.
	Entries map[int64]models.CatalogEntry
}

type Engine struct {
	catalog catalog.Lookup
	regions *Regions
	logger  logger.Logger
}

func NewEngine(lookup catalog.Lookup, regions *Regions, log logger.Logger) *Engine {
	return &Engine{
		catalog: lookup,
		regions: regions,
		logger:  logger.ForComponent(log, "matching"),
	}
}

// Resolve classifies every draft with one batched catalog lookup, applies the
// region, duplicate and eligibility filters in that order and reindexes each day.
// Tier counts cover the items left after the region filter; region-dropped
// drafts count as unmatched.
func (e *Engine) Resolve(ctx context.Context, drafts []models.DraftItem, opts Options) (*Outcome, error) {
	out := &Outcome{
		Stats:   models.MatchingStats{Unresolved: []models.UnresolvedItem{}},
		Entries: make(map[int64]models.CatalogEntry),
	}
	if len(drafts) == 0 {
		return out, nil
	}

	byID, candidates, err := e.lookup(ctx, drafts)
	if err != nil {
		return nil, err
	}
	m := newMatcher(byID, candidates, opts, e.regions)

	items := make([]models.EstimateItem, 0, len(drafts))
	tiers := make(map[string]models.MatchTier, len(drafts))
	for _, d := range drafts {
		res, best := m.classify(d)
		out.Stats.Record(res.Tier)
		metrics.MatchTierTotal.WithLabelValues(string(res.Tier)).Inc()
		if opts.FullRecord {
			out.Results = append(out.Results, res)
		}

		var item models.EstimateItem
		if res.Entry != nil {
			item = models.NewResolvedItem(d.Day, *res.Entry, d.Justification)
			out.Entries[res.Entry.ID] = *res.Entry
		} else {
			item = models.NewPlaceholderItem(d.Day, d.Name, d.Justification)
			if d.ItemType != "" {
				item.ItemType = d.ItemType
			}
			out.Stats.Unresolved = append(out.Stats.Unresolved, unmatchedReason(d, best))
		}
		item.OrderIndex = d.OrderIndex
		tiers[item.ID] = res.Tier
		items = append(items, item)
	}

	items, dropped := FilterRegion(items, opts.Region, e.regions)
	out.Stats.RegionFiltered = len(dropped)
	for _, it := range dropped {
		out.Stats.Demote(tiers[it.ID])
	}
	out.Stats.Unresolved = append(out.Stats.Unresolved, droppedAs(dropped, models.ReasonRegionMismatch)...)
	metrics.PostFilterDropped.WithLabelValues("region").Add(float64(len(dropped)))

	items, dropped = FilterDuplicates(items)
	out.Stats.DuplicatesRemoved = len(dropped)
	metrics.PostFilterDropped.WithLabelValues("duplicate").Add(float64(len(dropped)))

	ineligible, err := e.catalog.FindIneligible(ctx, placeholderNames(items))
	if err != nil {
		return nil, fmt.Errorf("find ineligible: %w", err)
	}
	items, dropped = FilterIneligible(items, ineligible)
	out.Stats.IneligibleRemoved = len(dropped)
	out.Stats.Unresolved = append(out.Stats.Unresolved, droppedAs(dropped, models.ReasonIneligible)...)
	metrics.PostFilterDropped.WithLabelValues("ineligible").Add(float64(len(dropped)))

	out.Items = models.Reindex(items)
	out.Entries = keepEntries(out.Entries, out.Items)

	e.logger.Debug("Drafts resolved", map[string]interface{}{
		"drafts":         len(drafts),
		"items":          len(out.Items),
		"directId":       out.Stats.DirectID,
		"exact":          out.Stats.Exact,
		"partial":        out.Stats.Partial,
		"fuzzy":          out.Stats.Fuzzy,
		"unmatched":      out.Stats.Unmatched,
		"regionFiltered": out.Stats.RegionFiltered,
		"duplicates":     out.Stats.DuplicatesRemoved,
		"ineligible":     out.Stats.IneligibleRemoved,
	})
	return out, nil
}

// lookup issues the id and name queries for all drafts concurrently.
func (e *Engine) lookup(ctx context.Context, drafts []models.DraftItem) (map[int64]models.CatalogEntry, []models.CatalogEntry, error) {
	ids := lo.Uniq(lo.FilterMap(drafts, func(d models.DraftItem, _ int) (int64, bool) {
		if d.CatalogID == nil {
			return 0, false
		}
		return *d.CatalogID, true
	}))
	names := draftNames(drafts)

	var (
		byID       map[int64]models.CatalogEntry
		candidates []models.CatalogEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	if len(ids) > 0 {
		g.Go(func() error {
			var err error
			if byID, err = e.catalog.FindByIDs(gctx, ids); err != nil {
				return fmt.Errorf("find by ids: %w", err)
			}
			return nil
		})
	}
	if len(names) > 0 {
		g.Go(func() error {
			var err error
			if candidates, err = e.catalog.FindByNames(gctx, names, nil); err != nil {
				return fmt.Errorf("find by names: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return byID, candidates, nil
}

func draftNames(drafts []models.DraftItem) []string {
	var names []string
	for _, d := range drafts {
		for _, n := range []string{d.Name, d.Alias} {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}
	return lo.Uniq(names)
}

func unmatchedReason(d models.DraftItem, best float64) models.UnresolvedItem {
	u := models.UnresolvedItem{Name: d.Name, Day: d.Day, Reason: models.ReasonNoMatch}
	switch {
	case d.CatalogID != nil:
		u.Reason = models.ReasonUnknownCatalogID
	case best > 0:
		u.Reason = models.ReasonBelowThreshold
	}
	if best > 0 {
		score := best
		u.BestScore = &score
	}
	return u
}

func droppedAs(items []models.EstimateItem, reason string) []models.UnresolvedItem {
	return lo.Map(items, func(it models.EstimateItem, _ int) models.UnresolvedItem {
		return models.UnresolvedItem{Name: it.Name, Day: it.Day, Reason: reason}
	})
}

func placeholderNames(items []models.EstimateItem) []string {
	return lo.Uniq(lo.FilterMap(items, func(it models.EstimateItem, _ int) (string, bool) {
		return it.Name, it.IsPlaceholder() && strings.TrimSpace(it.Name) != ""
	}))
}

func keepEntries(entries map[int64]models.CatalogEntry, items []models.EstimateItem) map[int64]models.CatalogEntry {
	out := make(map[int64]models.CatalogEntry, len(entries))
	for _, it := range items {
		if id, ok := it.CatalogID(); ok {
			if e, found := entries[id]; found {
				out[id] = e
			}
		}
	}
	return out
}

type candidate struct {
	entry   models.CatalogEntry
	norm    []string
	compact []string
}

type draftKey struct {
	norm    string
	compact string
}

// matcher holds one batch of catalog candidates, ordered for deterministic
// tie-breaks: entries in the requested region (or with no region) first,
// then ascending id.
type matcher struct {
	byID       map[int64]models.CatalogEntry
	candidates []candidate
	threshold  float64
}

func newMatcher(byID map[int64]models.CatalogEntry, entries []models.CatalogEntry, opts Options, regions *Regions) *matcher {
	rank := func(e models.CatalogEntry) int {
		if opts.Region == "" || e.Region == "" || regions.Equivalent(e.Region, opts.Region) {
			return 0
		}
		return 1
	}
	sorted := lo.UniqBy(entries, func(e models.CatalogEntry) int64 { return e.ID })
	sort.SliceStable(sorted, func(a, b int) bool {
		ra, rb := rank(sorted[a]), rank(sorted[b])
		if ra != rb {
			return ra < rb
		}
		return sorted[a].ID < sorted[b].ID
	})

	m := &matcher{byID: byID, threshold: opts.FuzzyThreshold}
	for _, e := range sorted {
		c := candidate{entry: e}
		for _, n := range e.Names() {
			c.norm = append(c.norm, Normalize(n))
			c.compact = append(c.compact, Compact(n))
		}
		m.candidates = append(m.candidates, c)
	}
	return m
}

// classify returns the first tier that accepts d and, when nothing does,
// the best fuzzy score seen.
func (m *matcher) classify(d models.DraftItem) (models.MatchResult, float64) {
	res := models.MatchResult{Draft: d, Tier: models.TierUnmatched}

	if d.CatalogID != nil {
		if e, ok := m.byID[*d.CatalogID]; ok {
			res.Tier = models.TierDirectID
			res.Entry = &e
			return res, 0
		}
	}

	keys := keysOf(d)
	if len(keys) == 0 {
		return res, 0
	}

	for _, c := range m.candidates {
		if c.exact(keys) {
			e := c.entry
			res.Tier, res.Entry = models.TierExact, &e
			return res, 0
		}
	}

	best, bestRatio := -1, 0.0
	for i, c := range m.candidates {
		if r := c.containment(keys); r > bestRatio {
			best, bestRatio = i, r
		}
	}
	if best >= 0 {
		e := m.candidates[best].entry
		res.Tier, res.Entry = models.TierPartial, &e
		return res, 0
	}

	best, bestScore := -1, 0.0
	for i, c := range m.candidates {
		if s := c.similarity(keys); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best >= 0 && bestScore >= m.threshold {
		e := m.candidates[best].entry
		score := bestScore
		res.Tier, res.Entry, res.Score = models.TierFuzzy, &e, &score
		return res, bestScore
	}
	return res, bestScore
}

func keysOf(d models.DraftItem) []draftKey {
	var keys []draftKey
	for _, n := range []string{d.Name, d.Alias} {
		k := draftKey{norm: Normalize(n), compact: Compact(n)}
		if k.norm != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func (c candidate) exact(keys []draftKey) bool {
	for _, k := range keys {
		if lo.Contains(c.norm, k.norm) {
			return true
		}
	}
	return false
}

// containment scores substring containment in either direction as the
// length ratio of the shorter to the longer compact name.
func (c candidate) containment(keys []draftKey) float64 {
	best := 0.0
	for _, k := range keys {
		for _, name := range c.compact {
			if name == "" || k.compact == "" {
				continue
			}
			short, long := k.compact, name
			if len(short) > len(long) {
				short, long = long, short
			}
			ls := len([]rune(short))
			if ls < minPartialRunes || !strings.Contains(long, short) {
				continue
			}
			if r := float64(ls) / float64(len([]rune(long))); r > best {
				best = r
			}
		}
	}
	return best
}

func (c candidate) similarity(keys []draftKey) float64 {
	best := 0.0
	for _, k := range keys {
		for _, name := range c.compact {
			if s := ratio(k.compact, name); s > best {
				best = s
			}
		}
	}
	return best
}
