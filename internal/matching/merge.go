// internal/matching/merge.go
package matching

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"tour-estimate-workers/internal/models"
)

const mustSeeNote = "Requested by traveler"

type MergeResult struct {
	Items      []models.EstimateItem
	Added      int
	Unresolved []models.UnresolvedItem
	Entries    map[int64]models.CatalogEntry
}

// MergeMustSee looks up traveler-picked places within opts.Region and appends
// each to the least-loaded day. Places already in items are skipped.
func (e *Engine) MergeMustSee(ctx context.Context, items []models.EstimateItem, names []string, days int, opts Options) (*MergeResult, error) {
	res := &MergeResult{
		Items:   models.Reindex(items),
		Entries: make(map[int64]models.CatalogEntry),
	}
	names = lo.Uniq(lo.FilterMap(names, func(n string, _ int) (string, bool) {
		n = strings.TrimSpace(n)
		return n, n != ""
	}))
	if len(names) == 0 {
		return res, nil
	}
	if days < 1 {
		days = 1
	}

	candidates, err := e.catalog.FindByNames(ctx, names, e.regions.Labels(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("find must-see: %w", err)
	}
	m := newMatcher(nil, candidates, opts, e.regions)

	present := make(map[int64]struct{}, len(res.Items))
	for _, it := range res.Items {
		if id, ok := it.CatalogID(); ok {
			present[id] = struct{}{}
		}
	}

	for _, name := range names {
		match, _ := m.classify(models.DraftItem{Name: name})
		if match.Entry == nil || !inRegion(*match.Entry, opts.Region, e.regions) {
			res.Unresolved = append(res.Unresolved, models.UnresolvedItem{Name: name, Reason: models.ReasonMustSeeNotFound})
			continue
		}
		if _, dup := present[match.Entry.ID]; dup {
			continue
		}

		day := models.LeastLoadedDay(res.Items, days)
		item := models.NewResolvedItem(day, *match.Entry, mustSeeNote)
		item.OrderIndex = models.DayLoads(res.Items, days)[day]
		res.Items = append(res.Items, item)
		res.Entries[match.Entry.ID] = *match.Entry
		present[match.Entry.ID] = struct{}{}
		res.Added++
	}

	res.Items = models.Reindex(res.Items)
	e.logger.Debug("Must-see places merged", map[string]interface{}{
		"requested": len(names),
		"added":     res.Added,
		"missing":   len(res.Unresolved),
	})
	return res, nil
}

func inRegion(entry models.CatalogEntry, region string, regions *Regions) bool {
	return region == "" || entry.Region == "" || regions.Equivalent(entry.Region, region)
}
