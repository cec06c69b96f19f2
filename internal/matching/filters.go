// internal/matching/filters.go
package matching

import "tour-estimate-workers/internal/models"

// FilterRegion drops resolved items whose catalog region is not equivalent to
// region. Placeholders, items without region metadata and an empty region pass.
func FilterRegion(items []models.EstimateItem, region string, regions *Regions) (kept, dropped []models.EstimateItem) {
	if region == "" {
		return items, nil
	}
	kept = make([]models.EstimateItem, 0, len(items))
	for _, it := range items {
		snap := it.Snapshot()
		if snap == nil || snap.Region == "" || regions.Equivalent(snap.Region, region) {
			kept = append(kept, it)
			continue
		}
		dropped = append(dropped, it)
	}
	return kept, dropped
}

// FilterDuplicates keeps the first occurrence of each catalog id across the
// whole itinerary. Placeholders are never duplicates.
func FilterDuplicates(items []models.EstimateItem) (kept, dropped []models.EstimateItem) {
	seen := make(map[int64]struct{}, len(items))
	kept = make([]models.EstimateItem, 0, len(items))
	for _, it := range items {
		id, ok := it.CatalogID()
		if !ok {
			kept = append(kept, it)
			continue
		}
		if _, dup := seen[id]; dup {
			dropped = append(dropped, it)
			continue
		}
		seen[id] = struct{}{}
		kept = append(kept, it)
	}
	return kept, dropped
}

// FilterIneligible drops placeholders named after catalog entries that are
// excluded from auto-suggestion. Resolved items pass.
func FilterIneligible(items []models.EstimateItem, ineligible map[string]struct{}) (kept, dropped []models.EstimateItem) {
	if len(ineligible) == 0 {
		return items, nil
	}
	kept = make([]models.EstimateItem, 0, len(items))
	for _, it := range items {
		if _, bad := ineligible[it.Name]; bad && it.IsPlaceholder() {
			dropped = append(dropped, it)
			continue
		}
		kept = append(kept, it)
	}
	return kept, dropped
}
