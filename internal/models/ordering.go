// internal/models/ordering.go
package models

import "sort"

// Reindex sorts items by (day, orderIndex) and rewrites orderIndex as a
// contiguous zero-based sequence per day. Relative order is preserved.
func Reindex(items []EstimateItem) []EstimateItem {
	out := make([]EstimateItem, len(items))
	copy(out, items)

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Day != out[b].Day {
			return out[a].Day < out[b].Day
		}
		return out[a].OrderIndex < out[b].OrderIndex
	})

	next := make(map[int]int)
	for i := range out {
		out[i].OrderIndex = next[out[i].Day]
		next[out[i].Day]++
	}
	return out
}

// DayLoads counts items per day for days 1..days, including empty days.
func DayLoads(items []EstimateItem, days int) map[int]int {
	loads := make(map[int]int, days)
	for d := 1; d <= days; d++ {
		loads[d] = 0
	}
	for _, it := range items {
		loads[it.Day]++
	}
	return loads
}

// LeastLoadedDay returns the day in 1..days with the fewest items, lowest day on ties.
func LeastLoadedDay(items []EstimateItem, days int) int {
	loads := DayLoads(items, days)
	best := 1
	for d := 2; d <= days; d++ {
		if loads[d] < loads[best] {
			best = d
		}
	}
	return best
}
