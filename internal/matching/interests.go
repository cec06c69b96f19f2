// internal/matching/interests.go
package matching

import (
	"strings"

	"tour-estimate-workers/internal/models"
)

// MatchedInterests returns, in request order, the interests covered by at
// least one entry's tags, type or names.
func MatchedInterests(interests []string, entries []models.CatalogEntry) []string {
	var matched []string
	for _, interest := range interests {
		want := Compact(interest)
		if want == "" {
			continue
		}
		for _, e := range entries {
			if covers(e, want) {
				matched = append(matched, interest)
				break
			}
		}
	}
	return matched
}

func covers(e models.CatalogEntry, want string) bool {
	fields := append([]string{e.ItemType}, e.Tags...)
	fields = append(fields, e.Names()...)
	for _, f := range fields {
		c := Compact(f)
		if c != "" && (strings.Contains(c, want) || strings.Contains(want, c)) {
			return true
		}
	}
	return false
}
