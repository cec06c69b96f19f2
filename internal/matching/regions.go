// internal/matching/regions.go
package matching

import "github.com/samber/lo"

// Regions resolves region codes and their localized labels to one canonical
// code. A nil *Regions compares normalized values only.
type Regions struct {
	canonical map[string]string
	labels    map[string][]string
}

func NewRegions(aliases map[string][]string) *Regions {
	r := &Regions{
		canonical: make(map[string]string),
		labels:    make(map[string][]string),
	}
	for code, labels := range aliases {
		c := Normalize(code)
		r.canonical[c] = c
		all := []string{code}
		for _, l := range labels {
			r.canonical[Normalize(l)] = c
			all = append(all, l)
		}
		r.labels[c] = lo.Uniq(all)
	}
	return r
}

// Canonical returns the canonical code for a code or label. Unknown values
// are returned normalized.
func (r *Regions) Canonical(region string) string {
	n := Normalize(region)
	if r == nil {
		return n
	}
	if c, ok := r.canonical[n]; ok {
		return c
	}
	return n
}

// Equivalent reports whether two region values denote the same region.
func (r *Regions) Equivalent(a, b string) bool {
	return r.Canonical(a) == r.Canonical(b)
}

// Labels returns the code and all localized labels for region.
func (r *Regions) Labels(region string) []string {
	if region == "" {
		return nil
	}
	if r != nil {
		if l, ok := r.labels[r.Canonical(region)]; ok {
			return l
		}
	}
	return []string{region}
}
