// internal/matching/normalize.go
package matching

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Normalize applies NFKC, Unicode case folding and whitespace collapsing.
func Normalize(s string) string {
	s = folder.String(norm.NFKC.String(s))
	return strings.Join(strings.Fields(s), " ")
}

// Compact is Normalize with spaces and punctuation removed, so that
// "Gyeongbok-gung" and "gyeongbokgung" compare equal.
func Compact(s string) string {
	var b strings.Builder
	for _, r := range Normalize(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Similarity is the normalized Levenshtein ratio of the compact forms, in [0, 1].
func Similarity(a, b string) float64 {
	return ratio(Compact(a), Compact(b))
}

func ratio(ca, cb string) float64 {
	if ca == "" || cb == "" {
		return 0
	}
	if ca == cb {
		return 1
	}
	la, lb := len([]rune(ca)), len([]rune(cb))
	longest := la
	if lb > longest {
		longest = lb
	}
	return 1 - float64(levenshtein.ComputeDistance(ca, cb))/float64(longest)
}
