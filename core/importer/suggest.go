package importer

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const minSuggestRatio = .6

// enumSuggestion returns a "did you mean" hint when a rejected value closely
// resembles one of the allowed values (typos like "ACITVE").
func enumSuggestion(val string, allowed []string) string {
	var (
		best      string
		bestRatio float64
	)
	lval := strings.Split(strings.ToLower(val), "")
	for _, a := range allowed {
		ratio := difflib.NewMatcher(lval, strings.Split(strings.ToLower(a), "")).QuickRatio()
		if ratio > bestRatio {
			best, bestRatio = a, ratio
		}
	}
	if bestRatio >= minSuggestRatio {
		return fmt.Sprintf("; did you mean %q?", best)
	}
	return ""
}
