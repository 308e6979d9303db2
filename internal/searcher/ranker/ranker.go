// Package ranker defines search results and the order they are returned in:
// highest score first, then document name in English collation order.
package ranker

import (
	"slices"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Result is one matching document.
type Result struct {
	Name    string `json:"name"`
	Score   int    `json:"score"`
	Snippet string `json:"snippet"`
}

var (
	collatorMu sync.Mutex
	collator   = collate.New(language.English)
)

// Compare returns a negative number when a ranks before b, positive when
// after, and zero when they tie on both keys.
func Compare(a, b Result) int {
	if a.Score != b.Score {
		if a.Score > b.Score {
			return -1
		}
		return 1
	}
	return compareNames(a.Name, b.Name)
}

// Sort orders results in place by Compare.
func Sort(results []Result) {
	slices.SortStableFunc(results, Compare)
}

func compareNames(a, b string) int {
	collatorMu.Lock()
	defer collatorMu.Unlock()
	return collator.CompareString(a, b)
}
