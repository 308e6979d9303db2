// Package patterns builds the regular expressions used to match query terms
// and completion prefixes, and memoizes compiled expressions in an LRU.
package patterns

import (
	"fmt"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache memoizes compiled expressions. It is safe for concurrent use.
type Cache struct {
	compiled *lru.Cache[string, *regexp.Regexp]
}

func NewCache(size int) (*Cache, error) {
	c, err := lru.New[string, *regexp.Regexp](size)
	if err != nil {
		return nil, fmt.Errorf("creating pattern cache: %w", err)
	}
	return &Cache{compiled: c}, nil
}

// Compile returns the compiled form of expr, compiling it on first use.
func (c *Cache) Compile(expr string) (*regexp.Regexp, error) {
	if re, ok := c.compiled.Get(expr); ok {
		return re, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	c.compiled.Add(expr, re)
	return re, nil
}

// Len returns the number of cached expressions.
func (c *Cache) Len() int {
	return c.compiled.Len()
}

// Terms matches any of terms as a whole word. Empty terms cannot form a word
// and are skipped; ok is false when nothing is left to match.
func Terms(terms []string) (expr string, ok bool) {
	alts := make([]string, 0, len(terms))
	for _, term := range terms {
		if term == "" {
			continue
		}
		alts = append(alts, `\b`+regexp.QuoteMeta(term)+`\b`)
	}
	if len(alts) == 0 {
		return "", false
	}
	return strings.Join(alts, "|"), true
}

// Completion matches whole words starting with prefix, case-sensitively.
func Completion(prefix string) string {
	return `\b` + regexp.QuoteMeta(prefix) + `\w*\b`
}
