package noise

import (
	"testing"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/normalizer"
	"github.com/stretchr/testify/assert"
)

func TestPrepare(t *testing.T) {
	assert.Equal(t, "the a an", Prepare("The\nA\nAN"))
	assert.Equal(t, "of  to", Prepare("of\r\n\nto"))
	assert.Equal(t, "", Prepare(""))
}

func TestContainsWholeWordsOnly(t *testing.T) {
	s := Parse(Prepare("the\nand of"))
	assert.True(t, s.Contains("the"))
	assert.True(t, s.Contains("of"))
	assert.False(t, s.Contains("th"))
	assert.False(t, s.Contains("them"))
	assert.False(t, s.Contains("the and"))
	assert.False(t, s.Contains("The"))
	assert.Equal(t, 3, s.Len())
}

func TestWords(t *testing.T) {
	s := Parse(Prepare("the"))

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"drops noise", "the cat sat", []string{"cat", "sat"}},
		{"keeps duplicates", "cat the cat", []string{"cat", "cat"}},
		{"normalizes", "Cat's SAT!", []string{"cat", "sat"}},
		{"all noise", "the the", []string{}},
		{"empty", "", []string{}},
		{"extra whitespace", "  cat\t\nsat  ", []string{"cat", "sat"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Words(tt.text, normalizer.Normalize))
		})
	}
}

func TestNilSet(t *testing.T) {
	var s *Set
	assert.False(t, s.Contains("the"))
	assert.Equal(t, 0, s.Len())
}
