package ranker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortScoreThenName(t *testing.T) {
	results := []Result{
		{Name: "b", Score: 3},
		{Name: "a", Score: 3},
		{Name: "c", Score: 1},
	}
	Sort(results)
	assert.Equal(t, []Result{
		{Name: "a", Score: 3},
		{Name: "b", Score: 3},
		{Name: "c", Score: 1},
	}, results)
}

func TestCompare(t *testing.T) {
	assert.Negative(t, Compare(Result{Name: "z", Score: 5}, Result{Name: "a", Score: 2}))
	assert.Positive(t, Compare(Result{Name: "a", Score: 1}, Result{Name: "b", Score: 2}))
	assert.Negative(t, Compare(Result{Name: "apple", Score: 1}, Result{Name: "banana", Score: 1}))
	assert.Zero(t, Compare(Result{Name: "same", Score: 1}, Result{Name: "same", Score: 1}))
}

func TestCompareUsesCollation(t *testing.T) {
	// byte order would put "Banana" before "apple"
	assert.Negative(t, Compare(Result{Name: "apple", Score: 1}, Result{Name: "Banana", Score: 1}))
	assert.Negative(t, Compare(Result{Name: "cote", Score: 1}, Result{Name: "côte", Score: 1}))
}
