package ml

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeItems(perClass int) []Item {
	items := make([]Item, 0, 2*perClass)
	for i := 0; i < perClass; i++ {
		items = append(items, Item{ID: fmt.Sprintf("pos-%d", i), Text: fmt.Sprintf("positive %d", i), Sexist: true})
		items = append(items, Item{ID: fmt.Sprintf("neg-%d", i), Text: fmt.Sprintf("negative %d", i), Sexist: false})
	}
	return items
}

func TestBalancedSampler_Sample(t *testing.T) {
	t.Run("output is balanced and drawn from the input", func(t *testing.T) {
		items := makeItems(50)
		sampler := NewBalancedSampler(10, 42)

		sample, err := sampler.Sample(items)
		require.NoError(t, err)
		require.Len(t, sample, 20)

		byID := make(map[string]Item, len(items))
		for _, item := range items {
			byID[item.ID] = item
		}

		positives := 0
		seen := make(map[string]bool)
		for _, item := range sample {
			source, exists := byID[item.ID]
			require.True(t, exists, "sampled item %s not in input", item.ID)
			assert.Equal(t, source, item, "sampled item fields changed")
			assert.False(t, seen[item.ID], "item %s drawn twice", item.ID)
			seen[item.ID] = true
			if item.Sexist {
				positives++
			}
		}
		assert.Equal(t, 10, positives)
	})

	t.Run("same seed reproduces the draw exactly", func(t *testing.T) {
		items := makeItems(30)

		first, err := NewBalancedSampler(5, 7).Sample(items)
		require.NoError(t, err)
		second, err := NewBalancedSampler(5, 7).Sample(items)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("different seeds change the ordering", func(t *testing.T) {
		items := makeItems(30)

		first, err := NewBalancedSampler(20, 1).Sample(items)
		require.NoError(t, err)
		second, err := NewBalancedSampler(20, 2).Sample(items)
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})

	t.Run("short partition fails with InsufficientDataError", func(t *testing.T) {
		items := []Item{
			{ID: "a", Text: "x", Sexist: true},
			{ID: "b", Text: "y", Sexist: false},
			{ID: "c", Text: "z", Sexist: false},
		}

		_, err := NewBalancedSampler(2, 1).Sample(items)
		var insufficientErr *InsufficientDataError
		require.ErrorAs(t, err, &insufficientErr)
		assert.Equal(t, "True", insufficientErr.Class)
		assert.Equal(t, 2, insufficientErr.Requested)
		assert.Equal(t, 1, insufficientErr.Available)
	})

	t.Run("empty input fails", func(t *testing.T) {
		_, err := NewBalancedSampler(1, 1).Sample(nil)
		assert.Error(t, err)
	})

	t.Run("four item end to end scenario", func(t *testing.T) {
		items := []Item{
			{ID: "t1", Text: "one", Sexist: true},
			{ID: "t2", Text: "two", Sexist: false},
			{ID: "t3", Text: "three", Sexist: true},
			{ID: "t4", Text: "four", Sexist: false},
		}

		sample, err := NewBalancedSampler(2, 99).Sample(items)
		require.NoError(t, err)
		require.Len(t, sample, 4)

		positives := 0
		for _, item := range sample {
			if item.Sexist {
				positives++
			}
		}
		assert.Equal(t, 2, positives)

		// Reproducible permutation of all four items.
		again, err := NewBalancedSampler(2, 99).Sample(items)
		require.NoError(t, err)
		assert.Equal(t, sample, again)
	})
}
