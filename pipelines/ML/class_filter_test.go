package ml

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeAggregated(countsByCode map[int]int) []AggregatedItem {
	var items []AggregatedItem
	for code, count := range countsByCode {
		for i := 0; i < count; i++ {
			items = append(items, AggregatedItem{
				ItemID:       fmt.Sprintf("%d-%d", code, i),
				Text:         fmt.Sprintf("text %d %d", code, i),
				ContentLabel: code,
			})
		}
	}
	return items
}

func TestClassFilter_Apply(t *testing.T) {
	t.Run("retains classes meeting the threshold with ascending remap", func(t *testing.T) {
		items := makeAggregated(map[int]int{1: 50, 2: 400, 6: 310, 9: 10})

		filtered, mapping, err := NewClassFilter(CategoryContent, 300).Apply(items)
		require.NoError(t, err)

		assert.Equal(t, []int{2, 6}, mapping.Classes)
		dense2, _ := mapping.Dense(2)
		dense6, _ := mapping.Dense(6)
		assert.Equal(t, 0, dense2)
		assert.Equal(t, 1, dense6)

		assert.Len(t, filtered, 710)
		for _, item := range filtered {
			switch item.ContentLabel {
			case 2:
				assert.Equal(t, 0, item.DenseLabel)
			case 6:
				assert.Equal(t, 1, item.DenseLabel)
			default:
				t.Fatalf("class %d should have been filtered out", item.ContentLabel)
			}
		}
	})

	t.Run("no surviving class fails with EmptyClassSetError", func(t *testing.T) {
		items := makeAggregated(map[int]int{1: 5, 2: 8})

		_, _, err := NewClassFilter(CategoryContent, 100).Apply(items)
		var emptyErr *EmptyClassSetError
		require.ErrorAs(t, err, &emptyErr)
		assert.Equal(t, CategoryContent, emptyErr.Category)
		assert.Equal(t, 100, emptyErr.MinSupport)
	})

	t.Run("preserves input order among survivors", func(t *testing.T) {
		items := []AggregatedItem{
			{ItemID: "a", ContentLabel: 6},
			{ItemID: "b", ContentLabel: 9},
			{ItemID: "c", ContentLabel: 2},
			{ItemID: "d", ContentLabel: 6},
		}

		filtered, _, err := NewClassFilter(CategoryContent, 1).Apply(items)
		require.NoError(t, err)
		require.Len(t, filtered, 4)
		assert.Equal(t, "a", filtered[0].ItemID)
		assert.Equal(t, "b", filtered[1].ItemID)
		assert.Equal(t, "c", filtered[2].ItemID)
		assert.Equal(t, "d", filtered[3].ItemID)
	})

	t.Run("filters on phrasing when configured", func(t *testing.T) {
		items := []AggregatedItem{
			{ItemID: "a", ContentLabel: 1, PhrasingLabel: 3},
			{ItemID: "b", ContentLabel: 1, PhrasingLabel: 3},
			{ItemID: "c", ContentLabel: 1, PhrasingLabel: 5},
		}

		filtered, mapping, err := NewClassFilter(CategoryPhrasing, 2).Apply(items)
		require.NoError(t, err)
		assert.Len(t, filtered, 2)
		assert.Equal(t, []int{3}, mapping.Classes)
	})

	t.Run("unknown category is rejected", func(t *testing.T) {
		_, _, err := NewClassFilter("mystery", 1).Apply(nil)
		assert.Error(t, err)
	})

	t.Run("defaults to the content column", func(t *testing.T) {
		filter := NewClassFilter("", 1)
		assert.Equal(t, CategoryContent, filter.Category)
	})
}
