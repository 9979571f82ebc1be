package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int {
	return &v
}

func TestMajorityAggregator_Aggregate(t *testing.T) {
	items := []Item{
		{ID: "t1", Text: "first", Sexist: true},
		{ID: "t2", Text: "second", Sexist: false},
	}

	t.Run("clear majority wins", func(t *testing.T) {
		annotations := []Annotation{
			{ItemID: "t1", Content: intPtr(2), Phrasing: intPtr(1)},
			{ItemID: "t1", Content: intPtr(2), Phrasing: intPtr(1)},
			{ItemID: "t1", Content: intPtr(6), Phrasing: intPtr(1)},
		}

		aggregated, err := NewMajorityAggregator().Aggregate(annotations, items)
		require.NoError(t, err)
		require.Len(t, aggregated, 1)
		assert.Equal(t, 2, aggregated[0].ContentLabel)
		assert.Equal(t, 1, aggregated[0].PhrasingLabel)
		assert.Equal(t, "first", aggregated[0].Text)
		assert.True(t, aggregated[0].Sexist)
	})

	t.Run("tie breaks to first encountered value", func(t *testing.T) {
		annotations := []Annotation{
			{ItemID: "t1", Content: intPtr(6), Phrasing: intPtr(1)},
			{ItemID: "t1", Content: intPtr(2), Phrasing: intPtr(1)},
			{ItemID: "t1", Content: intPtr(6), Phrasing: intPtr(1)},
			{ItemID: "t1", Content: intPtr(2), Phrasing: intPtr(1)},
		}

		aggregated, err := NewMajorityAggregator().Aggregate(annotations, items)
		require.NoError(t, err)
		require.Len(t, aggregated, 1)
		assert.Equal(t, 6, aggregated[0].ContentLabel)
	})

	t.Run("missing values are excluded from the vote", func(t *testing.T) {
		annotations := []Annotation{
			{ItemID: "t1", Content: nil, Phrasing: intPtr(1)},
			{ItemID: "t1", Content: intPtr(2), Phrasing: intPtr(1)},
			{ItemID: "t1", Content: nil, Phrasing: intPtr(1)},
		}

		aggregated, err := NewMajorityAggregator().Aggregate(annotations, items)
		require.NoError(t, err)
		require.Len(t, aggregated, 1)
		assert.Equal(t, 2, aggregated[0].ContentLabel)
	})

	t.Run("all missing fails with AmbiguousLabelError", func(t *testing.T) {
		annotations := []Annotation{
			{ItemID: "t1", Content: nil, Phrasing: intPtr(1)},
			{ItemID: "t1", Content: nil, Phrasing: intPtr(1)},
		}

		_, err := NewMajorityAggregator().Aggregate(annotations, items)
		var ambiguousErr *AmbiguousLabelError
		require.ErrorAs(t, err, &ambiguousErr)
		assert.Equal(t, "t1", ambiguousErr.ItemID)
		assert.Equal(t, "content", ambiguousErr.Category)
	})

	t.Run("identifiers without a matching item are dropped", func(t *testing.T) {
		annotations := []Annotation{
			{ItemID: "t1", Content: intPtr(2), Phrasing: intPtr(1)},
			{ItemID: "ghost", Content: intPtr(2), Phrasing: intPtr(1)},
		}

		aggregated, err := NewMajorityAggregator().Aggregate(annotations, items)
		require.NoError(t, err)
		require.Len(t, aggregated, 1)
		assert.Equal(t, "t1", aggregated[0].ItemID)
	})

	t.Run("one aggregated item per distinct identifier in first-seen order", func(t *testing.T) {
		annotations := []Annotation{
			{ItemID: "t2", Content: intPtr(1), Phrasing: intPtr(1)},
			{ItemID: "t1", Content: intPtr(2), Phrasing: intPtr(2)},
			{ItemID: "t2", Content: intPtr(1), Phrasing: intPtr(1)},
		}

		aggregated, err := NewMajorityAggregator().Aggregate(annotations, items)
		require.NoError(t, err)
		require.Len(t, aggregated, 2)
		assert.Equal(t, "t2", aggregated[0].ItemID)
		assert.Equal(t, "t1", aggregated[1].ItemID)
	})

	t.Run("empty annotation set fails", func(t *testing.T) {
		_, err := NewMajorityAggregator().Aggregate(nil, items)
		assert.Error(t, err)
	})
}

func TestMajorityVoteOrderIndependenceOfClearWinners(t *testing.T) {
	// A non-tied winner must not depend on input order.
	forward := []int{1, 1, 2}
	backward := []int{2, 1, 1}

	winnerForward, ok := majorityVote(forward)
	require.True(t, ok)
	winnerBackward, ok := majorityVote(backward)
	require.True(t, ok)

	assert.Equal(t, 1, winnerForward)
	assert.Equal(t, 1, winnerBackward)
}
