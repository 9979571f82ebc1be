package ml

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeDataset(perClass, numClasses int) *LabeledDataset {
	ds := &LabeledDataset{NumClasses: numClasses}
	for class := 0; class < numClasses; class++ {
		for i := 0; i < perClass; i++ {
			ds.Texts = append(ds.Texts, fmt.Sprintf("class %d example %d", class, i))
			ds.Labels = append(ds.Labels, class)
		}
	}
	return ds
}

func TestStratifiedSplitter_Split(t *testing.T) {
	t.Run("100 per class across 3 classes at f=0.2", func(t *testing.T) {
		ds := makeDataset(100, 3)

		train, test, err := NewStratifiedSplitter(0.2, 42).Split(ds)
		require.NoError(t, err)

		assert.Equal(t, 240, train.Len())
		assert.Equal(t, 60, test.Len())

		trainCounts := train.ClassCounts()
		testCounts := test.ClassCounts()
		for class := 0; class < 3; class++ {
			assert.Equal(t, 80, trainCounts[class], "train count for class %d", class)
			assert.Equal(t, 20, testCounts[class], "test count for class %d", class)
		}
	})

	t.Run("union recovers the input exactly with no overlap", func(t *testing.T) {
		ds := makeDataset(25, 2)

		train, test, err := NewStratifiedSplitter(0.3, 7).Split(ds)
		require.NoError(t, err)
		assert.Equal(t, ds.Len(), train.Len()+test.Len())

		inputCounts := make(map[string]int)
		for _, text := range ds.Texts {
			inputCounts[text]++
		}
		outputCounts := make(map[string]int)
		for _, text := range train.Texts {
			outputCounts[text]++
		}
		for _, text := range test.Texts {
			outputCounts[text]++
		}
		assert.Equal(t, inputCounts, outputCounts)
	})

	t.Run("same seed reproduces the split", func(t *testing.T) {
		ds := makeDataset(40, 2)

		train1, test1, err := NewStratifiedSplitter(0.25, 11).Split(ds)
		require.NoError(t, err)
		train2, test2, err := NewStratifiedSplitter(0.25, 11).Split(ds)
		require.NoError(t, err)

		assert.Equal(t, train1, train2)
		assert.Equal(t, test1, test2)
	})

	t.Run("tiny class fails with InsufficientClassSizeError", func(t *testing.T) {
		ds := &LabeledDataset{
			Texts:      []string{"a", "b", "c"},
			Labels:     []int{0, 0, 1},
			NumClasses: 2,
		}

		_, _, err := NewStratifiedSplitter(0.2, 1).Split(ds)
		var sizeErr *InsufficientClassSizeError
		require.ErrorAs(t, err, &sizeErr)
		assert.Equal(t, 1, sizeErr.Label)
		assert.Equal(t, 1, sizeErr.Size)
	})

	t.Run("rounded-to-zero cut is clamped so test keeps one item", func(t *testing.T) {
		ds := makeDataset(2, 2)

		train, test, err := NewStratifiedSplitter(0.1, 3).Split(ds)
		require.NoError(t, err)
		assert.Equal(t, 2, test.Len())
		assert.Equal(t, 2, train.Len())
		for class := 0; class < 2; class++ {
			assert.Equal(t, 1, test.ClassCounts()[class])
			assert.Equal(t, 1, train.ClassCounts()[class])
		}
	})

	t.Run("fraction outside (0,1) is rejected", func(t *testing.T) {
		ds := makeDataset(10, 2)

		_, _, err := NewStratifiedSplitter(0, 1).Split(ds)
		assert.Error(t, err)
		_, _, err = NewStratifiedSplitter(1, 1).Split(ds)
		assert.Error(t, err)
	})
}
