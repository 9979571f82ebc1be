package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// StratifiedSplitter partitions a LabeledDataset into train and test subsets
// preserving class proportions. Per class the indices are shuffled under the
// seed and cut at round(count * TestFraction); the cut is clamped so every
// class keeps at least one item on each side, which bounds the realized test
// fraction deviation at one item per class.
type StratifiedSplitter struct {
	TestFraction float64
	Seed         int64
}

// NewStratifiedSplitter creates a splitter with the given test fraction
func NewStratifiedSplitter(testFraction float64, seed int64) *StratifiedSplitter {
	return &StratifiedSplitter{TestFraction: testFraction, Seed: seed}
}

// Split returns disjoint train and test subsets whose union is exactly the
// input. Classes with fewer than 2 members cannot be stratified and fail
// with InsufficientClassSizeError.
func (s *StratifiedSplitter) Split(ds *LabeledDataset) (train, test *LabeledDataset, err error) {
	if s.TestFraction <= 0 || s.TestFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction must be in (0, 1), got %v", s.TestFraction)
	}
	if err := ds.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid dataset: %w", err)
	}

	// Group indices per label in input order.
	byLabel := make(map[int][]int)
	for i, label := range ds.Labels {
		byLabel[label] = append(byLabel[label], i)
	}

	// Check preconditions for every class before touching anything, so a
	// failing split produces no partial output.
	labels := make([]int, 0, len(byLabel))
	for label := range byLabel {
		labels = append(labels, label)
	}
	sort.Ints(labels)
	for _, label := range labels {
		if len(byLabel[label]) < 2 {
			return nil, nil, &InsufficientClassSizeError{Label: label, Size: len(byLabel[label])}
		}
	}

	rng := rand.New(rand.NewSource(s.Seed))

	var trainIndices, testIndices []int
	for _, label := range labels {
		indices := append([]int(nil), byLabel[label]...)
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		cut := int(math.Round(float64(len(indices)) * s.TestFraction))
		if cut < 1 {
			cut = 1
		}
		if cut > len(indices)-1 {
			cut = len(indices) - 1
		}

		testIndices = append(testIndices, indices[:cut]...)
		trainIndices = append(trainIndices, indices[cut:]...)
	}

	return subset(ds, trainIndices), subset(ds, testIndices), nil
}

func subset(ds *LabeledDataset, indices []int) *LabeledDataset {
	out := &LabeledDataset{
		Texts:      make([]string, len(indices)),
		Labels:     make([]int, len(indices)),
		NumClasses: ds.NumClasses,
	}
	for i, idx := range indices {
		out.Texts[i] = ds.Texts[idx]
		out.Labels[i] = ds.Labels[idx]
	}
	return out
}
