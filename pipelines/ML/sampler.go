package ml

import (
	"fmt"
	"math/rand"
)

// BalancedSampler draws a class-balanced subsample of the Item table for
// fast experimentation. One seeded source drives both the per-class draws
// and the final permutation, so a seed fixes the output byte-for-byte given
// the same input ordering.
type BalancedSampler struct {
	PerClass int
	Seed     int64
}

// NewBalancedSampler creates a sampler with the given per-class size
func NewBalancedSampler(perClass int, seed int64) *BalancedSampler {
	if perClass <= 0 {
		perClass = 100
	}
	return &BalancedSampler{PerClass: perClass, Seed: seed}
}

// Sample partitions items by the sexist flag, draws exactly PerClass items
// uniformly without replacement from each partition, concatenates them and
// applies one full uniform shuffle. Partitions are processed in ascending
// class order (False, then True).
func (s *BalancedSampler) Sample(items []Item) ([]Item, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no items to sample")
	}

	var negatives, positives []Item
	for _, item := range items {
		if item.Sexist {
			positives = append(positives, item)
		} else {
			negatives = append(negatives, item)
		}
	}

	if len(negatives) < s.PerClass {
		return nil, &InsufficientDataError{Class: "False", Requested: s.PerClass, Available: len(negatives)}
	}
	if len(positives) < s.PerClass {
		return nil, &InsufficientDataError{Class: "True", Requested: s.PerClass, Available: len(positives)}
	}

	rng := rand.New(rand.NewSource(s.Seed))

	sample := make([]Item, 0, 2*s.PerClass)
	sample = append(sample, drawWithoutReplacement(rng, negatives, s.PerClass)...)
	sample = append(sample, drawWithoutReplacement(rng, positives, s.PerClass)...)

	rng.Shuffle(len(sample), func(i, j int) {
		sample[i], sample[j] = sample[j], sample[i]
	})

	return sample, nil
}

// drawWithoutReplacement picks n items uniformly from the partition without
// replacement, preserving nothing of the source order beyond the draw itself
func drawWithoutReplacement(rng *rand.Rand, partition []Item, n int) []Item {
	perm := rng.Perm(len(partition))
	drawn := make([]Item, n)
	for i := 0; i < n; i++ {
		drawn[i] = partition[perm[i]]
	}
	return drawn
}
