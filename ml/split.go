package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

const (
	DefaultTestFraction = 0.2
	DefaultSeed         = 42
)

// Split is a partition of a Dataset into a training and an evaluation subset.
type Split struct {
	Train      *Dataset
	Test       *Dataset
	TrainIndex []int
	TestIndex  []int
}

// SplitDataset shuffles the rows with a source seeded by seed and reserves
// ceil(n*testFraction) of them for evaluation. The same seed and input always
// give the same partition.
func SplitDataset(ds *Dataset, testFraction float64, seed int64) (*Split, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	if testFraction <= 0 || testFraction >= 1 {
		return nil, fmt.Errorf("test fraction %v must be in (0, 1)", testFraction)
	}

	n := ds.Len()
	testSize := int(math.Ceil(float64(n) * testFraction))
	trainSize := n - testSize
	if trainSize <= 0 || testSize <= 0 {
		return nil, errors.New("dataset too small to split")
	}

	rnd := rand.New(rand.NewSource(seed))
	perm := rnd.Perm(n)

	testIdx := append([]int(nil), perm[:testSize]...)
	trainIdx := append([]int(nil), perm[testSize:]...)

	return &Split{
		Train:      ds.Subset(trainIdx),
		Test:       ds.Subset(testIdx),
		TrainIndex: trainIdx,
		TestIndex:  testIdx,
	}, nil
}

// Sorted returns copies of both index sets in ascending order.
func (s *Split) Sorted() (train, test []int) {
	train = append([]int(nil), s.TrainIndex...)
	test = append([]int(nil), s.TestIndex...)
	sort.Ints(train)
	sort.Ints(test)
	return train, test
}
