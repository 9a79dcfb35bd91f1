package model

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// StratifiedSplit partitions row indices into train and test sets, keeping the
// class proportions of labels in both. The same seed yields the same split.
// Both returned slices are sorted.
func StratifiedSplit(labels []int, testSize float64, seed int64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be in (0, 1), got %v", testSize)
	}
	if len(labels) < 2 {
		return nil, nil, fmt.Errorf("need at least 2 rows to split, got %d", len(labels))
	}

	byClass := map[int][]int{}
	for i, label := range labels {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	rng := rand.New(rand.NewSource(seed))
	largest := classes[0]
	for _, c := range classes {
		idx := byClass[c]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		if len(idx) > len(byClass[largest]) {
			largest = c
		}
	}

	for _, c := range classes {
		idx := byClass[c]
		nTest := int(math.Round(testSize * float64(len(idx))))
		test = append(test, idx[:nTest]...)
		train = append(train, idx[nTest:]...)
	}

	// tiny classes can round to an empty test set
	if len(test) == 0 {
		idx := byClass[largest]
		pick := idx[len(idx)-1]
		test = append(test, pick)
		for i, r := range train {
			if r == pick {
				train = append(train[:i], train[i+1:]...)
				break
			}
		}
	}
	if len(train) == 0 {
		return nil, nil, fmt.Errorf("test size %v leaves no training rows out of %d", testSize, len(labels))
	}

	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}

// Select returns the labels at the given row indices.
func Select(labels []int, rows []int) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = labels[r]
	}
	return out
}
