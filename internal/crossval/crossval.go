// Package crossval splits labelled examples into stratified folds and scores
// binary predictions.
package crossval

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/RoaringBitmap/roaring"
)

// ErrFolds is returned for a fold count the data cannot support.
var ErrFolds = errors.New("crossval: invalid fold count")

// Fold is one train/validation split. Both index lists are sorted.
type Fold struct {
	Train []int
	Valid []int
}

// StratifiedKFold partitions the indices of labels into k folds. Each class is
// shuffled with a generator seeded by seed and dealt round-robin over the
// folds, continuing where the previous class stopped, so every fold keeps the
// global class ratio and fold sizes differ by at most one.
func StratifiedKFold(labels []int, k int, seed uint64) ([]Fold, error) {
	n := len(labels)
	if k < 2 || k > n {
		return nil, fmt.Errorf("%w: %d folds for %d examples", ErrFolds, k, n)
	}

	byClass := make(map[int][]int)
	for i, y := range labels {
		byClass[y] = append(byClass[y], i)
	}
	classes := make([]int, 0, len(byClass))
	for y := range byClass {
		classes = append(classes, y)
	}
	slices.Sort(classes)

	rng := rand.New(rand.NewPCG(seed, seed+1))
	valid := make([]*roaring.Bitmap, k)
	for i := range valid {
		valid[i] = roaring.New()
	}
	next := 0
	for _, y := range classes {
		members := byClass[y]
		rng.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
		for _, idx := range members {
			valid[next].Add(uint32(idx))
			next = (next + 1) % k
		}
	}

	folds := make([]Fold, k)
	for i, v := range valid {
		train := roaring.Flip(v, 0, uint64(n))
		folds[i] = Fold{Train: toInts(train), Valid: toInts(v)}
	}
	return folds, nil
}

func toInts(b *roaring.Bitmap) []int {
	out := make([]int, 0, b.GetCardinality())
	it := b.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}

func bitmapOf(idx []int) *roaring.Bitmap {
	b := roaring.New()
	for _, i := range idx {
		b.Add(uint32(i))
	}
	return b
}

// CheckPartition verifies that every index in [0, n) is validated in exactly
// one fold and that each fold trains on exactly the remaining indices.
func CheckPartition(folds []Fold, n int) error {
	seen := roaring.New()
	total := 0
	for i, f := range folds {
		valid := bitmapOf(f.Valid)
		train := bitmapOf(f.Train)
		if int(valid.GetCardinality()) != len(f.Valid) || int(train.GetCardinality()) != len(f.Train) {
			return fmt.Errorf("crossval: fold %d repeats an index", i)
		}
		if valid.Intersects(train) {
			return fmt.Errorf("crossval: fold %d trains on validation examples", i)
		}
		if int(roaring.Or(valid, train).GetCardinality()) != n {
			return fmt.Errorf("crossval: fold %d does not cover %d examples", i, n)
		}
		if seen.Intersects(valid) {
			return fmt.Errorf("crossval: fold %d validates an index twice", i)
		}
		seen.Or(valid)
		total += len(f.Valid)
	}
	if total != n || int(seen.GetCardinality()) != n {
		return fmt.Errorf("crossval: validation folds cover %d of %d examples", seen.GetCardinality(), n)
	}
	if n > 0 && seen.Maximum() != uint32(n-1) {
		return fmt.Errorf("crossval: index %d out of range", seen.Maximum())
	}
	return nil
}

// MacroF1 averages the per-class F1 over every label present in truth or pred.
func MacroF1(truth, pred []int) float64 {
	type counts struct{ tp, fp, fn int }
	per := make(map[int]*counts)
	get := func(y int) *counts {
		c, ok := per[y]
		if !ok {
			c = &counts{}
			per[y] = c
		}
		return c
	}
	for i, y := range truth {
		p := pred[i]
		if y == p {
			get(y).tp++
			continue
		}
		get(p).fp++
		get(y).fn++
	}
	if len(per) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range per {
		sum += 2 * float64(c.tp) / float64(2*c.tp+c.fp+c.fn)
	}
	return sum / float64(len(per))
}
