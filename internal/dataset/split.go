package dataset

import (
	"math"
	"math/rand"
	"sort"

	"github.com/pkg/errors"
)

// splitTolerance absorbs float error in fraction*n, e.g. 0.7*10 = 7.000000000000001.
const splitTolerance = 1e-9

// Split partitions t into stratified train and test tables.
//
// Each class contributes its share of floor(trainFraction*len(t)) train rows, rounded by
// largest remainder; the rest of the class goes to test. The result depends only on t,
// trainFraction and seed.
func Split(t Table, trainFraction float64, seed int64) (Table, Table, error) {
	if trainFraction <= 0 || trainFraction >= 1 || math.IsNaN(trainFraction) {
		return nil, nil, errors.Wrapf(ErrInvalidSplit, "train fraction %v must be in (0, 1)", trainFraction)
	}

	n := len(t)
	byLabel := make(map[int][]int)
	for i, s := range t {
		byLabel[s.Label] = append(byLabel[s.Label], i)
	}
	labels := make([]int, 0, len(byLabel))
	for label, idx := range byLabel {
		if len(idx) < 2 {
			return nil, nil, errors.Wrapf(ErrInvalidSplit, "label %d has only %d row", label, len(idx))
		}
		labels = append(labels, label)
	}
	sort.Ints(labels)

	nTrain := int(math.Floor(trainFraction*float64(n) + splitTolerance))
	nTest := n - nTrain
	if nTrain < len(labels) || nTest < len(labels) {
		return nil, nil, errors.Wrapf(ErrInvalidSplit,
			"%d train / %d test rows cannot hold %d classes", nTrain, nTest, len(labels))
	}

	counts := make([]int, len(labels))
	for i, label := range labels {
		counts[i] = len(byLabel[label])
	}
	trainCounts := allocate(counts, nTrain, n)

	rng := rand.New(rand.NewSource(seed))
	train := make(Table, 0, nTrain)
	test := make(Table, 0, nTest)
	for i, label := range labels {
		idx := byLabel[label]
		perm := rng.Perm(len(idx))
		for k, p := range perm {
			if k < trainCounts[i] {
				train = append(train, t[idx[p]])
			} else {
				test = append(test, t[idx[p]])
			}
		}
	}

	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })

	return train, test, nil
}

// allocate distributes draws rows across classes proportionally to counts, handing
// the leftover rows to the largest fractional remainders. Ties go to the lower index.
func allocate(counts []int, draws, total int) []int {
	out := make([]int, len(counts))
	rem := make([]float64, len(counts))
	assigned := 0
	for i, c := range counts {
		exact := float64(c) * float64(draws) / float64(total)
		out[i] = int(math.Floor(exact + splitTolerance))
		rem[i] = exact - float64(out[i])
		assigned += out[i]
	}

	order := make([]int, len(counts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return rem[order[a]] > rem[order[b]]
	})
	for _, i := range order {
		if assigned >= draws {
			break
		}
		if out[i] < counts[i] {
			out[i]++
			assigned++
		}
	}

	return out
}
