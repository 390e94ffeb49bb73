package dataset

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syntheticTable(counts ...int) Table {
	var t Table
	for label, n := range counts {
		for i := 0; i < n; i++ {
			t = append(t, Sample{
				Image:     fmt.Sprintf("c%d/%03d.jpg", label, i),
				Label:     label,
				ClassName: fmt.Sprintf("c%d", label),
			})
		}
	}
	return t
}

func TestSplitScenario(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]int{"Banana": 10, "Strawberry": 10, "Watermelon": 10})

	all, _, err := Index(context.Background(), IndexOptions{Root: root, Classes: fruits, Seed: DefaultSeed})
	require.NoError(t, err)
	require.Len(t, all, 30)

	train, test, err := Split(all, 0.8, DefaultSeed)
	require.NoError(t, err)

	assert.Len(t, train, 24)
	assert.Len(t, test, 6)
	assert.Equal(t, map[int]int{0: 8, 1: 8, 2: 8}, train.CountByLabel())
	assert.Equal(t, map[int]int{0: 2, 1: 2, 2: 2}, test.CountByLabel())
}

func TestSplitDeterministic(t *testing.T) {
	table := syntheticTable(13, 29, 8)

	trainA, testA, err := Split(table, 0.75, 7)
	require.NoError(t, err)
	trainB, testB, err := Split(table, 0.75, 7)
	require.NoError(t, err)

	assert.Equal(t, trainA, trainB)
	assert.Equal(t, testA, testB)

	trainC, _, err := Split(table, 0.75, 8)
	require.NoError(t, err)
	assert.NotEqual(t, trainA, trainC)
}

func TestSplitIsPartition(t *testing.T) {
	table := syntheticTable(11, 5, 17, 9)

	train, test, err := Split(table, 0.6, DefaultSeed)
	require.NoError(t, err)
	require.Equal(t, len(table), len(train)+len(test))

	seen := make(map[string]int)
	for _, s := range append(append(Table{}, train...), test...) {
		seen[s.Image]++
	}
	for _, s := range table {
		assert.Equal(t, 1, seen[s.Image], s.Image)
	}
}

func TestSplitStratified(t *testing.T) {
	cases := []struct {
		counts   []int
		fraction float64
	}{
		{[]int{10, 10, 10}, 0.8},
		{[]int{13, 29, 8}, 0.75},
		{[]int{50, 3, 7}, 0.7},
		{[]int{2, 2, 2, 2}, 0.5},
		{[]int{100, 37}, 0.9},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.counts, tc.fraction), func(t *testing.T) {
			table := syntheticTable(tc.counts...)
			train, test, err := Split(table, tc.fraction, DefaultSeed)
			require.NoError(t, err)

			trainCounts := train.CountByLabel()
			testCounts := test.CountByLabel()
			for label, n := range tc.counts {
				expected := float64(n) * float64(len(train)) / float64(len(table))
				assert.LessOrEqual(t, math.Abs(float64(trainCounts[label])-expected), 1.0,
					"label %d train count %d, expected about %.2f", label, trainCounts[label], expected)
				assert.Equal(t, n, trainCounts[label]+testCounts[label])
			}
		})
	}
}

func TestSplitErrors(t *testing.T) {
	table := syntheticTable(10, 10)

	for _, fraction := range []float64{0, 1, -0.5, 1.5, math.NaN()} {
		_, _, err := Split(table, fraction, DefaultSeed)
		assert.True(t, errors.Is(err, ErrInvalidSplit), "fraction %v", fraction)
	}

	_, _, err := Split(syntheticTable(10, 1), 0.8, DefaultSeed)
	assert.True(t, errors.Is(err, ErrInvalidSplit))

	_, _, err = Split(syntheticTable(2, 2, 2), 0.9, DefaultSeed)
	assert.True(t, errors.Is(err, ErrInvalidSplit))
}

func TestAllocate(t *testing.T) {
	assert.Equal(t, []int{8, 8, 8}, allocate([]int{10, 10, 10}, 24, 30))
	assert.Equal(t, []int{2, 1}, allocate([]int{2, 1}, 3, 3))

	out := allocate([]int{5, 5, 5}, 7, 15)
	assert.Equal(t, 7, out[0]+out[1]+out[2])
	assert.Equal(t, []int{3, 2, 2}, out)
}

func TestPrepare(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]int{"Banana": 10, "Strawberry": 10, "Watermelon": 10})

	p := DefaultParams()
	p.RawDataPath = root

	train, test, classes, err := Prepare(context.Background(), p)
	require.NoError(t, err)
	assert.Len(t, train, 24)
	assert.Len(t, test, 6)
	assert.Equal(t, []string{"Banana", "Strawberry", "Watermelon"}, classes.Names())
	assert.Equal(t, map[int]string{0: "Banana", 1: "Strawberry", 2: "Watermelon"}, classes.Inverse())
}
