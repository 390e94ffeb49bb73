package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fruits = []string{"Banana", "Strawberry", "Watermelon"}

// makeTree creates count empty image files under root/<class> for each class.
func makeTree(t *testing.T, root string, counts map[string]int) {
	t.Helper()
	for class, n := range counts {
		dir := filepath.Join(root, class)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		for i := 0; i < n; i++ {
			name := filepath.Join(dir, fmt.Sprintf("img_%02d.jpg", i))
			require.NoError(t, os.WriteFile(name, []byte("x"), 0o644))
		}
	}
}

func TestIndexCountsAndLabels(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]int{"Banana": 10, "Strawberry": 7, "Watermelon": 4})

	rows, classes, err := Index(context.Background(), IndexOptions{Root: root, Classes: fruits, Seed: DefaultSeed})
	require.NoError(t, err)

	assert.Len(t, rows, 21)
	assert.Equal(t, ClassMap{"Banana": 0, "Strawberry": 1, "Watermelon": 2}, classes)
	assert.NoError(t, classes.Validate())
	assert.NoError(t, classes.Check(rows))
	assert.Equal(t, map[string]int{"Banana": 10, "Strawberry": 7, "Watermelon": 4}, rows.CountByClass())
}

func TestIndexCap(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]int{"Banana": 10, "Strawberry": 3, "Watermelon": 6})

	rows, _, err := Index(context.Background(), IndexOptions{
		Root:            root,
		Classes:         fruits,
		SamplesPerClass: 5,
		Seed:            DefaultSeed,
	})
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 5, 1: 3, 2: 5}, rows.CountByLabel())
}

func TestIndexExtensions(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "Banana")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested.jpg"), 0o755))
	for _, name := range []string{"a.JPG", "b.jpeg", "c.PNG", "d.Jpeg", "e.gif", "f.txt", "g"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	rows, _, err := Index(context.Background(), IndexOptions{Root: root, Classes: []string{"Banana"}})
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestIndexMissingDirectory(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]int{"Banana": 2, "Watermelon": 3})

	rows, classes, err := Index(context.Background(), IndexOptions{Root: root, Classes: fruits})
	require.NoError(t, err)
	assert.Len(t, rows, 5)
	assert.Equal(t, ClassMap{"Banana": 0, "Watermelon": 2}, classes)
	assert.NoError(t, classes.Validate())
	assert.NoError(t, classes.Check(rows))
	assert.Equal(t, map[int]int{0: 2, 2: 3}, rows.CountByLabel())
}

func TestIndexEmptyClassDirectory(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]int{"Banana": 0, "Strawberry": 2, "Watermelon": 2})

	rows, classes, err := Index(context.Background(), IndexOptions{Root: root, Classes: fruits})
	require.NoError(t, err)
	assert.Len(t, rows, 4)
	assert.Equal(t, ClassMap{"Strawberry": 1, "Watermelon": 2}, classes)
	assert.Equal(t, []string{"Strawberry", "Watermelon"}, classes.Names())
}

func TestIndexEmptyTree(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]int{"Banana": 0, "Strawberry": 0, "Watermelon": 0})

	_, _, err := Index(context.Background(), IndexOptions{Root: root, Classes: fruits})
	require.Error(t, err)

	var empty *EmptyDatasetError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, root, empty.Root)
}

func TestIndexDeterministicShuffle(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]int{"Banana": 10, "Strawberry": 10, "Watermelon": 10})

	opts := IndexOptions{Root: root, Classes: fruits, Seed: DefaultSeed}
	first, _, err := Index(context.Background(), opts)
	require.NoError(t, err)
	second, _, err := Index(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	// the shuffle must break up the per-class grouping
	grouped := true
	for i := 1; i < 10; i++ {
		if first[i].Label != first[0].Label {
			grouped = false
		}
	}
	assert.False(t, grouped)
}

func TestIsImageFile(t *testing.T) {
	assert.True(t, IsImageFile("x.JpEg"))
	assert.True(t, IsImageFile("dir/x.png"))
	assert.False(t, IsImageFile("x.bmp"))
	assert.False(t, IsImageFile("jpg"))
}
