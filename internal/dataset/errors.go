package dataset

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidSplit is returned when a table cannot be split with the requested fraction.
var ErrInvalidSplit = errors.New("invalid stratified split")

// MissingDirectoryError reports an expected class directory that does not exist.
type MissingDirectoryError struct {
	Class string
	Path  string
}

func (e *MissingDirectoryError) Error() string {
	return fmt.Sprintf("directory not found for class %q: %s", e.Class, e.Path)
}

// EmptyDatasetError is returned when indexing produces no rows.
type EmptyDatasetError struct {
	Root    string
	Classes []string
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("no data found in %s for classes: [%s]", e.Root, strings.Join(e.Classes, ", "))
}
