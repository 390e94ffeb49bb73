package dataset

import (
	"sort"

	"github.com/pkg/errors"
)

// Sample is one labeled image row.
type Sample struct {
	Image     string `json:"image"`
	Label     int    `json:"label"`
	ClassName string `json:"fruit_name"`
}

// Table is an ordered collection of samples.
type Table []Sample

// Head returns the first n rows, or the whole table when it is shorter.
func (t Table) Head(n int) Table {
	if n > len(t) {
		n = len(t)
	}
	if n < 0 {
		n = 0
	}
	return t[:n]
}

func (t Table) Labels() []int {
	labels := make([]int, len(t))
	for i, s := range t {
		labels[i] = s.Label
	}
	return labels
}

func (t Table) CountByLabel() map[int]int {
	counts := make(map[int]int)
	for _, s := range t {
		counts[s.Label]++
	}
	return counts
}

func (t Table) CountByClass() map[string]int {
	counts := make(map[string]int)
	for _, s := range t {
		counts[s.ClassName]++
	}
	return counts
}

// ClassMap maps a class name to its integer label.
type ClassMap map[string]int

// Names returns the class names ordered by label.
func (m ClassMap) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return m[names[i]] < m[names[j]]
	})
	return names
}

// Inverse returns the label to class name mapping.
func (m ClassMap) Inverse() map[int]string {
	inv := make(map[int]string, len(m))
	for name, label := range m {
		inv[label] = name
	}
	return inv
}

// Validate checks that labels are unique and non-negative. Labels need not be
// contiguous: a class skipped while indexing leaves a gap.
func (m ClassMap) Validate() error {
	seen := make(map[int]string, len(m))
	for name, label := range m {
		if label < 0 {
			return errors.Errorf("class %q has negative label %d", name, label)
		}
		if other, ok := seen[label]; ok {
			return errors.Errorf("classes %q and %q share label %d", other, name, label)
		}
		seen[label] = name
	}
	return nil
}

// Positions maps each label to its index in Names.
func (m ClassMap) Positions() map[int]int {
	pos := make(map[int]int, len(m))
	for i, name := range m.Names() {
		pos[m[name]] = i
	}
	return pos
}

// Check verifies every row of t against the class map.
func (m ClassMap) Check(t Table) error {
	for i, s := range t {
		label, ok := m[s.ClassName]
		if !ok {
			return errors.Errorf("row %d: class %q not in class map", i, s.ClassName)
		}
		if label != s.Label {
			return errors.Errorf("row %d: class %q has label %d, expected %d", i, s.ClassName, s.Label, label)
		}
	}
	return nil
}
