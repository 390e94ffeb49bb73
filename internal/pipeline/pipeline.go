// Package pipeline runs named nodes in dependency order, threading named artifacts
// between them through a Catalog.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrMissingInput is returned when a node input is neither in the catalog nor
	// produced by another node.
	ErrMissingInput = errors.New("missing input")
	// ErrCycle is returned when nodes depend on each other's outputs.
	ErrCycle = errors.New("dependency cycle")
	// ErrDuplicateOutput is returned when two nodes produce the same artifact.
	ErrDuplicateOutput = errors.New("artifact produced by more than one node")
)

// Func computes a node's outputs from its inputs. Both maps are keyed by artifact name.
type Func func(ctx context.Context, in Artifacts) (Artifacts, error)

// Node is a named step with declared inputs and outputs.
type Node struct {
	Name    string
	Inputs  []string
	Outputs []string
	Func    Func
}

// NodeError wraps the failure of a single node.
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q failed: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// Pipeline is an unordered set of nodes.
type Pipeline struct {
	nodes []Node
}

// New returns a pipeline of nodes.
func New(nodes ...Node) *Pipeline {
	return &Pipeline{nodes: nodes}
}

// Add returns a pipeline holding the nodes of p followed by those of other.
func (p *Pipeline) Add(other *Pipeline) *Pipeline {
	nodes := make([]Node, 0, len(p.nodes)+len(other.nodes))
	nodes = append(nodes, p.nodes...)
	nodes = append(nodes, other.nodes...)
	return &Pipeline{nodes: nodes}
}

func (p *Pipeline) Nodes() []Node {
	return p.nodes
}

// Inputs returns the artifacts the pipeline needs but does not produce.
func (p *Pipeline) Inputs() []string {
	produced := make(map[string]bool)
	for _, n := range p.nodes {
		for _, out := range n.Outputs {
			produced[out] = true
		}
	}

	var free []string
	seen := make(map[string]bool)
	for _, n := range p.nodes {
		for _, in := range n.Inputs {
			if !produced[in] && !seen[in] {
				seen[in] = true
				free = append(free, in)
			}
		}
	}
	return free
}

// Plan orders the nodes so that every node runs after the producers of its inputs.
// Nodes that are ready at the same time keep their declaration order. available
// lists artifacts that exist before the run.
func (p *Pipeline) Plan(available []string) ([]Node, error) {
	producer := make(map[string]int)
	for i, n := range p.nodes {
		for _, out := range n.Outputs {
			if j, ok := producer[out]; ok {
				return nil, errors.Wrapf(ErrDuplicateOutput, "%q by %q and %q", out, p.nodes[j].Name, n.Name)
			}
			producer[out] = i
		}
	}

	have := make(map[string]bool, len(available))
	for _, a := range available {
		have[a] = true
	}

	deps := make([]map[int]bool, len(p.nodes))
	for i, n := range p.nodes {
		deps[i] = make(map[int]bool)
		for _, in := range n.Inputs {
			if j, ok := producer[in]; ok {
				deps[i][j] = true
				continue
			}
			if !have[in] {
				return nil, errors.Wrapf(ErrMissingInput, "%q needed by %q", in, n.Name)
			}
		}
	}

	done := make([]bool, len(p.nodes))
	order := make([]Node, 0, len(p.nodes))
	for len(order) < len(p.nodes) {
		progressed := false
		for i, n := range p.nodes {
			if done[i] || !ready(deps[i], done) {
				continue
			}
			done[i] = true
			order = append(order, n)
			progressed = true
			break
		}
		if !progressed {
			var stuck []string
			for i, n := range p.nodes {
				if !done[i] {
					stuck = append(stuck, n.Name)
				}
			}
			return nil, errors.Wrapf(ErrCycle, "between %s", strings.Join(stuck, ", "))
		}
	}
	return order, nil
}

func ready(deps map[int]bool, done []bool) bool {
	for j := range deps {
		if !done[j] {
			return false
		}
	}
	return true
}

func (p *Pipeline) String() string {
	names := make([]string, len(p.nodes))
	for i, n := range p.nodes {
		names[i] = n.Name
	}
	return fmt.Sprintf("Pipeline([%s])", strings.Join(names, ", "))
}
