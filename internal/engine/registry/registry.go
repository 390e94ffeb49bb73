// Package registry resolves classifier engines by name.
package registry

import (
	"fmt"

	"github.com/Brownie44l1/fruits/internal/engine"
	"github.com/Brownie44l1/fruits/internal/engine/centroid"
	"github.com/Brownie44l1/fruits/internal/engine/onnx"
)

// Names lists the engines New understands.
var Names = []string{centroid.Name, onnx.Name}

// New returns the engine registered under name.
func New(name string) (engine.Engine, error) {
	switch name {
	case centroid.Name, "":
		return centroid.New(), nil
	case onnx.Name:
		return onnx.New(), nil
	default:
		return nil, fmt.Errorf("unsupported engine: %s", name)
	}
}
