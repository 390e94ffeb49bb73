package onnx

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Metadata describes an exported model.
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
	InputName   string   `json:"input_name,omitempty"`
	OutputName  string   `json:"output_name,omitempty"`
}

func readMetadata(path string) (Metadata, error) {
	var md Metadata

	data, err := os.ReadFile(path)
	if err != nil {
		return md, errors.Wrap(err, "failed to read metadata")
	}
	if err := json.Unmarshal(data, &md); err != nil {
		return md, errors.Wrap(err, "failed to parse metadata")
	}
	if md.InputName == "" {
		md.InputName = "input"
	}
	if md.OutputName == "" {
		md.OutputName = "output"
	}
	return md, md.validate()
}

func (md Metadata) validate() error {
	if len(md.Classes) == 0 {
		return errors.New("metadata lists no classes")
	}
	if md.ImageSize <= 0 {
		return errors.Errorf("invalid image size %d", md.ImageSize)
	}
	if size := elements(md.InputShape); size != 3*md.ImageSize*md.ImageSize {
		return errors.Errorf("input shape %v holds %d values, expected 3x%dx%d", md.InputShape, size, md.ImageSize, md.ImageSize)
	}
	if size := elements(md.OutputShape); size < len(md.Classes) {
		return errors.Errorf("output shape %v is smaller than %d classes", md.OutputShape, len(md.Classes))
	}
	return nil
}

func elements(shape []int64) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= int(d)
	}
	return n
}
