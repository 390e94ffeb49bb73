package engine

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

// LoadImage decodes the JPEG or PNG file at path.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening image")
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return img, nil
}

// Argmax returns the index of the largest value, or -1 for an empty slice.
func Argmax(values []float64) int {
	best := -1
	for i, v := range values {
		if best < 0 || v > values[best] {
			best = i
		}
	}
	return best
}

// Softmax turns scores into probabilities.
func Softmax(scores []float32) []float64 {
	if len(scores) == 0 {
		return nil
	}
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}

	exp := make([]float32, len(scores))
	var sum float32
	for i, s := range scores {
		exp[i] = math32.Exp(s - max)
		sum += exp[i]
	}

	probs := make([]float64, len(scores))
	for i := range exp {
		probs[i] = float64(exp[i] / sum)
	}
	return probs
}

// Normalize returns outputs unchanged when they already form a distribution and
// applies Softmax otherwise.
func Normalize(outputs []float32) []float64 {
	var sum float32
	for _, v := range outputs {
		if v < 0 {
			return Softmax(outputs)
		}
		sum += v
	}
	if math32.Abs(sum-1) > 1e-3 {
		return Softmax(outputs)
	}

	probs := make([]float64, len(outputs))
	for i, v := range outputs {
		probs[i] = float64(v)
	}
	return probs
}
