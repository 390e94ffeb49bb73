// Package centroid implements a nearest-centroid image classifier over downsampled
// RGB grids. It is the trainable engine used by the modeling pipeline.
package centroid

import (
	"context"
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/Brownie44l1/fruits/internal/dataset"
	"github.com/Brownie44l1/fruits/internal/engine"
)

// Name is the registry name of this engine.
const Name = "centroid"

// ModelFile is the file holding the fitted state inside a model directory.
const ModelFile = "model.json"

// Presets maps a quality preset to the side of the feature grid.
var Presets = map[string]int{
	"medium_quality": 16,
	"high_quality":   24,
	"best_quality":   32,
}

// Engine fits and loads centroid models.
type Engine struct {
	now func() time.Time
}

func New() *Engine {
	return &Engine{now: time.Now}
}

type state struct {
	Engine      string      `json:"engine"`
	Resolution  int         `json:"resolution"`
	Temperature float32     `json:"temperature"`
	Classes     []string    `json:"classes"`
	Centroids   [][]float32 `json:"centroids"`
}

// Fit averages the features of every training image per class. When cfg.TimeLimit
// elapses, fitting stops and the centroids are built from the images seen so far.
func (e *Engine) Fit(ctx context.Context, train dataset.Table, cfg engine.FitConfig) (*engine.Handle, error) {
	resolution, ok := Presets[cfg.Presets]
	if !ok {
		return nil, errors.Errorf("unknown preset %q", cfg.Presets)
	}
	if err := cfg.Classes.Validate(); err != nil {
		return nil, err
	}

	names := cfg.Classes.Names()
	pos := cfg.Classes.Positions()
	dim := 3 * resolution * resolution
	sums := make([][]float32, len(names))
	for i := range sums {
		sums[i] = make([]float32, dim)
	}
	counts := make([]int, len(names))
	features := make([][]float32, 0, len(train))
	owners := make([]int, 0, len(train))

	start := e.now()
	for i, s := range train {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if cfg.TimeLimit > 0 && e.now().Sub(start) >= cfg.TimeLimit {
			log.WithFields(log.Fields{
				"fitted": i,
				"total":  len(train),
			}).Warn("time limit reached, stopping fit early")
			break
		}
		c, ok := pos[s.Label]
		if !ok {
			return nil, errors.Errorf("sample %s has label %d outside the class map", s.Image, s.Label)
		}

		img, err := engine.LoadImage(s.Image)
		if err != nil {
			return nil, err
		}
		f := extract(img, resolution)
		for j, v := range f {
			sums[c][j] += v
		}
		counts[c]++
		features = append(features, f)
		owners = append(owners, c)
	}

	st := &state{
		Engine:     Name,
		Resolution: resolution,
		Classes:    names,
		Centroids:  sums,
	}
	for c, n := range counts {
		if n == 0 {
			return nil, errors.Errorf("no training images fitted for class %q", names[c])
		}
		for j := range st.Centroids[c] {
			st.Centroids[c][j] /= float32(n)
		}
	}
	st.Temperature = temperature(st.Centroids, features, owners)

	if err := save(cfg.Path, st); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"path":       cfg.Path,
		"classes":    len(names),
		"images":     len(features),
		"resolution": resolution,
	}).Info("fitted centroid model")

	return engine.NewHandle(cfg.Path, &classifier{state: st}), nil
}

// Load reads a model previously written by Fit.
func (e *Engine) Load(path string) (*engine.Handle, error) {
	data, err := os.ReadFile(filepath.Join(path, ModelFile))
	if err != nil {
		return nil, errors.Wrap(err, "reading centroid model")
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, errors.Wrap(err, "parsing centroid model")
	}
	if st.Engine != Name {
		return nil, errors.Errorf("model at %s was written by engine %q", path, st.Engine)
	}
	if len(st.Classes) != len(st.Centroids) || len(st.Classes) == 0 {
		return nil, errors.Errorf("model at %s has %d classes and %d centroids", path, len(st.Classes), len(st.Centroids))
	}
	dim := 3 * st.Resolution * st.Resolution
	for i, c := range st.Centroids {
		if len(c) != dim {
			return nil, errors.Errorf("centroid %d has %d values, expected %d", i, len(c), dim)
		}
	}
	if st.Temperature <= 0 {
		st.Temperature = 1
	}

	return engine.NewHandle(path, &classifier{state: &st}), nil
}

func save(path string, st *state) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return errors.Wrap(err, "creating model directory")
	}
	data, err := json.Marshal(st)
	if err != nil {
		return errors.Wrap(err, "encoding centroid model")
	}
	return errors.Wrap(os.WriteFile(filepath.Join(path, ModelFile), data, 0o644), "writing centroid model")
}

// temperature is the mean squared distance of each fitted image to its own centroid.
// owners holds the centroid index of every feature row.
func temperature(centroids, features [][]float32, owners []int) float32 {
	var sum float32
	for i, f := range features {
		sum += sqDist(f, centroids[owners[i]])
	}
	if len(features) == 0 || sum == 0 {
		return 1
	}
	return sum / float32(len(features))
}

type classifier struct {
	state *state
}

func (c *classifier) Classes() []string {
	return c.state.Classes
}

func (c *classifier) Classify(_ context.Context, img image.Image) ([]float64, error) {
	f := extract(img, c.state.Resolution)
	scores := make([]float32, len(c.state.Centroids))
	for i, centroid := range c.state.Centroids {
		scores[i] = -sqDist(f, centroid) / c.state.Temperature
	}
	return engine.Softmax(scores), nil
}

func (c *classifier) Close() error {
	return nil
}

// extract resizes img to size x size and returns its RGB values in [0, 1], channel-major.
func extract(img image.Image, size int) []float32 {
	resized := resize.Resize(uint(size), uint(size), img, resize.Bilinear)
	bounds := resized.Bounds()
	plane := size * size
	out := make([]float32, 3*plane)

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			i := y*size + x
			out[i] = float32(r) / 65535.0
			out[plane+i] = float32(g) / 65535.0
			out[2*plane+i] = float32(b) / 65535.0
		}
	}
	return out
}

func sqDist(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
