// Package onnx serves exported classifiers through onnxruntime. It can load models but
// not train them.
package onnx

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/Brownie44l1/fruits/internal/dataset"
	"github.com/Brownie44l1/fruits/internal/engine"
)

const (
	// Name is the registry name of this engine.
	Name = "onnx"

	ModelFile    = "model.onnx"
	MetadataFile = "model_metadata.json"

	// SharedLibraryEnv overrides the onnxruntime shared library location.
	SharedLibraryEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"
)

var (
	envMu   sync.Mutex
	envRefs int
)

// acquireEnvironment initializes the onnxruntime environment on first use.
func acquireEnvironment() error {
	envMu.Lock()
	defer envMu.Unlock()

	if envRefs == 0 {
		if lib := os.Getenv(SharedLibraryEnv); lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return errors.Wrap(err, "failed to initialize ONNX environment")
		}
	}
	envRefs++
	return nil
}

func releaseEnvironment() {
	envMu.Lock()
	defer envMu.Unlock()

	envRefs--
	if envRefs == 0 {
		if err := ort.DestroyEnvironment(); err != nil {
			log.WithError(err).Warn("failed to destroy ONNX environment")
		}
	}
}

// Engine loads exported ONNX classifiers.
type Engine struct{}

func New() *Engine {
	return &Engine{}
}

// Fit always fails: ONNX models are trained elsewhere and exported.
func (e *Engine) Fit(context.Context, dataset.Table, engine.FitConfig) (*engine.Handle, error) {
	return nil, errors.Wrap(engine.ErrFitUnsupported, "onnx: export a model and set use_existing_model")
}

// Load opens path/model.onnx described by path/model_metadata.json.
func (e *Engine) Load(path string) (*engine.Handle, error) {
	s, err := NewSession(filepath.Join(path, ModelFile), filepath.Join(path, MetadataFile))
	if err != nil {
		return nil, err
	}
	return engine.NewHandle(path, s), nil
}

// Session runs one exported classifier. Runs are serialized because the input and
// output tensors are shared.
type Session struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

func NewSession(modelPath, metadataPath string) (*Session, error) {
	metadata, err := readMetadata(metadataPath)
	if err != nil {
		return nil, err
	}

	if err := acquireEnvironment(); err != nil {
		return nil, err
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		releaseEnvironment()
		return nil, errors.Wrap(err, "failed to create input tensor")
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		releaseEnvironment()
		return nil, errors.Wrap(err, "failed to create output tensor")
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		releaseEnvironment()
		return nil, errors.Wrap(err, "failed to create ONNX session")
	}

	log.WithFields(log.Fields{
		"model":   modelPath,
		"classes": metadata.Classes,
	}).Info("loaded ONNX model")

	return &Session{
		session:      session,
		Metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func (s *Session) Classes() []string {
	return s.Metadata.Classes
}

// Classify runs the model on img and returns one probability per class.
func (s *Session) Classify(ctx context.Context, img image.Image) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	input := preprocess(img, s.Metadata.ImageSize)

	s.mu.Lock()
	defer s.mu.Unlock()

	copy(s.inputTensor.GetData(), input)
	if err := s.session.Run(); err != nil {
		return nil, errors.Wrap(err, "inference failed")
	}

	out := s.outputTensor.GetData()
	scores := make([]float32, len(s.Metadata.Classes))
	copy(scores, out)
	return engine.Normalize(scores), nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil
	}
	s.inputTensor.Destroy()
	s.outputTensor.Destroy()
	err := s.session.Destroy()
	s.session = nil
	releaseEnvironment()
	return err
}
