// Package config loads the YAML parameters file and applies environment overrides.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Brownie44l1/fruits/internal/client"
	"github.com/Brownie44l1/fruits/internal/dataset"
	"github.com/Brownie44l1/fruits/internal/training"
)

// DefaultPath is the parameters file read when no other is given.
const DefaultPath = "conf/parameters.yaml"

// Environment variables overriding the file.
const (
	EnvPort        = "PORT"
	EnvAPIURL      = "FRUITS_API_URL"
	EnvRawDataPath = "FRUITS_RAW_DATA_PATH"
	EnvModelPath   = "FRUITS_MODEL_PATH"
)

type Config struct {
	DataProcessing dataset.Params  `yaml:"data_processing"`
	Modeling       training.Params `yaml:"modeling"`
	Serving        Serving         `yaml:"serving"`
	Frontend       Frontend        `yaml:"frontend"`
}

// Serving configures the prediction service.
type Serving struct {
	Port int `yaml:"port"`
	// ModelPath is the model directory to serve. Empty serves the newest model
	// trained under modeling.model_path.
	ModelPath string `yaml:"model_path"`
	Engine    string `yaml:"engine"`
}

// Frontend configures the web UI.
type Frontend struct {
	Port      int           `yaml:"port"`
	APIURL    string        `yaml:"api_url"`
	HealthTTL time.Duration `yaml:"health_ttl"`
}

func Default() *Config {
	return &Config{
		DataProcessing: dataset.DefaultParams(),
		Modeling:       training.DefaultParams(),
		Serving: Serving{
			Port:   8000,
			Engine: "centroid",
		},
		Frontend: Frontend{
			Port:      8501,
			APIURL:    client.DefaultURL,
			HealthTTL: client.DefaultHealthTTL,
		},
	}
}

// Load reads path over the defaults and applies the environment. A missing file at
// DefaultPath leaves the defaults in place; any other missing file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err) && path == DefaultPath:
		log.Debugf("no parameters file at %s, using defaults", path)
	case err != nil:
		return nil, errors.Wrapf(err, "reading %s", path)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parsing %s", path)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", EnvPort)
		}
		c.Serving.Port = port
	}
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.Frontend.APIURL = v
	}
	if v := os.Getenv(EnvRawDataPath); v != "" {
		c.DataProcessing.RawDataPath = v
	}
	if v := os.Getenv(EnvModelPath); v != "" {
		c.Modeling.ModelPath = v
	}
	return nil
}

// Validate rejects parameters that would fail later in a run.
func (c *Config) Validate() error {
	if len(c.DataProcessing.SelectedFruits) == 0 {
		return errors.New("data_processing.selected_fruits is empty")
	}
	if f := c.DataProcessing.TrainSplit; f <= 0 || f >= 1 {
		return errors.Wrapf(dataset.ErrInvalidSplit, "data_processing.train_split %v", f)
	}
	if c.DataProcessing.SamplesPerClass < 0 {
		return errors.New("data_processing.samples_per_class must not be negative")
	}
	if c.Modeling.ModelPath == "" {
		return errors.New("modeling.model_path is empty")
	}
	if c.Modeling.TimeLimit < 0 {
		return errors.New("modeling.time_limit must not be negative")
	}
	return nil
}
