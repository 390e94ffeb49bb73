package dataset

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Params configures data preparation.
type Params struct {
	RawDataPath     string   `yaml:"raw_data_path"`
	SelectedFruits  []string `yaml:"selected_fruits"`
	SamplesPerClass int      `yaml:"samples_per_class"`
	TrainSplit      float64  `yaml:"train_split"`
	Seed            int64    `yaml:"seed"`
}

// DefaultParams returns the parameters used when the configuration leaves them unset.
func DefaultParams() Params {
	return Params{
		RawDataPath:    "data/01_raw",
		SelectedFruits: []string{"Banana", "Strawberry", "Watermelon"},
		TrainSplit:     0.8,
		Seed:           DefaultSeed,
	}
}

// Prepare indexes the raw data directory and splits it into train and test tables.
func Prepare(ctx context.Context, p Params) (Table, Table, ClassMap, error) {
	all, classes, err := Index(ctx, IndexOptions{
		Root:            p.RawDataPath,
		Classes:         p.SelectedFruits,
		SamplesPerClass: p.SamplesPerClass,
		Seed:            p.Seed,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	log.Infof("Total samples found: %d", len(all))
	counts := all.CountByClass()
	for _, fruit := range p.SelectedFruits {
		log.Infof("  %s: %d samples", fruit, counts[fruit])
	}

	train, test, err := Split(all, p.TrainSplit, p.Seed)
	if err != nil {
		return nil, nil, nil, err
	}

	log.WithFields(log.Fields{
		"train": len(train),
		"test":  len(test),
	}).Info("split dataset")

	return train, test, classes, nil
}
