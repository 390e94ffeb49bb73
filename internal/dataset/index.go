// Package dataset indexes per-class image directories and builds stratified splits.
package dataset

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DefaultSeed is the seed used for shuffling and splitting when none is configured.
const DefaultSeed int64 = 42

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// IndexOptions configures a directory scan.
type IndexOptions struct {
	// Root holds one subdirectory per class.
	Root string
	// Classes lists the expected class names; labels follow this order.
	Classes []string
	// SamplesPerClass caps the rows per class. Zero means no cap.
	SamplesPerClass int
	Seed            int64
}

// IsImageFile reports whether name has a recognized image extension.
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// Index scans opts.Root and returns a shuffled table together with its class map.
//
// Every class is labeled by its position in opts.Classes. Missing or empty class
// directories are logged and left out of the class map, and the remaining classes
// keep their positional labels.
func Index(ctx context.Context, opts IndexOptions) (Table, ClassMap, error) {
	var (
		rows    Table
		classes = make(ClassMap)
	)

	for label, class := range opts.Classes {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		dir := filepath.Join(opts.Root, class)
		images, err := listImages(dir)
		if os.IsNotExist(errors.Cause(err)) {
			log.WithError(&MissingDirectoryError{Class: class, Path: dir}).Warn("skipping class")
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		if _, dup := classes[class]; dup {
			return nil, nil, errors.Errorf("class %q listed twice", class)
		}
		if len(images) == 0 {
			log.WithField("class", class).Warnf("no images in %s, skipping class", dir)
			continue
		}

		classes[class] = label

		if opts.SamplesPerClass > 0 && len(images) > opts.SamplesPerClass {
			images = images[:opts.SamplesPerClass]
		}
		for _, name := range images {
			rows = append(rows, Sample{
				Image:     filepath.Join(dir, name),
				Label:     label,
				ClassName: class,
			})
		}
	}

	if len(rows) == 0 {
		return nil, nil, &EmptyDatasetError{Root: opts.Root, Classes: opts.Classes}
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	rng.Shuffle(len(rows), func(i, j int) {
		rows[i], rows[j] = rows[j], rows[i]
	})

	return rows, classes, nil
}

// listImages returns the image file names in dir, sorted by name.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", dir)
	}

	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if IsImageFile(entry.Name()) {
			images = append(images, entry.Name())
		}
	}
	return images, nil
}
