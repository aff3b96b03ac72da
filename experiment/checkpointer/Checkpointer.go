// Package checkpointer saves and restores serializable function
// approximators as gob files.
package checkpointer

import (
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Serializable is an object that can be saved/serialized
type Serializable interface {
	gob.GobEncoder
	gob.GobDecoder
}

// Checkpointer checkpoints/saves serializable objects based on the
// number of completed steps, e.g. training epochs
type Checkpointer interface {
	Checkpoint(step int) error
}

// Save gob encodes object into the file filename, creating its parent
// directories if needed
func Save(filename string, object Serializable) error {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "save %v", filename)
		}
	}

	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "save %v", filename)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(object); err != nil {
		return errors.Wrapf(err, "save %v", filename)
	}
	klog.V(1).Infof("saved checkpoint %v", filename)
	return f.Close()
}

// Load decodes the gob file filename into object
func Load(filename string, object Serializable) error {
	f, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "load %v", filename)
	}
	defer f.Close()

	if err := gob.NewDecoder(f).Decode(object); err != nil {
		return errors.Wrapf(err, "load %v", filename)
	}
	return nil
}
