package checkpointer

import "github.com/pkg/errors"

// nStep implements checkpointing every N steps
type nStep struct {
	interval int
	object   Serializable // Object to save

	// filename returns the name of the file to save the object in.
	//
	// If each checkpoint should be saved in a separate file with an
	// incremented number as a suffix (e.g. file1.bin, file2.bin, ...,
	// fileK.bin), use FilenameEnumerator. If the filenames do not
	// matter, use FileTimer:
	//
	// n := NewNStep(10, object, FileTimer("filename", ".bin"))
	//
	// To overwrite a single checkpoint, return a constant filename.
	filename func() string
}

// NewNStep returns a checkpointer that checkpoints every n steps
func NewNStep(n int, object Serializable,
	filename func() string) (Checkpointer, error) {
	if n < 1 {
		return nil, errors.Errorf("newNStep: interval must be positive"+
			"\n\twant(>0)\n\thave(%v)", n)
	}
	return &nStep{
		interval: n,
		object:   object,
		filename: filename,
	}, nil
}

// Checkpoint saves the tracked object if step is a multiple of the
// checkpointing interval
func (n *nStep) Checkpoint(step int) error {
	if step%n.interval == 0 {
		return Save(n.filename(), n.object)
	}
	return nil
}
