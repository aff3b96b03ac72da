// Package progressbar implements functionality of printing a progress
// bar to the terminal window
package progressbar

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	pb "github.com/schollz/progressbar/v3"
)

// ProgressBar tracks progress towards a fixed number of increments of
// some unit, e.g. epochs, and renders a bar to a writer as progress is
// made. Once all increments are completed, the writer is moved to the
// next line.
type ProgressBar struct {
	bar *pb.ProgressBar
	max int
}

// New returns a new ProgressBar that is width characters wide, writes
// to out, and reaches 100% after max increments of unit.
func New(out io.Writer, width, max int, unit string) (*ProgressBar, error) {
	if width < 1 || max < 1 {
		return nil, errors.Errorf("new: width and max must be positive, "+
			"got %v and %v", width, max)
	}

	bar := pb.NewOptions(max,
		pb.OptionSetWriter(out),
		pb.OptionSetWidth(width),
		pb.OptionSetDescription(fmt.Sprintf("%v %v",
			humanize.Comma(int64(max)), unit)),
		pb.OptionShowCount(),
		pb.OptionShowIts(),
		pb.OptionSetItsString(unit),
		pb.OptionSetElapsedTime(true),
		pb.OptionThrottle(100*time.Millisecond),
		pb.OptionOnCompletion(func() { fmt.Fprintln(out) }),
	)
	return &ProgressBar{bar: bar, max: max}, nil
}

// Increment increments the progress counter. Each time an iteration is
// performed, Increment should be called.
func (p *ProgressBar) Increment() error {
	return p.Add(1)
}

// Add adds n to the progress counter, up to the maximum, and renders
// the bar
func (p *ProgressBar) Add(n int) error {
	current := int(p.bar.State().CurrentNum)
	if n = min(n, p.max-current); n <= 0 {
		return nil
	}
	return errors.Wrap(p.bar.Add(n), "add")
}

// Progress returns the fraction of completed increments
func (p *ProgressBar) Progress() float64 {
	return p.bar.State().CurrentPercent
}

// String returns the last rendered progress bar
func (p *ProgressBar) String() string {
	return p.bar.String()
}

// Close fills the progress bar and moves the writer to the next line
// if this has not yet been done
func (p *ProgressBar) Close() error {
	return errors.Wrap(p.bar.Finish(), "close")
}
