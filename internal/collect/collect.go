// Package collect gathers bond descriptor records from public sources so
// they can be written to the descriptor store internal/storage reads from.
// Grounded on the teacher's internal/collect.go: a Collector interface
// returning a batch of parsed records alongside any rows that failed to
// parse, so a partial scrape still yields usable data.
package collect

import (
	"context"
	"fmt"
	"time"

	"benritz/cgbfutures/internal/types"
)

var ErrInvalidRow = fmt.Errorf("invalid row")

// CollectedDescriptor is one parsed (or failed) row from a source.
type CollectedDescriptor struct {
	Bond *types.Bond
	Err  error
}

func (c *CollectedDescriptor) SetError(err error) {
	if c.Err == nil {
		c.Err = err
	}
}

// CollectedDescriptors is the outcome of one collection run: every bond that
// parsed cleanly, plus the rows that didn't.
type CollectedDescriptors struct {
	Bonds      []*types.Bond
	Failures   []*CollectedDescriptor
	Source     string
	AsOfDate   time.Time
}

func NewCollectedDescriptors(source string, asOf time.Time) *CollectedDescriptors {
	return &CollectedDescriptors{
		Source:   source,
		AsOfDate: asOf,
	}
}

func (c *CollectedDescriptors) Add(cd *CollectedDescriptor) {
	if cd.Err == nil {
		c.Bonds = append(c.Bonds, cd.Bond)
	} else {
		c.Failures = append(c.Failures, cd)
	}
}

// Collector fetches bond descriptors as of date from a single source.
type Collector interface {
	Collect(ctx context.Context, date time.Time) (*CollectedDescriptors, error)
	Source() string
}
