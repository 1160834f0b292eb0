package db

import (
	"github.com/jackc/pgx/v5"

	"github.com/gyeh/ocifila/internal/model"
)

// SeqRow is an export row tagged with its position in the run.
type SeqRow struct {
	Seq int64
	Row *model.ExportRow
}

// ChannelSource implements pgx.CopyFromSource by reading export rows from a
// channel. This provides natural backpressure between the producer and the
// COPY writer.
type ChannelSource struct {
	runID   any
	ch      <-chan SeqRow
	current SeqRow
	err     error
}

// NewChannelSource creates a CopyFromSource backed by a channel. Every row is
// stamped with runID.
func NewChannelSource(runID any, ch <-chan SeqRow) *ChannelSource {
	return &ChannelSource{runID: runID, ch: ch}
}

// Next advances to the next row. Returns false when the channel is closed.
func (s *ChannelSource) Next() bool {
	row, ok := <-s.ch
	if !ok {
		return false
	}
	s.current = row
	return true
}

// Values returns the current row's values in COPY column order.
func (s *ChannelSource) Values() ([]any, error) {
	return s.current.Row.CopyValues(s.runID, s.current.Seq), nil
}

// Err returns any error encountered during iteration.
func (s *ChannelSource) Err() error {
	return s.err
}

// Compile-time check that ChannelSource satisfies the interface.
var _ pgx.CopyFromSource = (*ChannelSource)(nil)
