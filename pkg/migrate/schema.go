package migrate

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// EvolveOutcome : result of making sure a marker column exists
type EvolveOutcome int

const (
	Created EvolveOutcome = iota
	// AlreadyPresent : an earlier run added the column, pending rows are picked up where it stopped
	AlreadyPresent
)

func (o EvolveOutcome) String() string {
	if o == AlreadyPresent {
		return "AlreadyPresent"
	}
	return "Created"
}

type SchemaEvolver struct {
	src Source
	log zerolog.Logger
}

func NewSchemaEvolver(src Source, log zerolog.Logger) *SchemaEvolver {
	return &SchemaEvolver{src: src, log: log}
}

// EnsureMarkerColumn : adds the marker column. A duplicate column error is not a failure.
func (s *SchemaEvolver) EnsureMarkerColumn(ctx context.Context, table string, column string) (EvolveOutcome, error) {
	err := s.src.AddMarkerColumn(ctx, table, column)
	switch {
	case err == nil:
		s.log.Info().Str("table", table).Str("column", column).Msg("created migration column")
		return Created, nil
	case IsDuplicateColumn(err):
		s.log.Info().Str("table", table).Str("column", column).Msg("migration column already exists, resuming")
		return AlreadyPresent, nil
	default:
		return 0, fmt.Errorf("%s.%s : %w : %w", table, column, ErrSchemaEvolution, err)
	}
}
