package migrate

import (
	"context"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/baderkha/dv-transfer/pkg/migrate/config"
)

// Outcome : what happened to one row
type Outcome int

const (
	Inserted Outcome = iota
	Skipped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "Inserted"
	case Skipped:
		return "Skipped"
	}
	return "Failed"
}

// RowResult : Ok(Inserted|Skipped) or Err. Only Ok rows get their marker set.
type RowResult struct {
	Key     []any
	Outcome Outcome
	Err     error
}

func (r RowResult) Ok() bool {
	return r.Outcome != Failed
}

// ChunkReport : counts of one committed chunk
type ChunkReport struct {
	Index    int
	Fetched  int
	Inserted int
	Skipped  int
	Failed   int
}

// TableReport : counts of one table migration, row errors are kept for the operator
type TableReport struct {
	Task     string
	Source   string
	Dest     string
	Chunks   []ChunkReport
	Inserted int
	Skipped  int
	Failed   int
	Errors   *multierror.Error
}

func (r *TableReport) add(c ChunkReport) {
	r.Chunks = append(r.Chunks, c)
	r.Inserted += c.Inserted
	r.Skipped += c.Skipped
	r.Failed += c.Failed
}

// ChunkMigrator : moves one table. FETCH → TRANSLATE → COMMIT_CHUNK → MARK_PROGRESS,
// looping while a full chunk came back.
type ChunkMigrator struct {
	task *MigrationTask
	src  Source
	dst  Destination
	mode config.CommitMode
	log  zerolog.Logger
}

func NewChunkMigrator(task *MigrationTask, src Source, dst Destination, mode config.CommitMode, log zerolog.Logger) *ChunkMigrator {
	return &ChunkMigrator{
		task: task,
		src:  src,
		dst:  dst,
		mode: mode,
		log:  log.With().Str("table", task.Name()).Logger(),
	}
}

// Run : migrates until the source has no more pending rows. The returned error
// is only set for failures that stop the table, row failures are in the report.
func (c *ChunkMigrator) Run(ctx context.Context) (*TableReport, error) {
	report := &TableReport{Task: c.task.Name(), Source: c.task.Source, Dest: c.task.Destination}
	var after []any
	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		// a started chunk runs to its marker update, cancellation lands on the next boundary
		chunkCtx := context.WithoutCancel(ctx)
		recs, hasMore, err := c.fetch(chunkCtx, after)
		if err != nil {
			return report, fmt.Errorf("%s : fetch chunk %d : %w : %w", c.task.Name(), idx, ErrConnection, err)
		}
		if len(recs) == 0 {
			break
		}

		results, err := c.commitChunk(chunkCtx, recs)
		if err != nil {
			return report, fmt.Errorf("%s : commit chunk %d : %w : %w", c.task.Name(), idx, ErrConnection, err)
		}
		if err := c.markProgress(chunkCtx, results); err != nil {
			return report, fmt.Errorf("%s : mark chunk %d : %w : %w", c.task.Name(), idx, ErrConnection, err)
		}

		chunk := ChunkReport{Index: idx, Fetched: len(recs)}
		for _, r := range results {
			switch r.Outcome {
			case Inserted:
				chunk.Inserted++
			case Skipped:
				chunk.Skipped++
			case Failed:
				chunk.Failed++
				report.Errors = multierror.Append(report.Errors, fmt.Errorf("key %v : %w", r.Key, r.Err))
			}
		}
		report.add(chunk)
		c.log.Info().
			Int("chunk", idx).
			Int("rows", chunk.Fetched).
			Int("inserted", chunk.Inserted).
			Int("skipped", chunk.Skipped).
			Int("failed", chunk.Failed).
			Msg("chunk done")

		if !hasMore {
			break
		}
		if after, err = recs[len(recs)-1].Key(c.task.KeyFields); err != nil {
			return report, fmt.Errorf("%s : chunk %d : %w", c.task.Name(), idx, err)
		}
	}
	c.log.Info().
		Int("chunks", len(report.Chunks)).
		Int("inserted", report.Inserted).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("table done")
	return report, nil
}

// fetch : hasMore is true when a marker chunk came back full, a full scan is always a single pass
func (c *ChunkMigrator) fetch(ctx context.Context, after []any) ([]Record, bool, error) {
	if c.task.Mode == FullScan {
		recs, err := c.src.FetchAll(ctx, c.task)
		return recs, false, err
	}
	recs, err := c.src.FetchPending(ctx, c.task, after, c.task.ChunkSize)
	if err != nil {
		return nil, false, err
	}
	return recs, len(recs) == c.task.ChunkSize, nil
}

// commitChunk : one insert per row, every row is attempted. The error is only
// set when the destination could not begin or commit the chunk transaction.
func (c *ChunkMigrator) commitChunk(ctx context.Context, recs []Record) ([]RowResult, error) {
	if c.mode == config.CommitPerChunk {
		return c.commitChunkTx(ctx, recs)
	}
	results := make([]RowResult, 0, len(recs))
	for _, rec := range recs {
		res, row, ok := c.prepare(rec)
		if !ok {
			results = append(results, res)
			continue
		}
		tx, err := c.dst.Begin(ctx)
		if err != nil {
			return nil, err
		}
		err = tx.Insert(ctx, c.task.Destination, row)
		if err == nil {
			err = tx.Commit()
		} else {
			_ = tx.Rollback()
		}
		res, err = c.result(res.Key, rec, err)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (c *ChunkMigrator) commitChunkTx(ctx context.Context, recs []Record) ([]RowResult, error) {
	results := make([]RowResult, 0, len(recs))
	tx, err := c.dst.Begin(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		res, row, ok := c.prepare(rec)
		if !ok {
			results = append(results, res)
			continue
		}
		res, err = c.result(res.Key, rec, tx.Insert(ctx, c.task.Destination, row))
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		results = append(results, res)
	}
	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	return results, nil
}

// prepare : TRANSLATE step, a record that cannot be translated is a failed row
func (c *ChunkMigrator) prepare(rec Record) (RowResult, Row, bool) {
	key, err := rec.Key(c.task.KeyFields)
	if err != nil {
		return RowResult{Outcome: Failed, Err: err}, Row{}, false
	}
	row, err := Translate(c.task, rec)
	if err != nil {
		c.log.Error().Err(err).Interface("key", key).Msg("could not translate row")
		return RowResult{Key: key, Outcome: Failed, Err: err}, Row{}, false
	}
	return RowResult{Key: key}, row, true
}

// result : a connection level error is returned instead of a row result, it stops the table
func (c *ChunkMigrator) result(key []any, rec Record, err error) (RowResult, error) {
	if err == nil {
		return RowResult{Key: key, Outcome: Inserted}, nil
	}
	if IsConnectionError(err) {
		return RowResult{}, fmt.Errorf("insert key %v : %w", key, err)
	}
	if Classify(err) == DuplicateSkip {
		c.log.Debug().Interface("key", key).Msg("row already migrated")
		return RowResult{Key: key, Outcome: Skipped}, nil
	}
	c.log.Error().Err(err).Interface("key", key).Msg("could not insert row")
	c.log.Debug().Msg(spew.Sdump(rec))
	return RowResult{Key: key, Outcome: Failed, Err: err}, nil
}

// markProgress : only runs after the destination committed, failed rows stay pending
func (c *ChunkMigrator) markProgress(ctx context.Context, results []RowResult) error {
	if c.task.Mode != Marker {
		return nil
	}
	keys := make([][]any, 0, len(results))
	for _, r := range results {
		if r.Ok() {
			keys = append(keys, r.Key)
		}
	}
	return c.src.MarkMigrated(ctx, c.task, keys)
}
