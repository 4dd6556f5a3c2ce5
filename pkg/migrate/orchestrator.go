package migrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/baderkha/dv-transfer/pkg/migrate/config"
	"github.com/baderkha/dv-transfer/pkg/migrate/state"
)

// Summary : what one run did
type Summary struct {
	RunID          string
	Tables         []*TableReport
	Reconciliation []ReconciliationResult
	// Run and TableLogs : the run log as it stood when Run returned
	Run       *state.RunLog
	TableLogs []*state.TableRunLog
}

// Mismatched : true when any reconciled pair differs
func (s *Summary) Mismatched() bool {
	for _, r := range s.Reconciliation {
		if !r.Match {
			return true
		}
	}
	return false
}

// Orchestrator : runs the tasks one after another in the order given, then
// reconciles every pair once. The first fatal error stops the run, tables
// finished before it stay migrated and the next run resumes after them.
type Orchestrator struct {
	runID  string
	dbName string
	src    Source
	dst    Destination
	tasks  []MigrationTask
	mode   config.CommitMode
	state  state.Manager
	log    zerolog.Logger
}

func NewOrchestrator(runID string, dbName string, src Source, dst Destination, tasks []MigrationTask, mode config.CommitMode, mgr state.Manager, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		runID:  runID,
		dbName: dbName,
		src:    src,
		dst:    dst,
		tasks:  tasks,
		mode:   mode,
		state:  mgr,
		log:    log,
	}
}

func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{RunID: o.runID}
	var taskErr error
	for i := range o.tasks {
		if err := o.tasks[i].Validate(); err != nil {
			taskErr = multierror.Append(taskErr, err)
		}
	}
	if taskErr != nil {
		return summary, taskErr
	}

	o.state.InitRunLog(o.runID, len(o.tasks))
	defer func() {
		summary.Run = o.state.GetRunLog(o.runID)
		summary.TableLogs = o.state.GetTableRunLogs(o.runID)
	}()
	for i := range o.tasks {
		task := &o.tasks[i]
		if err := ctx.Err(); err != nil {
			o.abort(task)
			return summary, err
		}
		o.state.InitTableRunLog(o.runID, o.dbName, task.Source)
		report, err := o.migrateTable(ctx, task)
		if report != nil {
			summary.Tables = append(summary.Tables, report)
		}
		if err != nil {
			o.fail(task, err)
			return summary, err
		}
		o.state.PassedTableRun(o.runID, o.dbName, task.Source, state.TableCounts{
			Written: report.Inserted,
			Skipped: report.Skipped,
			Failed:  report.Failed,
		})
	}

	o.log.Info().Msg("validate migration")
	for res, err := range NewValidator(o.src, o.dst).Reconcile(ctx, Pairs(o.tasks)) {
		if err != nil {
			if errors.Is(err, context.Canceled) {
				o.state.OnShutDownEv()
			} else {
				o.state.FailedRunLog(o.runID, err)
			}
			return summary, err
		}
		summary.Reconciliation = append(summary.Reconciliation, res)
		ev := o.log.Info()
		if !res.Match {
			ev = o.log.Warn()
		}
		ev.Int64("source_count", res.SourceCount).
			Int64("dest_count", res.DestCount).
			Bool("match", res.Match).
			Msgf("compare %s ➜ %s", res.Pair.Source, res.Pair.Destination)
	}
	o.state.PassedRunLog(o.runID)

	if summary.Mismatched() {
		return summary, ErrReconciliationMismatch
	}
	return summary, nil
}

func (o *Orchestrator) migrateTable(ctx context.Context, task *MigrationTask) (*TableReport, error) {
	o.log.Info().Str("table", task.Name()).Str("mode", task.Mode.String()).Msg("migrate table")
	if task.Mode == Marker {
		if _, err := NewSchemaEvolver(o.src, o.log).EnsureMarkerColumn(ctx, task.Source, task.MarkerColumn); err != nil {
			return nil, err
		}
	}
	return NewChunkMigrator(task, o.src, o.dst, o.mode, o.log).Run(ctx)
}

func (o *Orchestrator) fail(task *MigrationTask, err error) {
	if errors.Is(err, context.Canceled) {
		o.abort(task)
		return
	}
	o.log.Error().Err(err).Str("table", task.Name()).Msg("table failed, aborting run")
	o.state.FailedTableRun(o.runID, o.dbName, task.Source, err)
	o.state.FailedRunLog(o.runID, fmt.Errorf("%s : %w", task.Name(), err))
}

func (o *Orchestrator) abort(task *MigrationTask) {
	o.log.Warn().Str("table", task.Name()).Msg("run interrupted, re-run to resume")
	o.state.OnShutDownEv()
}
