package state

import "time"

type RunLogState string

const (
	Started RunLogState = "STARTED"
	Success RunLogState = "SUCCESS"
	Aborted RunLogState = "ABORTED"
	Failed  RunLogState = "FAILED"
)

type Base struct {
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at" db:"updated_at"`
}

type RunLog struct {
	RunID                 string      `json:"run_id" db:"run_id"`
	TotalTablesForThisRun int         `json:"total_tables_for_run" db:"total_tables_for_run"`
	Status                RunLogState `json:"status" db:"status"`
	ErrMsg                string      `json:"err_msg" db:"err_msg"`
	Base
}

type TableRunLog struct {
	ParentRunID string      `json:"parent_run_id" db:"parent_run_id"`
	DBName      string      `json:"db_name" db:"db_name"`
	TableName   string      `json:"table_name" db:"table_name"`
	RowWritten  int         `json:"rows_written_target"`
	RowSkipped  int         `json:"rows_skipped_target"`
	RowFailed   int         `json:"rows_failed_target"`
	Status      RunLogState `json:"status"`
	ErrMsg      string      `json:"err_msg"`
	Base
}

// TableCounts : row outcomes of one table migration
type TableCounts struct {
	Written int
	Skipped int
	Failed  int
}

// Manager : bookkeeping of runs and their tables. Nothing here is used to
// resume a run, the marker column in the source tables is the only progress state.
type Manager interface {
	// GetRunLog : GetRunLog get a specific run log
	GetRunLog(runID string) *RunLog
	GetTableRunLogs(runID string) []*TableRunLog
	// InitRunLog : start a run log
	InitRunLog(runID string, totalTableCount int)
	FailedRunLog(runID string, err error)
	PassedRunLog(runID string)
	InitTableRunLog(runID string, dbName string, tableName string)
	FailedTableRun(runID string, dbName string, tableName string, err error)
	PassedTableRun(runID string, dbName string, tableName string, counts TableCounts)
	// OnShutDownEv : marks whatever is still running as aborted
	OnShutDownEv()
}
