package migrate

import "context"

// Counter : anything that can count the rows of a table
type Counter interface {
	Count(ctx context.Context, table string) (int64, error)
}

// Source : the store rows are read from. Apart from the marker column it is never written to.
type Source interface {
	Counter
	// AddMarkerColumn : adds the tracking column with default 0, the raw store error is returned
	AddMarkerColumn(ctx context.Context, table string, column string) error
	// FetchPending : up to limit unmarked rows ordered by key, strictly after the given key when it is not nil
	FetchPending(ctx context.Context, task *MigrationTask, after []any, limit int) ([]Record, error)
	// FetchAll : every row of the table, ordered by key
	FetchAll(ctx context.Context, task *MigrationTask) ([]Record, error)
	// MarkMigrated : sets the marker to 1 for the rows with the given keys
	MarkMigrated(ctx context.Context, task *MigrationTask, keys [][]any) error
}

// Destination : the store rows are written to
type Destination interface {
	Counter
	Begin(ctx context.Context) (Tx, error)
}

// Tx : a destination transaction
type Tx interface {
	// Insert : one row, a failure must leave the transaction usable for the next insert
	Insert(ctx context.Context, table string, row Row) error
	Commit() error
	Rollback() error
}
