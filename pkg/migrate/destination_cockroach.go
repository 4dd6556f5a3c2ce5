package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

const rowSavepoint = "dv_row"

func NewCockroachDestination(db *sql.DB, savepoints bool) *CockroachDestination {
	return &CockroachDestination{db: db, savepoints: savepoints}
}

// CockroachDestination : Destination over a pgx stdlib pool. With savepoints
// on, every insert is wrapped in its own savepoint so a failed row does not
// abort the surrounding chunk transaction.
type CockroachDestination struct {
	db         *sql.DB
	savepoints bool
}

func (c *CockroachDestination) Begin(ctx context.Context) (Tx, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &cockroachTx{tx: tx, savepoints: c.savepoints}, nil
}

func (c *CockroachDestination) Count(ctx context.Context, table string) (int64, error) {
	var cnt int64
	err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+pgx.Identifier{table}.Sanitize()).Scan(&cnt)
	return cnt, err
}

type cockroachTx struct {
	tx         *sql.Tx
	savepoints bool
}

func (t *cockroachTx) Insert(ctx context.Context, table string, row Row) error {
	q := insertStatement(table, row.Columns)
	if !t.savepoints {
		_, err := t.tx.ExecContext(ctx, q, row.Values...)
		return err
	}
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+rowSavepoint); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx, q, row.Values...); err != nil {
		if _, rbErr := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+rowSavepoint); rbErr != nil {
			return fmt.Errorf("%w (rollback to savepoint failed : %v)", err, rbErr)
		}
		return err
	}
	_, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+rowSavepoint)
	return err
}

func (t *cockroachTx) Commit() error {
	return t.tx.Commit()
}

func (t *cockroachTx) Rollback() error {
	return t.tx.Rollback()
}

func insertStatement(table string, columns []string) string {
	cols := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = pgx.Identifier{c}.Sanitize()
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", pgx.Identifier{table}.Sanitize(), strings.Join(cols, ","), strings.Join(params, ","))
}
