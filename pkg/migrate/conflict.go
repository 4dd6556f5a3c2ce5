package migrate

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// Verdict : what a failed insert means for the row
type Verdict int

const (
	// FatalRowError : the row was not migrated, it stays pending and is reported
	FatalRowError Verdict = iota
	// DuplicateSkip : the row already exists at the destination, treat it as migrated
	DuplicateSkip
)

func (v Verdict) String() string {
	if v == DuplicateSkip {
		return "DuplicateSkip"
	}
	return "FatalRowError"
}

const (
	pgUniqueViolation = "23505"
	pgDuplicateColumn = "42701"
	mysqlDupEntry     = 1062
	mysqlDupFieldName = 1060
)

// Classify : unique and primary key violations are the expected outcome of
// re-inserting rows a previous run already committed, everything else is fatal.
func Classify(err error) Verdict {
	if err == nil {
		return FatalRowError
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return DuplicateSkip
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDupEntry {
		return DuplicateSkip
	}
	return FatalRowError
}

// IsDuplicateColumn : the store refused to add a column because it already exists
func IsDuplicateColumn(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDupFieldName {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgDuplicateColumn
}

// IsConnectionError : the failure is about the session, not the row. The
// table can not go on, so these are never counted as a failed row.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, sql.ErrTxDone),
		errors.Is(err, mysql.ErrInvalidConn),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		pgconn.Timeout(err):
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
