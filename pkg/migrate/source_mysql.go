package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// WrapQ : quotes a mysql identifier
func WrapQ(sql string) string {
	return "`" + strings.ReplaceAll(sql, "`", "``") + "`"
}

func NewMysqlSource(db *sql.DB) *MysqlSource {
	return &MysqlSource{db: db}
}

// MysqlSource : Source over a mysql pool
type MysqlSource struct {
	db *sql.DB
}

func (m *MysqlSource) AddMarkerColumn(ctx context.Context, table string, column string) error {
	_, err := m.db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s SMALLINT DEFAULT 0", WrapQ(table), WrapQ(column)))
	return err
}

func (m *MysqlSource) FetchPending(ctx context.Context, task *MigrationTask, after []any, limit int) ([]Record, error) {
	var (
		where = []string{WrapQ(task.MarkerColumn) + " = 0"}
		args  []any
	)
	if after != nil {
		where = append(where, keyTuple(task.KeyFields)+" > "+placeholders(len(after)))
		args = append(args, after...)
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s LIMIT %d",
		columnList(task.SourceColumns()), WrapQ(task.Source), strings.Join(where, " AND "), columnList(task.KeyFields), limit)
	return m.query(ctx, q, args...)
}

func (m *MysqlSource) FetchAll(ctx context.Context, task *MigrationTask) ([]Record, error) {
	q := fmt.Sprintf("SELECT %s FROM %s", columnList(task.SourceColumns()), WrapQ(task.Source))
	if len(task.KeyFields) > 0 {
		q += " ORDER BY " + columnList(task.KeyFields)
	}
	return m.query(ctx, q)
}

func (m *MysqlSource) MarkMigrated(ctx context.Context, task *MigrationTask, keys [][]any) error {
	if len(keys) == 0 {
		return nil
	}
	var (
		tuples = make([]string, 0, len(keys))
		args   = make([]any, 0, len(keys)*len(task.KeyFields))
	)
	for _, k := range keys {
		if len(k) != len(task.KeyFields) {
			return fmt.Errorf("%s : key has %d values, expected %d", task.Source, len(k), len(task.KeyFields))
		}
		tuples = append(tuples, placeholders(len(k)))
		args = append(args, k...)
	}
	q := fmt.Sprintf("UPDATE %s SET %s = 1 WHERE %s IN (%s)",
		WrapQ(task.Source), WrapQ(task.MarkerColumn), keyTuple(task.KeyFields), strings.Join(tuples, ","))
	_, err := m.db.ExecContext(ctx, q, args...)
	return err
}

func (m *MysqlSource) Count(ctx context.Context, table string) (int64, error) {
	var cnt int64
	err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+WrapQ(table)).Scan(&cnt)
	return cnt, err
}

func (m *MysqlSource) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	var res []Record
	rows, err := m.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			vals = make([]any, len(columns))
			ptrs = make([]any, len(columns))
		)
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(Record, len(columns))
		for i, c := range columns {
			rec[i] = Field{Name: c.Name(), Value: normalizeValue(c.DatabaseTypeName(), vals[i])}
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// normalizeValue : the driver hands text back as []byte, the pgx side would send that as BYTES
func normalizeValue(dbType string, v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	t := strings.ToUpper(dbType)
	if strings.Contains(t, "BLOB") || strings.Contains(t, "BINARY") {
		cp := make([]byte, len(b))
		copy(cp, b)
		return cp
	}
	return string(b)
}

func columnList(cols []string) string {
	wrapped := make([]string, len(cols))
	for i, c := range cols {
		wrapped[i] = WrapQ(c)
	}
	return strings.Join(wrapped, ",")
}

// keyTuple : a single key stays a plain column, composite keys become a row constructor
func keyTuple(keyFields []string) string {
	if len(keyFields) == 1 {
		return WrapQ(keyFields[0])
	}
	return "(" + columnList(keyFields) + ")"
}

func placeholders(n int) string {
	if n == 1 {
		return "?"
	}
	return "(" + strings.TrimSuffix(strings.Repeat("?,", n), ",") + ")"
}
