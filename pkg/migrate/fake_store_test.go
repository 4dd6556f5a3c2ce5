package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

type memRow struct {
	vals map[string]any
	mig  int
}

type memTable struct {
	rows      []*memRow
	hasMarker bool
}

// memSource : in memory Source with mysql flavoured errors
type memSource struct {
	tables map[string]*memTable

	addColumnErr  error
	fetchErr      error
	failMarkAfter int
	marks         int
	onMark        func(marks int)
	fetched       []int
}

func newMemSource() *memSource {
	return &memSource{tables: make(map[string]*memTable), failMarkAfter: -1}
}

func (s *memSource) seed(table string, rows ...map[string]any) {
	t, ok := s.tables[table]
	if !ok {
		t = &memTable{}
		s.tables[table] = t
	}
	for _, r := range rows {
		t.rows = append(t.rows, &memRow{vals: r})
	}
}

func (s *memSource) AddMarkerColumn(ctx context.Context, table string, column string) error {
	if s.addColumnErr != nil {
		return s.addColumnErr
	}
	t, ok := s.tables[table]
	if !ok {
		return &mysql.MySQLError{Number: 1146, Message: fmt.Sprintf("Table '%s' doesn't exist", table)}
	}
	if t.hasMarker {
		return &mysql.MySQLError{Number: 1060, Message: fmt.Sprintf("Duplicate column name '%s'", column)}
	}
	t.hasMarker = true
	return nil
}

func (s *memSource) FetchPending(ctx context.Context, task *MigrationTask, after []any, limit int) ([]Record, error) {
	if err := s.check(ctx, task.Source); err != nil {
		return nil, err
	}
	t := s.tables[task.Source]
	if !t.hasMarker {
		return nil, &mysql.MySQLError{Number: 1054, Message: "Unknown column 'mig' in 'where clause'"}
	}
	var res []Record
	for _, r := range s.sorted(task) {
		if r.mig != 0 {
			continue
		}
		if after != nil && compareKeys(keyOf(r, task.KeyFields), after) <= 0 {
			continue
		}
		res = append(res, toRecord(r, task))
		if len(res) == limit {
			break
		}
	}
	s.fetched = append(s.fetched, len(res))
	return res, nil
}

func (s *memSource) FetchAll(ctx context.Context, task *MigrationTask) ([]Record, error) {
	if err := s.check(ctx, task.Source); err != nil {
		return nil, err
	}
	var res []Record
	for _, r := range s.sorted(task) {
		res = append(res, toRecord(r, task))
	}
	s.fetched = append(s.fetched, len(res))
	return res, nil
}

func (s *memSource) MarkMigrated(ctx context.Context, task *MigrationTask, keys [][]any) error {
	if s.failMarkAfter >= 0 && s.marks >= s.failMarkAfter {
		return errors.New("invalid connection")
	}
	t := s.tables[task.Source]
	for _, k := range keys {
		for _, r := range t.rows {
			if compareKeys(keyOf(r, task.KeyFields), k) == 0 {
				r.mig = 1
			}
		}
	}
	s.marks++
	if s.onMark != nil {
		s.onMark(s.marks)
	}
	return nil
}

func (s *memSource) Count(ctx context.Context, table string) (int64, error) {
	t, ok := s.tables[table]
	if !ok {
		return 0, fmt.Errorf("no table %s", table)
	}
	return int64(len(t.rows)), nil
}

func (s *memSource) pending(table string) int {
	n := 0
	for _, r := range s.tables[table].rows {
		if r.mig == 0 {
			n++
		}
	}
	return n
}

func (s *memSource) resetMarkers(table string) {
	for _, r := range s.tables[table].rows {
		r.mig = 0
	}
}

func (s *memSource) check(ctx context.Context, table string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.fetchErr != nil {
		return s.fetchErr
	}
	if _, ok := s.tables[table]; !ok {
		return fmt.Errorf("no table %s", table)
	}
	return nil
}

func (s *memSource) sorted(task *MigrationTask) []*memRow {
	rows := append([]*memRow(nil), s.tables[task.Source].rows...)
	sort.SliceStable(rows, func(i, j int) bool {
		return compareKeys(keyOf(rows[i], task.KeyFields), keyOf(rows[j], task.KeyFields)) < 0
	})
	return rows
}

func keyOf(r *memRow, keyFields []string) []any {
	key := make([]any, len(keyFields))
	for i, k := range keyFields {
		key[i] = r.vals[k]
	}
	return key
}

func toRecord(r *memRow, task *MigrationTask) Record {
	var rec Record
	for _, c := range task.SourceColumns() {
		rec = append(rec, Field{Name: c, Value: r.vals[c]})
	}
	return rec
}

func compareKeys(a, b []any) int {
	for i := range a {
		if c := compareValue(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

func compareValue(a, b any) int {
	switch av := a.(type) {
	case int64:
		bv := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case int:
		return compareValue(int64(av), int64(b.(int)))
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// memDestination : in memory Destination with pgx flavoured errors. The
// first column of a row is its unique key unless the table has one configured.
type memDestination struct {
	tables    map[string]map[string]Row
	order     []string
	uniq      map[string][]string
	failOn    map[string]error
	beginErr  error
	commitErr error
	begins    int
	commits   int
	inserts   int
	onInsert  func(inserts int)
}

func newMemDestination() *memDestination {
	return &memDestination{
		tables: make(map[string]map[string]Row),
		uniq:   make(map[string][]string),
		failOn: make(map[string]error),
	}
}

func (d *memDestination) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.beginErr != nil {
		return nil, d.beginErr
	}
	d.begins++
	return &memTx{ctx: ctx, dst: d}, nil
}

func (d *memDestination) Count(ctx context.Context, table string) (int64, error) {
	return int64(len(d.tables[table])), nil
}

func (d *memDestination) get(table string, key string) (Row, bool) {
	r, ok := d.tables[table][key]
	return r, ok
}

func (d *memDestination) put(table string, row Row) {
	if d.tables[table] == nil {
		d.tables[table] = make(map[string]Row)
	}
	d.tables[table][d.key(table, row)] = row
}

func (d *memDestination) key(table string, row Row) string {
	cols := d.uniq[table]
	if len(cols) == 0 {
		cols = row.Columns[:1]
	}
	var parts []string
	for _, c := range cols {
		for i, rc := range row.Columns {
			if rc == c {
				parts = append(parts, fmt.Sprint(row.Values[i]))
			}
		}
	}
	return strings.Join(parts, "|")
}

// memTx : like database/sql, a transaction whose context is cancelled is
// rolled back and can no longer commit
type memTx struct {
	ctx     context.Context
	dst     *memDestination
	pending []struct {
		table string
		row   Row
	}
	done bool
}

func (t *memTx) Insert(ctx context.Context, table string, row Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.dst.inserts++
	if t.dst.onInsert != nil {
		t.dst.onInsert(t.dst.inserts)
	}
	key := t.dst.key(table, row)
	if err, ok := t.dst.failOn[table+":"+key]; ok {
		return err
	}
	if _, ok := t.dst.get(table, key); ok {
		return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint \"primary\""}
	}
	for _, p := range t.pending {
		if p.table == table && t.dst.key(table, p.row) == key {
			return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint \"primary\""}
		}
	}
	t.pending = append(t.pending, struct {
		table string
		row   Row
	}{table, row})
	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return errors.New("transaction already finished")
	}
	t.done = true
	if t.ctx.Err() != nil {
		return sql.ErrTxDone
	}
	if t.dst.commitErr != nil {
		return t.dst.commitErr
	}
	for _, p := range t.pending {
		t.dst.put(p.table, p.row)
		t.dst.order = append(t.dst.order, p.table)
	}
	t.dst.commits++
	return nil
}

func (t *memTx) Rollback() error {
	t.done = true
	t.pending = nil
	return nil
}
