package migrate

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// MinDate : replaces the mysql zero date, cockroach rejects year 0 and it would sort before everything
var MinDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Field : one named value of a source row
type Field struct {
	Name  string
	Value any
}

// Record : one source row, fields in select order
type Record []Field

// Get : case insensitive field lookup
func (r Record) Get(name string) (any, bool) {
	for _, f := range r {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return nil, false
}

// Key : values of the given key fields
func (r Record) Key(keyFields []string) ([]any, error) {
	key := make([]any, 0, len(keyFields))
	for _, k := range keyFields {
		v, ok := r.Get(k)
		if !ok {
			return nil, fmt.Errorf("record has no key field %s", k)
		}
		key = append(key, v)
	}
	return key, nil
}

// Row : a translated record ready for insert
type Row struct {
	Columns []string
	Values  []any
}

// Translate : maps a source record onto destination column names, applying field rules
func Translate(task *MigrationTask, rec Record) (Row, error) {
	row := Row{
		Columns: make([]string, 0, len(task.Fields)),
		Values:  make([]any, 0, len(task.Fields)),
	}
	for _, f := range task.Fields {
		v, ok := rec.Get(f.Source)
		if !ok {
			return Row{}, fmt.Errorf("record has no field %s", f.Source)
		}
		if f.Rule == RuleZeroDate {
			v = NormalizeZeroDate(v)
		}
		row.Columns = append(row.Columns, f.Dest)
		row.Values = append(row.Values, v)
	}
	return row, nil
}

var zeroDatePrefix = []byte("0000-00-00")

// NormalizeZeroDate : returns MinDate for every shape the mysql zero date can
// arrive in, depending on parseTime and column type. Other values are returned untouched.
func NormalizeZeroDate(v any) any {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() || t.Unix() == 0 {
			return MinDate
		}
	case *time.Time:
		if t == nil || t.IsZero() || t.Unix() == 0 {
			return MinDate
		}
	case []byte:
		if len(t) == 0 || bytes.HasPrefix(t, zeroDatePrefix) || bytes.Equal(t, []byte("0")) {
			return MinDate
		}
	case string:
		if t == "" || t == "0" || strings.HasPrefix(t, string(zeroDatePrefix)) {
			return MinDate
		}
	case int64:
		if t == 0 {
			return MinDate
		}
	case int:
		if t == 0 {
			return MinDate
		}
	}
	return v
}
