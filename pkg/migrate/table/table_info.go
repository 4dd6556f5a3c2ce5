package table

import "context"

type ColumnTypes struct {
	ColumnName string `db:"col_name"`
	Type       string `db:"col_type"`
}

type Info struct {
	TableName    string `db:"table_name"`
	DatabaseName string `db:"db_name"`
	Schema       []*ColumnTypes
}

// Column : case insensitive lookup, mysql column names are not case sensitive
func (i *Info) Column(name string) (*ColumnTypes, bool) {
	for _, c := range i.Schema {
		if equalFold(c.ColumnName, name) {
			return c, true
		}
	}
	return nil, false
}

type InfoFetcher interface {
	// Tables : fetches the column schema of every named table, in the order given
	Tables(ctx context.Context, dbName string, tables ...string) ([]*Info, error)
}
