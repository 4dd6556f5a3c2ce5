package table

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

func NewInfoFetcherMysql(db *sql.DB) InfoFetcher {
	return &InfoFetcherMYSQL{
		source: db,
	}
}

type InfoFetcherMYSQL struct {
	source *sql.DB
}

func (m *InfoFetcherMYSQL) Tables(ctx context.Context, dbName string, tables ...string) ([]*Info, error) {
	var (
		res = make([]*Info, len(tables))
		wg  errgroup.Group
	)
	for i := range tables {
		wg.Go(func() error {
			schma, err := m.GetTableInfo(ctx, dbName, tables[i])
			if err != nil {
				return fmt.Errorf("%s.%s : %w", dbName, tables[i], err)
			}
			if len(schma) == 0 {
				return fmt.Errorf("%s.%s : table does not exist or has no columns", dbName, tables[i])
			}
			res[i] = &Info{
				TableName:    tables[i],
				DatabaseName: dbName,
				Schema:       schma,
			}
			return nil
		})
	}
	if err := wg.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func (m *InfoFetcherMYSQL) GetTableInfo(ctx context.Context, dbName string, table string) ([]*ColumnTypes, error) {
	var res []*ColumnTypes
	rows, err := m.source.QueryContext(ctx, `SELECT COLUMN_NAME AS col_name, COLUMN_TYPE AS col_type
	FROM information_schema.COLUMNS
	WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
	ORDER BY ORDINAL_POSITION`, dbName, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var ifo ColumnTypes
		if err := rows.Scan(&ifo.ColumnName, &ifo.Type); err != nil {
			return nil, err
		}
		res = append(res, &ifo)
	}
	return res, rows.Err()
}

func equalFold(a, b string) bool {
	return strings.EqualFold(a, b)
}
