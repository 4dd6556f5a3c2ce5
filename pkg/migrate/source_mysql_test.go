package migrate

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMysqlMock(t *testing.T) (*MysqlSource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMysqlSource(db), mock
}

func TestMysqlSource_AddMarkerColumn(t *testing.T) {
	src, mock := newMysqlMock(t)
	mock.ExpectExec("ALTER TABLE `data` ADD COLUMN `mig` SMALLINT DEFAULT 0").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, src.AddMarkerColumn(context.Background(), "data", "mig"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMysqlSource_FetchPending(t *testing.T) {
	task := vaultTask(t, "data", 2)

	t.Run("first chunk", func(t *testing.T) {
		src, mock := newMysqlMock(t)
		mock.ExpectQuery("SELECT `PID`,`PAYLOAD`,`PROVIDERID`,`CREATIONDATE` FROM `data` WHERE `mig` = 0 ORDER BY `PID` LIMIT 2").
			WillReturnRows(sqlmock.NewRows([]string{"PID", "PAYLOAD", "PROVIDERID", "CREATIONDATE"}).
				AddRow([]byte("vid-0001"), []byte("p1"), int64(1), "2020-01-01 00:00:00").
				AddRow([]byte("vid-0002"), []byte("p2"), int64(1), "0000-00-00 00:00:00"))

		recs, err := src.FetchPending(context.Background(), task, nil, 2)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, Record{
			{Name: "PID", Value: "vid-0001"},
			{Name: "PAYLOAD", Value: "p1"},
			{Name: "PROVIDERID", Value: int64(1)},
			{Name: "CREATIONDATE", Value: "2020-01-01 00:00:00"},
		}, recs[0])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("after cursor", func(t *testing.T) {
		src, mock := newMysqlMock(t)
		mock.ExpectQuery("SELECT `PID`,`PAYLOAD`,`PROVIDERID`,`CREATIONDATE` FROM `data` WHERE `mig` = 0 AND `PID` > ? ORDER BY `PID` LIMIT 2").
			WithArgs("vid-0002").
			WillReturnRows(sqlmock.NewRows([]string{"PID", "PAYLOAD", "PROVIDERID", "CREATIONDATE"}))

		recs, err := src.FetchPending(context.Background(), task, []any{"vid-0002"}, 2)
		require.NoError(t, err)
		assert.Empty(t, recs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("composite cursor", func(t *testing.T) {
		src, mock := newMysqlMock(t)
		mock.ExpectQuery("SELECT `PID`,`WORD` FROM `search` WHERE `mig` = 0 AND (`PID`,`WORD`) > (?,?) ORDER BY `PID`,`WORD` LIMIT 50").
			WithArgs("vid-0001", "abc").
			WillReturnRows(sqlmock.NewRows([]string{"PID", "WORD"}).AddRow("vid-0001", "abd"))

		recs, err := src.FetchPending(context.Background(), vaultTask(t, "search", 50), []any{"vid-0001", "abc"}, 50)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		word, ok := recs[0].Get("word")
		require.True(t, ok)
		assert.Equal(t, "abd", word)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver error", func(t *testing.T) {
		src, mock := newMysqlMock(t)
		mock.ExpectQuery("SELECT `PID`,`PAYLOAD`,`PROVIDERID`,`CREATIONDATE` FROM `data` WHERE `mig` = 0 ORDER BY `PID` LIMIT 2").
			WillReturnError(sql.ErrConnDone)

		_, err := src.FetchPending(context.Background(), task, nil, 2)
		assert.ErrorIs(t, err, sql.ErrConnDone)
	})
}

func TestMysqlSource_FetchAll(t *testing.T) {
	src, mock := newMysqlMock(t)
	mock.ExpectQuery("SELECT `PROVIDERID`,`NAME`,`PASSWORD`,`IP`,`CREATIONDATE` FROM `provider` ORDER BY `PROVIDERID`").
		WillReturnRows(sqlmock.NewRows([]string{"PROVIDERID", "NAME", "PASSWORD", "IP", "CREATIONDATE"}).
			AddRow(int64(1), []byte("acme"), []byte("pwd"), []byte("127.0.0.1"), nil))

	recs, err := src.FetchAll(context.Background(), vaultTask(t, "provider", 100))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	name, _ := recs[0].Get("NAME")
	assert.Equal(t, "acme", name)
	created, ok := recs[0].Get("CREATIONDATE")
	require.True(t, ok)
	assert.Nil(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMysqlSource_MarkMigrated(t *testing.T) {
	t.Run("single key", func(t *testing.T) {
		src, mock := newMysqlMock(t)
		mock.ExpectExec("UPDATE `data` SET `mig` = 1 WHERE `PID` IN (?,?)").
			WithArgs("vid-0001", "vid-0002").
			WillReturnResult(sqlmock.NewResult(0, 2))

		err := src.MarkMigrated(context.Background(), vaultTask(t, "data", 10), [][]any{{"vid-0001"}, {"vid-0002"}})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("composite key", func(t *testing.T) {
		src, mock := newMysqlMock(t)
		mock.ExpectExec("UPDATE `search` SET `mig` = 1 WHERE (`PID`,`WORD`) IN ((?,?),(?,?))").
			WithArgs("vid-0001", "abc", "vid-0001", "abd").
			WillReturnResult(sqlmock.NewResult(0, 2))

		err := src.MarkMigrated(context.Background(), vaultTask(t, "search", 10), [][]any{{"vid-0001", "abc"}, {"vid-0001", "abd"}})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing to mark", func(t *testing.T) {
		src, mock := newMysqlMock(t)
		require.NoError(t, src.MarkMigrated(context.Background(), vaultTask(t, "data", 10), nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("key arity", func(t *testing.T) {
		src, _ := newMysqlMock(t)
		err := src.MarkMigrated(context.Background(), vaultTask(t, "search", 10), [][]any{{"vid-0001"}})
		assert.Error(t, err)
	})
}

func TestMysqlSource_Count(t *testing.T) {
	src, mock := newMysqlMock(t)
	mock.ExpectQuery("SELECT COUNT(*) FROM `log`").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(int64(120)))

	cnt, err := src.Count(context.Background(), "log")
	require.NoError(t, err)
	assert.Equal(t, int64(120), cnt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "abc", normalizeValue("VARCHAR", []byte("abc")))
	assert.Equal(t, "2020-01-01", normalizeValue("DATE", []byte("2020-01-01")))
	assert.Equal(t, []byte{0x1, 0x2}, normalizeValue("BLOB", []byte{0x1, 0x2}))
	assert.Equal(t, []byte{0x1}, normalizeValue("varbinary", []byte{0x1}))
	assert.Equal(t, int64(7), normalizeValue("INT", int64(7)))
	assert.Nil(t, normalizeValue("TEXT", nil))
}

func TestWrapQ(t *testing.T) {
	assert.Equal(t, "`data`", WrapQ("data"))
	assert.Equal(t, "`we``ird`", WrapQ("we`ird"))
}
