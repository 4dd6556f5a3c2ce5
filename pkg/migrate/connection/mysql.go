package connection

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	sqldblogger "github.com/simukti/sqldb-logger"
	"github.com/simukti/sqldb-logger/logadapter/zerologadapter"

	"github.com/baderkha/dv-transfer/pkg/migrate/config/sourcecfg"
)

// AddLogger : wraps the pool so every statement is logged with its duration.
// The pool passed in is closed, only the returned one is usable.
func AddLogger(db *sql.DB, dsn string, driverName string, logger zerolog.Logger) *sql.DB {
	loggerAdapter := zerologadapter.New(logger.With().Str("driver", driverName).Logger())
	logged := sqldblogger.OpenDriver(dsn, db.Driver(), loggerAdapter,
		sqldblogger.WithWrapResult(false),
		sqldblogger.WithDurationFieldname("dur_ms"),
		sqldblogger.WithDurationUnit(sqldblogger.DurationMillisecond),
		sqldblogger.WithSQLQueryAsMessage(true),
		sqldblogger.WithSQLQueryFieldname("sql_query"),
	)
	db.Close()
	return logged
}

func DialMysql(ctx context.Context, cfg *sourcecfg.MYSQL, logger zerolog.Logger) (*sql.DB, error) {
	logger.Debug().Str("host", cfg.Host).Msg("getting DialMysql con")
	dsn := cfg.GetDSN()
	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("MYSQL_SOURCE : Could not dial connection to mysql due to : %w", err)
	}
	if cfg.QueryLogging {
		sqlDB = AddLogger(sqlDB, dsn, "mysql", logger)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConns)
	sqlDB.SetMaxIdleConns(cfg.MaxConns)
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("MYSQL_SOURCE : Could not reach %s:%d due to : %w", cfg.Host, cfg.Port, err)
	}
	logger.Debug().Str("host", cfg.Host).Msg("got DialMysql con")
	return sqlDB, nil
}
