package connection

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"github.com/baderkha/dv-transfer/pkg/migrate/config/targetcfg"
)

// DialCockroach : opens the destination pool through the pgx stdlib driver.
// The provider table is probed the same way the vault does on startup, so a
// destination without the vault schema fails here instead of on the first insert.
func DialCockroach(ctx context.Context, cfg *targetcfg.Cockroach, logger zerolog.Logger) (*sql.DB, error) {
	logger.Debug().Str("host", cfg.Host).Msg("getting DialCockroach")
	var res int64
	dsn := cfg.GetDSN()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("COCKROACH_TARGET : Could not dial connection due to : %w", err)
	}
	if cfg.QueryLogging {
		db = AddLogger(db, dsn, "pgx", logger)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxConns)

	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM provider").Scan(&res); err != nil {
		db.Close()
		return nil, fmt.Errorf("COCKROACH_TARGET : test query against provider table failed on %s:%d : %w", cfg.Host, cfg.Port, err)
	}
	logger.Debug().Str("host", cfg.Host).Int64("providers", res).Msg("got DialCockroach")
	return db, nil
}
