package connection

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/baderkha/dv-transfer/pkg/migrate/config/sourcecfg"
	"github.com/baderkha/dv-transfer/pkg/migrate/config/targetcfg"
)

// DialAll : opens source and target together. If either fails the other is closed again.
func DialAll(ctx context.Context, src *sourcecfg.MYSQL, tgt *targetcfg.Cockroach, logger zerolog.Logger) (source *sql.DB, target *sql.DB, err error) {
	wg, gctx := errgroup.WithContext(ctx)
	wg.Go(func() error {
		var err error
		source, err = DialMysql(gctx, src, logger)
		return err
	})
	wg.Go(func() error {
		var err error
		target, err = DialCockroach(gctx, tgt, logger)
		return err
	})
	if err = wg.Wait(); err != nil {
		if source != nil {
			source.Close()
		}
		if target != nil {
			target.Close()
		}
		return nil, nil, err
	}
	return source, target, nil
}
