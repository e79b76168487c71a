// Package bootstrap turns a shared.Config into the concrete store and cache
// the binaries run against.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"uni_directory/internal/adapters/recordapi"
	redisad "uni_directory/internal/adapters/redis"
	"uni_directory/internal/domain"
	"uni_directory/internal/shared"
	"uni_directory/internal/storage/memory"
	mysqlrepo "uni_directory/internal/storage/mysql"
	"uni_directory/internal/storage/postgres"
)

func noop() {}

// Store opens the record store selected by cfg.StoreBackend. The returned
// func releases its connections.
func Store(ctx context.Context, cfg shared.Config) (domain.RecordStore, func(), error) {
	return open(ctx, cfg, cfg.StoreBackend)
}

// Remote opens the record API regardless of the configured backend; the
// mirror reads from it.
func Remote(cfg shared.Config) (domain.RecordStore, error) {
	if cfg.RecordAPIBase == "" {
		return nil, fmt.Errorf("record_api_base is not set")
	}
	c, err := recordapi.New(cfg.RecordAPIBase, cfg.RecordAPIKey, cfg.RecordAPIRPS)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func open(ctx context.Context, cfg shared.Config, backend string) (domain.RecordStore, func(), error) {
	switch backend {
	case shared.BackendMemory:
		s, err := memory.NewSeeded()
		if err != nil {
			return nil, nil, fmt.Errorf("seed memory store: %w", err)
		}
		return s, noop, nil

	case shared.BackendMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("sql.Open: %w", err)
		}
		db.SetMaxOpenConns(20)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("mysql ping: %w", err)
		}
		log.Info().Msg("mysql connection ok")
		return mysqlrepo.New(db), func() { _ = db.Close() }, nil

	case shared.BackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Msg("postgres connection ok")
		return postgres.New(pool), pool.Close, nil

	case shared.BackendRemote:
		s, err := Remote(cfg)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", backend)
}

// Cache connects to Redis at cfg.RedisAddr. With no address configured an
// in-process miniredis is started instead, which keeps comparison sessions
// working on a single node.
func Cache(ctx context.Context, cfg shared.Config) (domain.Cache, func(), error) {
	addr, pass, db := cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB
	var embedded *miniredis.Miniredis
	if addr == "" {
		m, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded redis: %w", err)
		}
		embedded = m
		addr, pass, db = m.Addr(), "", 0
		log.Warn().Str("addr", addr).Msg("REDIS_ADDR empty, using embedded redis")
	}

	c := redisad.New(addr, pass, db)
	closeFn := func() {
		_ = c.Close()
		if embedded != nil {
			embedded.Close()
		}
	}
	if err := c.Ping(ctx); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return c, closeFn, nil
}
