package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seisops/db2qml/internal/config"
	"github.com/seisops/db2qml/internal/convert"
	"github.com/seisops/db2qml/internal/db"
)

type cfgKey struct{}

func withConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, cfgKey{}, cfg)
}

func configFrom(ctx context.Context) *config.Config {
	cfg, _ := ctx.Value(cfgKey{}).(*config.Config)
	return cfg
}

// converterOptions maps the loaded configuration onto converter policy.
func converterOptions(cfg *config.Config) (convert.Options, error) {
	etypes, err := config.LoadEtypeMap(cfg.Converter.EtypeFile)
	if err != nil {
		return convert.Options{}, err
	}
	return convert.Options{
		Authority:              cfg.Converter.Authority,
		AgencyID:               cfg.Converter.AgencyID,
		SynthesizePlaceholders: cfg.Converter.SynthesizePlaceholders,
		OriginMagFallback:      cfg.Converter.OriginMagFallback,
		Precedence:             cfg.Converter.Precedence,
		EtypeMap:               etypes,
	}, nil
}

// openConverter connects to the database and builds the db-backed
// converter. The caller closes the returned pool.
func openConverter(ctx context.Context, cfg *config.Config) (*convert.DBConverter, *pgxpool.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required for database conversion")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}

	opts, err := converterOptions(cfg)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return convert.NewDBConverter(db.NewReader(pool), opts), pool, nil
}

// logDiags reports conversion diagnostics on the process logger.
func logDiags(diags []convert.Diagnostic) {
	for _, d := range diags {
		switch d.Severity {
		case convert.SeverityWarning:
			slog.Warn("diagnostic", "detail", d.String())
		default:
			slog.Info("diagnostic", "detail", d.String())
		}
	}
}
