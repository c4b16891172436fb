package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-cli/internal/match"
	"github.com/sells-group/compliance-cli/internal/searchterm"
	"github.com/sells-group/compliance-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	opts := store.Options{Threads: cfg.Profile.Threads}
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "rcrainfo.db"
		}
		st, err := store.NewSQLite(dsn, opts)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		}, opts)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initStrategy selects the matching backend named by match.strategy.
func initStrategy() (match.Strategy, error) {
	switch cfg.Match.Strategy {
	case "facility":
		return match.NewFacilityStrategy(match.FacilityTables{
			Facilities:     cfg.Match.FacilityTable,
			Handlers:       cfg.Match.HandlerTable,
			OwnerOperators: cfg.Match.OwnerOperatorTable,
		}), nil
	case "registry":
		return match.NewRegistryStrategy(cfg.Match.RegistryTable), nil
	default:
		return nil, eris.Errorf("unsupported match strategy: %s", cfg.Match.Strategy)
	}
}

// initNormalizer builds a Normalizer with the optional extra blocklist.
func initNormalizer(ctx context.Context) (*searchterm.Normalizer, error) {
	if cfg.Match.BlockedDomainsFile == "" {
		return searchterm.NewNormalizer(), nil
	}
	extra, err := searchterm.ReadBlocklistFile(ctx, cfg.Match.BlockedDomainsFile)
	if err != nil {
		return nil, err
	}
	return searchterm.NewNormalizer(extra...), nil
}
