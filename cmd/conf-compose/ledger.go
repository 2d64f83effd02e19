package main

import (
	"context"
	"fmt"

	"conf-compose/pkg/config"
	"conf-compose/pkg/store"
)

// openLedger returns nil when no ledger is configured.
func openLedger(ctx context.Context, cfg config.Config) (store.Ledger, error) {
	switch cfg.Ledger {
	case "", "none":
		return nil, nil
	case "memory":
		return store.NewMemory(), nil
	case "sqlite":
		l, err := store.OpenSQLite(ctx, cfg.LedgerPath)
		if err != nil {
			return nil, err
		}
		return l, nil
	case "mysql":
		l, err := store.OpenMySQL(ctx, "")
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown ledger %q (want none, memory, sqlite or mysql)", cfg.Ledger)
	}
}
