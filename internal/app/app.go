// Package app wires configuration, storage and auditing into a ready LedgerService.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/example/abacus/internal/config"
	"github.com/example/abacus/internal/ledger"
	"github.com/example/abacus/pkg/audit"
)

// Ledger bundles a LedgerService with the resources it owns.
type Ledger struct {
	Service *ledger.LedgerService
	Store   ledger.Store
	Audit   *audit.ChainLogger

	auditFile *os.File
}

// Open connects the configured store, runs its migrations and attaches the
// audit chain. Without AUDIT_LOG_PATH the chain is kept in memory only.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Ledger, error) {
	store, err := ledger.OpenStore(ctx, cfg.Store, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}
	if err := ledger.Migrate(ctx, store); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to migrate %s store: %w", cfg.Store, err)
	}

	l := &Ledger{Store: store}
	if cfg.AuditLogPath != "" {
		chain, f, err := audit.OpenFile(cfg.AuditLogPath)
		if err != nil {
			store.Close()
			return nil, err
		}
		l.Audit, l.auditFile = chain, f
	} else {
		l.Audit = audit.NewChainLogger()
	}

	l.Service = ledger.NewLedgerService(store,
		ledger.WithLogger(logger),
		ledger.WithAuditor(l.Audit),
	)
	logger.Info("ledger opened", "store", cfg.Store, "audit_log", cfg.AuditLogPath)
	return l, nil
}

// Close flushes the audit chain and releases the store.
func (l *Ledger) Close() error {
	var errs []error
	if err := l.Audit.Err(); err != nil {
		errs = append(errs, err)
	}
	if l.auditFile != nil {
		if err := l.auditFile.Sync(); err != nil {
			errs = append(errs, err)
		}
		if err := l.auditFile.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := l.Store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
