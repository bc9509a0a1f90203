package main

import (
	"context"
	"database/sql"
	"log/slog"

	"expertdesk/internal/directory"
	invoiceservice "expertdesk/internal/invoice/service"
	invoicestore "expertdesk/internal/invoice/store"
	"expertdesk/internal/outbox"
	"expertdesk/internal/platform/config"
	"expertdesk/internal/platform/postgres"
	requestservice "expertdesk/internal/request/service"
	requeststore "expertdesk/internal/request/store"
	httptransport "expertdesk/internal/transport/http"
	txcontext "expertdesk/pkg/platform/tx"
)

// requestStore is what both the lifecycle and the invoice cascade need from
// request persistence.
type requestStore interface {
	requestservice.Store
	invoiceservice.RequestLinker
}

type stores struct {
	db         *sql.DB
	requests   requestStore
	invoices   invoiceservice.Store
	directory  requestservice.Directory
	outbox     outbox.Store
	transactor outbox.Transactor
}

// openStores selects Postgres when a URL is configured and the in-memory
// stores otherwise.
func openStores(ctx context.Context, cfg config.PostgresConfig, log *slog.Logger) (*stores, error) {
	if cfg.URL == "" {
		dir := directory.NewInMemoryStore()
		if cfg.SeedFile != "" {
			if err := dir.LoadSeedFile(cfg.SeedFile); err != nil {
				return nil, err
			}
		}
		log.Warn("DATABASE_URL not set, using in-memory stores")
		return &stores{
			requests:  requeststore.NewInMemory(),
			invoices:  invoicestore.NewInMemory(),
			directory: dir,
			outbox:    outbox.NewInMemoryStore(),
			transactor: func(ctx context.Context, fn func(ctx context.Context) error) error {
				return fn(ctx)
			},
		}, nil
	}

	db, err := postgres.Open(ctx, cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := postgres.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &stores{
		db:        db,
		requests:  requeststore.NewPostgres(db),
		invoices:  invoicestore.NewPostgres(db),
		directory: directory.NewPostgres(db),
		outbox:    outbox.NewPostgresStore(db),
		transactor: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return txcontext.Run(ctx, db, fn)
		},
	}, nil
}

func (s *stores) checks() map[string]httptransport.Checker {
	checks := make(map[string]httptransport.Checker)
	if s.db != nil {
		checks["postgres"] = s.db.PingContext
	}
	return checks
}

func (s *stores) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}
