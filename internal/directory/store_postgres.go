package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"expertdesk/pkg/platform/sentinel"
)

// PostgresStore reads the catalogue tables. Writes happen through migrations
// and back-office tooling, not this service.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindClient(ctx context.Context, id uuid.UUID) (*Client, error) {
	var c Client
	err := s.db.QueryRowContext(ctx, `SELECT id, name, email FROM clients WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Email)
	if err != nil {
		return nil, notFound("find client", err)
	}
	return &c, nil
}

func (s *PostgresStore) FindExpert(ctx context.Context, id uuid.UUID) (*Expert, error) {
	var e Expert
	err := s.db.QueryRowContext(ctx, `SELECT id, name, specializations FROM experts WHERE id = $1`, id).
		Scan(&e.ID, &e.Name, pq.Array(&e.Specializations))
	if err != nil {
		return nil, notFound("find expert", err)
	}
	return &e, nil
}

func (s *PostgresStore) FindService(ctx context.Context, id uuid.UUID) (*Service, error) {
	var (
		svc   Service
		price string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, name, price FROM services WHERE id = $1`, id).
		Scan(&svc.ID, &svc.Name, &price)
	if err != nil {
		return nil, notFound("find service", err)
	}
	if svc.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse service price: %w", err)
	}
	return &svc, nil
}

func (s *PostgresStore) FindPricingPlan(ctx context.Context, id uuid.UUID) (*PricingPlan, error) {
	var (
		p     PricingPlan
		svcID uuid.NullUUID
		price string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, name, service_id, price FROM pricing_plans WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &svcID, &price)
	if err != nil {
		return nil, notFound("find pricing plan", err)
	}
	if svcID.Valid {
		p.ServiceID = &svcID.UUID
	}
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse pricing plan price: %w", err)
	}
	return &p, nil
}

func notFound(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, sentinel.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
