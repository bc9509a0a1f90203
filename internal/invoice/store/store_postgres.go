package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"expertdesk/internal/invoice/models"
	"expertdesk/internal/platform/postgres"
	"expertdesk/pkg/platform/sentinel"
	txcontext "expertdesk/pkg/platform/tx"
)

const invoiceColumns = `id, seq_id, COALESCE(display_id, ''), request_id, client_id, subtotal, vat, amount, status, issued_at`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts inv and returns it with the BIGSERIAL seq_id.
func (s *PostgresStore) Create(ctx context.Context, inv *models.Invoice) (*models.Invoice, error) {
	created, err := scanInvoice(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO invoices (id, request_id, client_id, subtotal, vat, amount, status, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+invoiceColumns,
		inv.ID, inv.RequestID, inv.ClientID, inv.Subtotal, inv.VAT, inv.Amount, string(inv.Status), inv.IssuedAt,
	))
	if err != nil {
		if postgres.IsUniqueViolation(err, "invoices_request_id_key") {
			return nil, fmt.Errorf("invoice for request %s: %w", inv.RequestID, sentinel.ErrAlreadyUsed)
		}
		return nil, fmt.Errorf("insert invoice: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) SetDisplayID(ctx context.Context, id uuid.UUID, displayID string) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx,
		`UPDATE invoices SET display_id = $2 WHERE id = $1`, id, displayID)
	if err != nil {
		if postgres.IsUniqueViolation(err, "invoices_display_id_key") {
			return fmt.Errorf("invoice display id %s: %w", displayID, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("set invoice display id: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set invoice display id rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("invoice %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) FindByRequestID(ctx context.Context, requestID uuid.UUID) (*models.Invoice, error) {
	inv, err := scanInvoice(txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE request_id = $1`, requestID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("invoice for request %s: %w", requestID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find invoice: %w", err)
	}
	return inv, nil
}

func (s *PostgresStore) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Invoice, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE client_id = $1 ORDER BY seq_id DESC`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*models.Invoice, error) {
	var (
		inv    models.Invoice
		status string
	)
	if err := row.Scan(&inv.ID, &inv.SeqID, &inv.DisplayID, &inv.RequestID, &inv.ClientID,
		&inv.Subtotal, &inv.VAT, &inv.Amount, &status, &inv.IssuedAt); err != nil {
		return nil, err
	}
	inv.Status = models.Status(status)
	return &inv, nil
}
