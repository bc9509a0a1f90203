package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"expertdesk/internal/platform/postgres"
	"expertdesk/internal/request/models"
	"expertdesk/pkg/platform/sentinel"
	txcontext "expertdesk/pkg/platform/tx"
)

const requestColumns = `
	id, display_id, client_id, service_id, pricing_plan_id, amount, description,
	status, assigned_expert_id, visibility, required_skills, invoice_display_id,
	created_at, updated_at`

// displayIDConstraint is the only violation the allocator may retry on.
const displayIDConstraint = "requests_display_id_key"

// PostgresStore persists requests in PostgreSQL. A request and its nested
// batches and files are inserted in one transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, r *models.Request) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		exec := txcontext.Exec(ctx, s.db)
		_, err := exec.ExecContext(ctx, `
			INSERT INTO requests (`+requestColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			r.ID, r.DisplayID, r.ClientID, r.ServiceID, r.PricingPlanID, r.Amount, r.Description,
			string(r.Status), r.AssignedExpertID, string(r.Visibility), pq.Array(skillsOrEmpty(r.RequiredSkills)),
			nullString(r.InvoiceDisplayID), r.CreatedAt, r.UpdatedAt,
		)
		if err != nil {
			if postgres.IsUniqueViolation(err, displayIDConstraint) {
				return fmt.Errorf("insert request %s: %w", r.DisplayID, sentinel.ErrAlreadyUsed)
			}
			return fmt.Errorf("insert request: %w", err)
		}
		for _, b := range r.Batches {
			if err := s.insertBatch(ctx, exec, b); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) insertBatch(ctx context.Context, exec txcontext.Executor, b models.Batch) error {
	_, err := exec.ExecContext(ctx,
		`INSERT INTO batches (id, request_id, status, created_at) VALUES ($1, $2, $3, $4)`,
		b.ID, b.RequestID, string(b.Status), b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	for _, f := range b.Files {
		if err := s.insertFile(ctx, exec, f); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) insertFile(ctx context.Context, exec txcontext.Executor, f models.File) error {
	_, err := exec.ExecContext(ctx, `
		INSERT INTO files (id, batch_id, name, size, type, url, uploader_id, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		f.ID, f.BatchID, f.Name, f.Size, f.Type, f.URL, f.UploaderID, f.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

// LatestDisplayID relies on fixed-width ids so text order is numeric order.
func (s *PostgresStore) LatestDisplayID(ctx context.Context) (string, error) {
	var id string
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT display_id FROM requests ORDER BY display_id DESC LIMIT 1`,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest display id: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	r, err := scanRequest(txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("request %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find request: %w", err)
	}
	if err := s.loadBatches(ctx, []*models.Request{r}); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *PostgresStore) FindRecentByReference(ctx context.Context, clientID uuid.UUID, ref models.Reference, since time.Time) (*models.Request, error) {
	r, err := scanRequest(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		WHERE client_id = $1
		  AND service_id IS NOT DISTINCT FROM $2
		  AND pricing_plan_id IS NOT DISTINCT FROM $3
		  AND created_at >= $4
		ORDER BY created_at DESC
		LIMIT 1`,
		clientID, ref.ServiceID, ref.PricingPlanID, since,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find recent request: %w", err)
	}
	if err := s.loadBatches(ctx, []*models.Request{r}); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *PostgresStore) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Request, error) {
	return s.list(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		WHERE client_id = $1
		ORDER BY created_at DESC, display_id DESC`, clientID)
}

// ListOpen uses the array overlap operator against the GIN index.
func (s *PostgresStore) ListOpen(ctx context.Context, skills []string) ([]*models.Request, error) {
	return s.list(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		WHERE visibility = 'OPEN'
		  AND assigned_expert_id IS NULL
		  AND status NOT IN ('COMPLETED', 'CANCELLED')
		  AND required_skills && $1::text[]
		ORDER BY created_at DESC, display_id DESC`, pq.Array(skillsOrEmpty(skills)))
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Request, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Request, 0)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	if err := s.loadBatches(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update writes the mutable scalar fields. The amount guard makes the
// invoiced-amount freeze hold even against a concurrent cascade.
func (s *PostgresStore) Update(ctx context.Context, r *models.Request) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE requests
		SET amount = $2,
		    description = $3,
		    status = $4,
		    assigned_expert_id = $5,
		    visibility = $6,
		    required_skills = $7,
		    updated_at = $8
		WHERE id = $1
		  AND (invoice_display_id IS NULL OR amount = $2)`,
		r.ID, r.Amount, r.Description, string(r.Status), r.AssignedExpertID,
		string(r.Visibility), pq.Array(skillsOrEmpty(r.RequiredSkills)), r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update request rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}
	if _, err := s.FindByID(ctx, r.ID); err != nil {
		return err
	}
	return fmt.Errorf("amount of invoiced request %s: %w", r.ID, sentinel.ErrInvalidState)
}

// AcceptIfOpen is a single conditional UPDATE; exactly one concurrent caller
// can match the WHERE clause.
func (s *PostgresStore) AcceptIfOpen(ctx context.Context, id, expertID uuid.UUID, now time.Time) (*models.Request, error) {
	r, err := scanRequest(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `
		UPDATE requests
		SET assigned_expert_id = $2,
		    visibility = 'ASSIGNED',
		    status = CASE WHEN status = 'NEW' THEN 'MATCHED' ELSE status END,
		    updated_at = $3
		WHERE id = $1
		  AND assigned_expert_id IS NULL
		  AND visibility = 'OPEN'
		  AND status NOT IN ('COMPLETED', 'CANCELLED')
		RETURNING `+requestColumns,
		id, expertID, now,
	))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("accept request: %w", err)
		}
		if _, findErr := s.FindByID(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, fmt.Errorf("request %s: %w", id, sentinel.ErrAlreadyUsed)
	}
	if err := s.loadBatches(ctx, []*models.Request{r}); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *PostgresStore) AppendBatch(ctx context.Context, b models.Batch) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		exec := txcontext.Exec(ctx, s.db)
		if err := s.requireRequest(ctx, exec, b.RequestID); err != nil {
			return err
		}
		return s.insertBatch(ctx, exec, b)
	})
}

func (s *PostgresStore) AppendFile(ctx context.Context, requestID uuid.UUID, f models.File) error {
	exec := txcontext.Exec(ctx, s.db)
	var owner uuid.UUID
	err := exec.QueryRowContext(ctx, `SELECT request_id FROM batches WHERE id = $1`, f.BatchID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != requestID) {
		return fmt.Errorf("batch %s: %w", f.BatchID, sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("find batch: %w", err)
	}
	return s.insertFile(ctx, exec, f)
}

// SetInvoiceDisplayID is write-once.
func (s *PostgresStore) SetInvoiceDisplayID(ctx context.Context, requestID uuid.UUID, displayID string, now time.Time) error {
	exec := txcontext.Exec(ctx, s.db)
	res, err := exec.ExecContext(ctx, `
		UPDATE requests
		SET invoice_display_id = $2, updated_at = $3
		WHERE id = $1 AND (invoice_display_id IS NULL OR invoice_display_id = $2)`,
		requestID, displayID, now,
	)
	if err != nil {
		return fmt.Errorf("link invoice: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("link invoice rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}
	if err := s.requireRequest(ctx, exec, requestID); err != nil {
		return err
	}
	return fmt.Errorf("request %s invoice: %w", requestID, sentinel.ErrAlreadyUsed)
}

func (s *PostgresStore) requireRequest(ctx context.Context, exec txcontext.Executor, id uuid.UUID) error {
	var exists bool
	if err := exec.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM requests WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check request: %w", err)
	}
	if !exists {
		return fmt.Errorf("request %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

// loadBatches fills Batches and Files for rs with two queries.
func (s *PostgresStore) loadBatches(ctx context.Context, rs []*models.Request) error {
	if len(rs) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*models.Request, len(rs))
	ids := make([]string, 0, len(rs))
	for _, r := range rs {
		r.Batches = []models.Batch{}
		byID[r.ID] = r
		ids = append(ids, r.ID.String())
	}
	exec := txcontext.Exec(ctx, s.db)

	batchRows, err := exec.QueryContext(ctx, `
		SELECT id, request_id, status, created_at
		FROM batches
		WHERE request_id = ANY($1::uuid[])
		ORDER BY created_at, id`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("list batches: %w", err)
	}
	defer batchRows.Close()

	type batchRef struct {
		request *models.Request
		index   int
	}
	batches := make(map[uuid.UUID]batchRef)
	batchIDs := make([]string, 0)
	for batchRows.Next() {
		var (
			b      models.Batch
			status string
		)
		if err := batchRows.Scan(&b.ID, &b.RequestID, &status, &b.CreatedAt); err != nil {
			return fmt.Errorf("scan batch: %w", err)
		}
		b.Status = models.BatchStatus(status)
		b.Files = []models.File{}
		owner := byID[b.RequestID]
		owner.Batches = append(owner.Batches, b)
		batches[b.ID] = batchRef{request: owner, index: len(owner.Batches) - 1}
		batchIDs = append(batchIDs, b.ID.String())
	}
	if err := batchRows.Err(); err != nil {
		return fmt.Errorf("iterate batches: %w", err)
	}
	if len(batchIDs) == 0 {
		return nil
	}

	fileRows, err := exec.QueryContext(ctx, `
		SELECT id, batch_id, name, size, type, url, uploader_id, uploaded_at
		FROM files
		WHERE batch_id = ANY($1::uuid[])
		ORDER BY uploaded_at, id`, pq.Array(batchIDs))
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}
	defer fileRows.Close()

	for fileRows.Next() {
		var (
			f        models.File
			uploader uuid.NullUUID
		)
		if err := fileRows.Scan(&f.ID, &f.BatchID, &f.Name, &f.Size, &f.Type, &f.URL, &uploader, &f.UploadedAt); err != nil {
			return fmt.Errorf("scan file: %w", err)
		}
		if uploader.Valid {
			f.UploaderID = &uploader.UUID
		}
		ref := batches[f.BatchID]
		ref.request.Batches[ref.index].Files = append(ref.request.Batches[ref.index].Files, f)
	}
	if err := fileRows.Err(); err != nil {
		return fmt.Errorf("iterate files: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.Request, error) {
	var (
		r                                 models.Request
		serviceID, planID, assignedExpert uuid.NullUUID
		status, visibility                string
		skills                            []string
		invoiceID                         sql.NullString
	)
	err := row.Scan(
		&r.ID, &r.DisplayID, &r.ClientID, &serviceID, &planID, &r.Amount, &r.Description,
		&status, &assignedExpert, &visibility, pq.Array(&skills), &invoiceID,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if serviceID.Valid {
		r.ServiceID = &serviceID.UUID
	}
	if planID.Valid {
		r.PricingPlanID = &planID.UUID
	}
	if assignedExpert.Valid {
		r.AssignedExpertID = &assignedExpert.UUID
	}
	r.Status = models.Status(status)
	r.Visibility = models.Visibility(visibility)
	r.RequiredSkills = skillsOrEmpty(skills)
	r.InvoiceDisplayID = invoiceID.String
	return &r, nil
}

func skillsOrEmpty(skills []string) []string {
	if skills == nil {
		return []string{}
	}
	return skills
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
