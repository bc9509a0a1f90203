package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dErrors "expertdesk/pkg/domain-errors"
)

// CreateRequest is the service-level command for creating a Request.
type CreateRequest struct {
	ClientID      uuid.UUID
	ServiceID     *uuid.UUID
	PricingPlanID *uuid.UUID
	Amount        decimal.Decimal
	Description   string
	// Status is PENDING_PAYMENT for client orders; administrative creation
	// may start directly at NEW.
	Status  Status
	Batches []NewBatch
}

// NewBatch describes a batch supplied at creation or appended later.
type NewBatch struct {
	Status BatchStatus
	Files  []NewFile
}

// NewFile is file metadata supplied by an uploader.
type NewFile struct {
	Name       string
	Size       int64
	Type       string
	URL        string
	UploaderID *uuid.UUID
}

// Reference returns the catalogue reference of the command.
func (c *CreateRequest) Reference() Reference {
	return Reference{ServiceID: c.ServiceID, PricingPlanID: c.PricingPlanID}
}

// Normalize trims free text and fills defaults.
func (c *CreateRequest) Normalize() {
	c.Description = strings.TrimSpace(c.Description)
	if c.Status == "" {
		c.Status = StatusPendingPayment
	}
	for i := range c.Batches {
		c.Batches[i].Normalize()
	}
}

// Validate checks the create-time invariants.
func (c *CreateRequest) Validate() error {
	if c.ClientID == uuid.Nil {
		return dErrors.New(dErrors.CodeValidation, "clientId is required")
	}
	if (c.ServiceID == nil) == (c.PricingPlanID == nil) {
		return dErrors.New(dErrors.CodeValidation, "exactly one of serviceId or pricingPlanId is required")
	}
	if c.Amount.IsNegative() {
		return dErrors.New(dErrors.CodeValidation, "amount must not be negative")
	}
	if c.Status != StatusPendingPayment && c.Status != StatusNew {
		return dErrors.New(dErrors.CodeValidation, "status must be PENDING_PAYMENT or NEW at creation")
	}
	for i := range c.Batches {
		if err := c.Batches[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Normalize trims file metadata and defaults the batch status.
func (b *NewBatch) Normalize() {
	if b.Status == "" {
		b.Status = BatchStatusOpen
	}
	for i := range b.Files {
		b.Files[i].Name = strings.TrimSpace(b.Files[i].Name)
		b.Files[i].Type = strings.TrimSpace(b.Files[i].Type)
		b.Files[i].URL = strings.TrimSpace(b.Files[i].URL)
	}
}

// Validate checks batch and file metadata.
func (b *NewBatch) Validate() error {
	switch b.Status {
	case BatchStatusOpen, BatchStatusSubmitted, BatchStatusAccepted, BatchStatusRejected:
	default:
		return dErrors.New(dErrors.CodeValidation, "unknown batch status "+string(b.Status))
	}
	for i := range b.Files {
		if err := b.Files[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks file metadata.
func (f *NewFile) Validate() error {
	if f.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "file name is required")
	}
	if f.URL == "" {
		return dErrors.New(dErrors.CodeValidation, "file url is required")
	}
	if f.Size < 0 {
		return dErrors.New(dErrors.CodeValidation, "file size must not be negative")
	}
	return nil
}

// NewRequest builds an unsaved Request from a validated command. DisplayID is
// left empty for the allocator.
func NewRequest(id uuid.UUID, cmd *CreateRequest, now time.Time) *Request {
	r := &Request{
		ID:             id,
		ClientID:       cmd.ClientID,
		ServiceID:      cloneID(cmd.ServiceID),
		PricingPlanID:  cloneID(cmd.PricingPlanID),
		Amount:         cmd.Amount,
		Description:    cmd.Description,
		Status:         cmd.Status,
		Visibility:     VisibilityAssigned,
		RequiredSkills: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
		Batches:        make([]Batch, 0, len(cmd.Batches)),
	}
	for _, nb := range cmd.Batches {
		r.Batches = append(r.Batches, BuildBatch(uuid.New(), id, nb, now))
	}
	return r
}

// BuildBatch materializes a NewBatch with fresh file ids.
func BuildBatch(id, requestID uuid.UUID, nb NewBatch, now time.Time) Batch {
	b := Batch{
		ID:        id,
		RequestID: requestID,
		Status:    nb.Status,
		CreatedAt: now,
		Files:     make([]File, 0, len(nb.Files)),
	}
	for _, nf := range nb.Files {
		b.Files = append(b.Files, BuildFile(uuid.New(), id, nf, now))
	}
	return b
}

// BuildFile materializes file metadata.
func BuildFile(id, batchID uuid.UUID, nf NewFile, now time.Time) File {
	return File{
		ID:         id,
		BatchID:    batchID,
		Name:       nf.Name,
		Size:       nf.Size,
		Type:       nf.Type,
		URL:        nf.URL,
		UploaderID: cloneID(nf.UploaderID),
		UploadedAt: now,
	}
}
