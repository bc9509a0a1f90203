package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request is the work order aggregate.
//
// Invariants:
//   - DisplayID is unique per prefix and never changes after creation
//   - exactly one of ServiceID and PricingPlanID is set
//   - AssignedExpertID is nil while Visibility is OPEN
//   - Amount is frozen once an invoice references the request
//   - requests are never deleted, only moved to CANCELLED
type Request struct {
	ID               uuid.UUID       `json:"id"`
	DisplayID        string          `json:"displayId"`
	ClientID         uuid.UUID       `json:"clientId"`
	ServiceID        *uuid.UUID      `json:"serviceId,omitempty"`
	PricingPlanID    *uuid.UUID      `json:"pricingPlanId,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Description      string          `json:"description"`
	Status           Status          `json:"status"`
	AssignedExpertID *uuid.UUID      `json:"assignedExpertId,omitempty"`
	Visibility       Visibility      `json:"visibility"`
	RequiredSkills   []string        `json:"requiredSkills"`
	InvoiceDisplayID string          `json:"invoiceDisplayId,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	Batches          []Batch         `json:"batches"`
}

// BatchStatus tracks review of a delivery batch.
type BatchStatus string

const (
	BatchStatusOpen      BatchStatus = "OPEN"
	BatchStatusSubmitted BatchStatus = "SUBMITTED"
	BatchStatusAccepted  BatchStatus = "ACCEPTED"
	BatchStatusRejected  BatchStatus = "REJECTED"
)

// Batch groups files delivered together; it belongs to exactly one Request.
type Batch struct {
	ID        uuid.UUID   `json:"id"`
	RequestID uuid.UUID   `json:"requestId"`
	Status    BatchStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	Files     []File      `json:"files"`
}

// File is metadata for an uploaded object; the bytes live in external storage.
type File struct {
	ID         uuid.UUID  `json:"id"`
	BatchID    uuid.UUID  `json:"batchId"`
	Name       string     `json:"name"`
	Size       int64      `json:"size"`
	Type       string     `json:"type"`
	URL        string     `json:"url"`
	UploaderID *uuid.UUID `json:"uploaderId,omitempty"`
	UploadedAt time.Time  `json:"uploadedAt"`
}

// Reference is the catalogue item a Request was ordered against.
type Reference struct {
	ServiceID     *uuid.UUID
	PricingPlanID *uuid.UUID
}

// Key renders the reference for in-flight dedup keys and logs.
func (r Reference) Key() string {
	switch {
	case r.PricingPlanID != nil:
		return "plan:" + r.PricingPlanID.String()
	case r.ServiceID != nil:
		return "service:" + r.ServiceID.String()
	default:
		return "none"
	}
}

// Matches reports whether r points at the same catalogue item as other.
func (r Reference) Matches(other Reference) bool {
	return sameID(r.ServiceID, other.ServiceID) && sameID(r.PricingPlanID, other.PricingPlanID)
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Reference returns the catalogue reference of the request.
func (r *Request) Reference() Reference {
	return Reference{ServiceID: r.ServiceID, PricingPlanID: r.PricingPlanID}
}

// HasInvoice reports whether the invoice cascade has linked an invoice.
func (r *Request) HasInvoice() bool {
	return r.InvoiceDisplayID != ""
}

// FindBatch returns the batch with id, if it belongs to the request.
func (r *Request) FindBatch(id uuid.UUID) (*Batch, bool) {
	for i := range r.Batches {
		if r.Batches[i].ID == id {
			return &r.Batches[i], true
		}
	}
	return nil, false
}

// TransitionTo moves the request along the lifecycle graph. Writing the
// current status again is accepted and leaves the request untouched.
func (r *Request) TransitionTo(next Status, now time.Time) error {
	if r.Status == next {
		return nil
	}
	if !r.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, next)
	}
	r.Status = next
	r.UpdatedAt = now
	return nil
}

// Reactivate is the only way out of CANCELLED; it always lands on NEW.
func (r *Request) Reactivate(now time.Time) error {
	if r.Status != StatusCancelled {
		return fmt.Errorf("%w: only cancelled requests can be reactivated (status %s)", ErrInvalidTransition, r.Status)
	}
	r.Status = StatusNew
	r.UpdatedAt = now
	return nil
}

// AssignTo binds the request privately to one expert, advancing NEW to MATCHED.
func (r *Request) AssignTo(expertID uuid.UUID, now time.Time) error {
	if r.Status.IsTerminal() {
		return fmt.Errorf("%w: cannot assign a %s request", ErrInvalidTransition, r.Status)
	}
	id := expertID
	r.AssignedExpertID = &id
	r.Visibility = VisibilityAssigned
	if r.Status == StatusNew {
		r.Status = StatusMatched
	}
	r.UpdatedAt = now
	return nil
}

// OpenToPool broadcasts the request to experts holding any of skills.
// skills must already be normalized.
func (r *Request) OpenToPool(skills []string, now time.Time) error {
	if !r.Status.IsRoutable() {
		return fmt.Errorf("%w: cannot publish a %s request to the pool", ErrInvalidTransition, r.Status)
	}
	r.Visibility = VisibilityOpen
	r.AssignedExpertID = nil
	r.RequiredSkills = append([]string(nil), skills...)
	r.UpdatedAt = now
	return nil
}

// AcceptFromPool applies a pool acceptance. Stores call it only after
// verifying the request is still open and unassigned under their own lock or
// conditional write.
func (r *Request) AcceptFromPool(expertID uuid.UUID, now time.Time) error {
	if r.Visibility != VisibilityOpen || r.AssignedExpertID != nil {
		return ErrAlreadyAssigned
	}
	id := expertID
	r.AssignedExpertID = &id
	r.Visibility = VisibilityAssigned
	if r.Status == StatusNew {
		r.Status = StatusMatched
	}
	r.UpdatedAt = now
	return nil
}

// IsOpen reports whether the request is waiting in the pool.
func (r *Request) IsOpen() bool {
	return r.Visibility == VisibilityOpen && r.AssignedExpertID == nil && !r.Status.IsTerminal()
}

// Clone returns a deep copy so stores never share slices with callers.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := *r
	c.ServiceID = cloneID(r.ServiceID)
	c.PricingPlanID = cloneID(r.PricingPlanID)
	c.AssignedExpertID = cloneID(r.AssignedExpertID)
	if r.RequiredSkills != nil {
		c.RequiredSkills = append([]string(nil), r.RequiredSkills...)
	}
	if r.Batches != nil {
		c.Batches = make([]Batch, len(r.Batches))
		for i := range r.Batches {
			c.Batches[i] = r.Batches[i].Clone()
		}
	}
	return &c
}

// Clone returns a deep copy of the batch.
func (b Batch) Clone() Batch {
	c := b
	if b.Files != nil {
		c.Files = make([]File, len(b.Files))
		for i := range b.Files {
			c.Files[i] = b.Files[i]
			c.Files[i].UploaderID = cloneID(b.Files[i].UploaderID)
		}
	}
	return c
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
