package handler

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"expertdesk/internal/request/models"
	dErrors "expertdesk/pkg/domain-errors"
)

// CreateRequestBody is the POST /requests payload.
type CreateRequestBody struct {
	ClientID      uuid.UUID       `json:"clientId"`
	ServiceID     *uuid.UUID      `json:"serviceId,omitempty"`
	PricingPlanID *uuid.UUID      `json:"pricingPlanId,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	Status        string          `json:"status,omitempty"`
	Batches       []BatchBody     `json:"batches,omitempty"`
}

type BatchBody struct {
	Status string     `json:"status,omitempty"`
	Files  []FileBody `json:"files,omitempty"`
}

type FileBody struct {
	Name       string     `json:"name"`
	Size       int64      `json:"size"`
	Type       string     `json:"type"`
	URL        string     `json:"url"`
	UploaderID *uuid.UUID `json:"uploaderId,omitempty"`
}

func (b *CreateRequestBody) Validate() error {
	if b.ClientID == uuid.Nil {
		return dErrors.New(dErrors.CodeValidation, "clientId is required")
	}
	if b.ServiceID == nil && b.PricingPlanID == nil {
		return dErrors.New(dErrors.CodeValidation, "serviceId or pricingPlanId is required")
	}
	return nil
}

// ToCommand converts the body; the service normalizes and validates it.
func (b *CreateRequestBody) ToCommand() *models.CreateRequest {
	cmd := &models.CreateRequest{
		ClientID:      b.ClientID,
		ServiceID:     b.ServiceID,
		PricingPlanID: b.PricingPlanID,
		Amount:        b.Amount,
		Description:   b.Description,
		Status:        models.Status(strings.ToUpper(strings.TrimSpace(b.Status))),
	}
	for i := range b.Batches {
		cmd.Batches = append(cmd.Batches, b.Batches[i].toNewBatch())
	}
	return cmd
}

func (b *BatchBody) Validate() error {
	nb := b.toNewBatch()
	nb.Normalize()
	return nb.Validate()
}

func (b *BatchBody) toNewBatch() models.NewBatch {
	nb := models.NewBatch{Status: models.BatchStatus(strings.ToUpper(strings.TrimSpace(b.Status)))}
	for _, f := range b.Files {
		nb.Files = append(nb.Files, f.toNewFile())
	}
	return nb
}

func (f *FileBody) Validate() error {
	nf := f.toNewFile()
	return nf.Validate()
}

func (f FileBody) toNewFile() models.NewFile {
	return models.NewFile{
		Name:       f.Name,
		Size:       f.Size,
		Type:       f.Type,
		URL:        f.URL,
		UploaderID: f.UploaderID,
	}
}

// UpdateRequestBody is the PATCH /requests/{id} payload.
type UpdateRequestBody struct {
	Description *string          `json:"description,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
}

func (b *UpdateRequestBody) Validate() error {
	if b.Description == nil && b.Amount == nil {
		return dErrors.New(dErrors.CodeValidation, "description or amount is required")
	}
	return nil
}

type TransitionBody struct {
	Status string `json:"status"`
}

func (b *TransitionBody) Validate() error {
	b.Status = strings.ToUpper(strings.TrimSpace(b.Status))
	if _, err := models.ParseStatus(b.Status); err != nil {
		return dErrors.New(dErrors.CodeValidation, err.Error())
	}
	return nil
}

// ExpertBody names the expert for assign and accept.
type ExpertBody struct {
	ExpertID uuid.UUID `json:"expertId"`
}

func (b *ExpertBody) Validate() error {
	if b.ExpertID == uuid.Nil {
		return dErrors.New(dErrors.CodeValidation, "expertId is required")
	}
	return nil
}

type PublishBody struct {
	RequiredSkills []string `json:"requiredSkills"`
}

func (b *PublishBody) Validate() error {
	if len(b.RequiredSkills) == 0 {
		return dErrors.New(dErrors.CodeValidation, "requiredSkills must not be empty")
	}
	return nil
}
