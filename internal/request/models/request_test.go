package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "expertdesk/pkg/domain-errors"
)

func TestRouting(t *testing.T) {
	now := time.Now()
	expert := uuid.New()

	t.Run("assign advances NEW to MATCHED", func(t *testing.T) {
		r := &Request{Status: StatusNew, Visibility: VisibilityOpen}
		require.NoError(t, r.AssignTo(expert, now))
		assert.Equal(t, StatusMatched, r.Status)
		assert.Equal(t, VisibilityAssigned, r.Visibility)
		assert.Equal(t, expert, *r.AssignedExpertID)
	})

	t.Run("assign keeps later statuses", func(t *testing.T) {
		r := &Request{Status: StatusInProgress}
		require.NoError(t, r.AssignTo(expert, now))
		assert.Equal(t, StatusInProgress, r.Status)
	})

	t.Run("publish clears the assignee", func(t *testing.T) {
		r := &Request{Status: StatusNew, AssignedExpertID: &expert, Visibility: VisibilityAssigned}
		require.NoError(t, r.OpenToPool([]string{"tax"}, now))
		assert.Nil(t, r.AssignedExpertID)
		assert.True(t, r.IsOpen())
		assert.Equal(t, []string{"tax"}, r.RequiredSkills)
	})

	t.Run("terminal requests cannot be published", func(t *testing.T) {
		r := &Request{Status: StatusCancelled}
		assert.ErrorIs(t, r.OpenToPool([]string{"tax"}, now), ErrInvalidTransition)
	})

	t.Run("second acceptance loses", func(t *testing.T) {
		r := &Request{Status: StatusNew, Visibility: VisibilityOpen}
		require.NoError(t, r.AcceptFromPool(expert, now))
		assert.ErrorIs(t, r.AcceptFromPool(uuid.New(), now), ErrAlreadyAssigned)
		assert.Equal(t, expert, *r.AssignedExpertID)
		assert.Equal(t, StatusMatched, r.Status)
	})
}

func TestClone(t *testing.T) {
	svc := uuid.New()
	r := &Request{
		ServiceID:      &svc,
		RequiredSkills: []string{"tax"},
		Batches:        []Batch{{ID: uuid.New(), Files: []File{{Name: "a.pdf"}}}},
	}
	c := r.Clone()
	c.RequiredSkills[0] = "audit"
	c.Batches[0].Files[0].Name = "b.pdf"
	*c.ServiceID = uuid.New()

	assert.Equal(t, "tax", r.RequiredSkills[0])
	assert.Equal(t, "a.pdf", r.Batches[0].Files[0].Name)
	assert.Equal(t, svc, *r.ServiceID)
}

func TestReferenceMatches(t *testing.T) {
	plan := uuid.New()
	other := uuid.New()
	a := Reference{PricingPlanID: &plan}

	assert.True(t, a.Matches(Reference{PricingPlanID: &plan}))
	assert.False(t, a.Matches(Reference{PricingPlanID: &other}))
	assert.False(t, a.Matches(Reference{ServiceID: &plan}))
}

func TestCreateRequestValidate(t *testing.T) {
	svc := uuid.New()
	plan := uuid.New()
	base := func() CreateRequest {
		return CreateRequest{ClientID: uuid.New(), ServiceID: &svc, Amount: decimal.NewFromInt(500)}
	}

	tests := []struct {
		name   string
		mutate func(*CreateRequest)
		ok     bool
	}{
		{name: "valid", mutate: func(*CreateRequest) {}, ok: true},
		{name: "missing client", mutate: func(c *CreateRequest) { c.ClientID = uuid.Nil }},
		{name: "no reference", mutate: func(c *CreateRequest) { c.ServiceID = nil }},
		{name: "both references", mutate: func(c *CreateRequest) { c.PricingPlanID = &plan }},
		{name: "negative amount", mutate: func(c *CreateRequest) { c.Amount = decimal.NewFromInt(-1) }},
		{name: "created matched", mutate: func(c *CreateRequest) { c.Status = StatusMatched }},
		{name: "file without url", mutate: func(c *CreateRequest) {
			c.Batches = []NewBatch{{Files: []NewFile{{Name: "a.pdf"}}}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := base()
			tt.mutate(&cmd)
			cmd.Normalize()
			err := cmd.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "got %v", err)
		})
	}
}

func TestNewRequest(t *testing.T) {
	now := time.Now()
	plan := uuid.New()
	cmd := &CreateRequest{
		ClientID:      uuid.New(),
		PricingPlanID: &plan,
		Amount:        decimal.NewFromInt(500),
		Batches:       []NewBatch{{Files: []NewFile{{Name: "brief.pdf", URL: "s3://b/brief.pdf"}}}},
	}
	cmd.Normalize()
	id := uuid.New()

	r := NewRequest(id, cmd, now)

	assert.Equal(t, StatusPendingPayment, r.Status)
	assert.Equal(t, VisibilityAssigned, r.Visibility)
	require.Len(t, r.Batches, 1)
	assert.Equal(t, id, r.Batches[0].RequestID)
	assert.Equal(t, BatchStatusOpen, r.Batches[0].Status)
	require.Len(t, r.Batches[0].Files, 1)
	assert.Equal(t, r.Batches[0].ID, r.Batches[0].Files[0].BatchID)
}
