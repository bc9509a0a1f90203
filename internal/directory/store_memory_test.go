package directory

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expertdesk/pkg/platform/sentinel"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	t.Run("expert specializations are normalized", func(t *testing.T) {
		e := Expert{ID: uuid.New(), Name: "Dana", Specializations: []string{" Tax", "tax", "AUDIT "}}
		s.PutExpert(e)

		got, err := s.FindExpert(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"tax", "audit"}, got.Specializations)
	})

	t.Run("missing entities are not found", func(t *testing.T) {
		_, err := s.FindClient(ctx, uuid.New())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		_, err = s.FindService(ctx, uuid.New())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		_, err = s.FindPricingPlan(ctx, uuid.New())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestLoadSeed(t *testing.T) {
	ctx := context.Background()
	clientID := uuid.New()
	planID := uuid.New()
	seed := `{
		"clients": [{"id": "` + clientID.String() + `", "name": "Acme", "email": "ops@acme.test"}],
		"pricingPlans": [{"id": "` + planID.String() + `", "name": "Monthly", "price": "1200.00"}]
	}`

	s := NewInMemoryStore()
	require.NoError(t, s.LoadSeed(strings.NewReader(seed)))

	client, err := s.FindClient(ctx, clientID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", client.Name)

	plan, err := s.FindPricingPlan(ctx, planID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1200).Equal(plan.Price))

	assert.Error(t, s.LoadSeed(strings.NewReader("{")))
}
