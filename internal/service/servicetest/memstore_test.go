package servicetest

import (
	"context"
	"testing"

	"backoffice-service/internal/models"
	"backoffice-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecrementStockClampsAtZero(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	_, err := m.CreateCompanyTable(ctx, "acme_corp")
	require.NoError(t, err)
	model := &models.Model{Name: "Shoe A", Quantity: 50, Packages: 5}
	require.NoError(t, m.CreateModel(ctx, "acme_corp", model))

	require.NoError(t, m.DecrementStock(ctx, "acme_corp", model.ID, 10, 1))
	got, err := m.GetModel(ctx, "acme_corp", model.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Quantity)
	assert.Equal(t, 4, got.Packages)

	require.NoError(t, m.DecrementStock(ctx, "acme_corp", model.ID, 1000, 99))
	got, err = m.GetModel(ctx, "acme_corp", model.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)
	assert.Equal(t, 0, got.Packages)

	assert.ErrorIs(t, m.DecrementStock(ctx, "acme_corp", 999, 1, 0), store.ErrNotFound)
	assert.ErrorIs(t, m.DecrementStock(ctx, "nope", model.ID, 1, 0), store.ErrTableNotFound)
}

func TestRenameTableWithoutMetadata(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()
	m.Tables["legacy_co"] = map[int64]*models.Model{}

	c, err := m.RenameCompanyTable(ctx, "legacy_co", "new_co")
	require.NoError(t, err)
	assert.Equal(t, "new_co", c.Name)
	assert.Contains(t, m.Meta, "new_co")
	assert.NotContains(t, m.Tables, "legacy_co")
}
