package shopping

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/potluck/internal/model"
)

func TestResolveUsesOnlyOverrides(t *testing.T) {
	ings := newFakeIngredients()
	oats := product(1, "Płatki owsiane", model.Unit100g, "Zboża")
	milk := product(2, "Mleko", model.Unit100g, "Nabiał")
	honey := product(3, "Miód", model.UnitTeaspoon, "")
	ings.addBase(10, oats, 50)
	ings.addBase(10, milk, 200)
	ings.addBase(10, honey, 2)
	ings.addOverride(10, 1, oats, 80)

	got, overridden, err := NewResolver(ings).Resolve(context.Background(), 10, 1)
	require.NoError(t, err)
	assert.True(t, overridden)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ProductID)
	assert.Equal(t, 80.0, got[0].Amount)
}

func TestResolveFallsBackToBase(t *testing.T) {
	ings := newFakeIngredients()
	oats := product(1, "Płatki owsiane", model.Unit100g, "Zboża")
	milk := product(2, "Mleko", model.Unit100g, "Nabiał")
	ings.addBase(10, oats, 50)
	ings.addBase(10, milk, 200)
	ings.addOverride(10, 1, oats, 80)

	got, overridden, err := NewResolver(ings).Resolve(context.Background(), 10, 2)
	require.NoError(t, err)
	assert.False(t, overridden)
	require.Len(t, got, 2)
	assert.Equal(t, 50.0, got[0].Amount)
	assert.Equal(t, "Mleko", got[1].Product.Name)
}

func TestResolveError(t *testing.T) {
	ings := newFakeIngredients()
	boom := errors.New("connection reset")
	ings.err = boom

	_, _, err := NewResolver(ings).Resolve(context.Background(), 10, 1)
	assert.ErrorIs(t, err, boom)
}
