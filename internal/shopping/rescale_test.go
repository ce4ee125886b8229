package shopping

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/potluck/internal/model"
	"github.com/dukerupert/potluck/internal/store"
)

func rescaleFixture(t *testing.T) (*fixture, model.DishKey) {
	t.Helper()
	f := newFixture()
	oats := product(1, "Płatki owsiane", model.Unit100g, "Zboża")
	milk := product(2, "Mleko", model.Unit100g, "Nabiał")
	salt := product(4, "Sól", model.UnitTeaspoon, "Przyprawy")

	dish := model.DishKey{MealID: 10, SourceUserID: userB}
	f.dishItem(10, userB, oats, 100, false)
	f.dishItem(10, userB, milk, 400, true)
	f.dishItem(10, userB, salt, 0.01, false)
	f.dishItem(10, userA, oats, 80, false)

	text := f.dishItem(10, userB, milk, 1, false)
	f.list.mu.Lock()
	for i := range f.list.items {
		if f.list.items[i].ID == text.ID {
			f.list.items[i].CustomAmountText = ptr("trochę")
		}
	}
	f.list.state = &model.ShoppingListState{
		HouseholdID: 1,
		Version:     2,
		MealServings: []model.MealServing{
			{MealID: 10, SourceUserID: ptr(userA), Servings: 1},
			{MealID: 10, SourceUserID: ptr(userB), Servings: 2},
		},
	}
	f.list.mu.Unlock()
	return f, dish
}

func listAmounts(f *fixture) map[int64]float64 {
	items, _ := f.list.ListItems(context.Background(), 1)
	out := make(map[int64]float64, len(items))
	for _, it := range items {
		out[it.ID] = it.Amount
	}
	return out
}

func TestRescaleProportional(t *testing.T) {
	f, dish := rescaleFixture(t)

	res, err := f.svc.Rescale(context.Background(), RescaleRequest{HouseholdID: 1, UserID: userA, Dish: dish, Servings: 3})
	require.NoError(t, err)
	assert.False(t, res.NoOp)
	assert.Equal(t, 2.0, res.From)
	assert.Len(t, res.Updated, 3)

	assert.Equal(t, map[int64]float64{
		1: 150,
		2: 600,
		3: 0.02, // 0.015 rounds half away from zero
		4: 80,
		5: 1,
	}, listAmounts(f))

	state, _ := f.list.GetState(context.Background(), 1)
	assert.Equal(t, 3.0, state.Servings(dish))
	assert.Equal(t, 1.0, state.Servings(model.DishKey{MealID: 10, SourceUserID: userA}))
	assert.Equal(t, int64(3), state.Version)
	assert.Contains(t, f.notes.types(), "shopping_list_item_rescaled")
}

func TestRescaleClampsToMinimum(t *testing.T) {
	f, dish := rescaleFixture(t)

	_, err := f.svc.Rescale(context.Background(), RescaleRequest{HouseholdID: 1, Dish: dish, Servings: 0.5})
	require.NoError(t, err)

	got := listAmounts(f)
	assert.Equal(t, 25.0, got[1])
	assert.Equal(t, 0.01, got[3])
}

func TestRescaleNoOp(t *testing.T) {
	f, dish := rescaleFixture(t)
	before := listAmounts(f)

	res, err := f.svc.Rescale(context.Background(), RescaleRequest{HouseholdID: 1, Dish: dish, Servings: 2.00005})
	require.NoError(t, err)
	assert.True(t, res.NoOp)
	assert.Equal(t, before, listAmounts(f))
	assert.Equal(t, 0, f.list.applies)
	assert.Equal(t, int64(2), f.list.state.Version)
	assert.Empty(t, f.notes.types())
}

func TestRescaleUnknownDish(t *testing.T) {
	f, _ := rescaleFixture(t)
	before := listAmounts(f)
	ghost := model.DishKey{MealID: 999, SourceUserID: 777}

	_, err := f.svc.Rescale(context.Background(), RescaleRequest{HouseholdID: 1, Dish: ghost, Servings: 3})
	require.ErrorIs(t, err, ErrNoItems)
	assert.Equal(t, 0, f.list.applies)
	assert.Equal(t, int64(2), f.list.state.Version)
	assert.Equal(t, 1.0, f.list.state.Servings(ghost))
	assert.Len(t, f.list.state.MealServings, 2)
	assert.Equal(t, before, listAmounts(f))
	assert.Empty(t, f.notes.types())
}

func TestRescaleDefaultsToOneServing(t *testing.T) {
	f := newFixture()
	oats := product(1, "Płatki owsiane", model.Unit100g, "Zboża")
	it := f.dishItem(10, userA, oats, 80, false)

	_, err := f.svc.Rescale(context.Background(), RescaleRequest{HouseholdID: 1, Dish: model.DishKey{MealID: 10, SourceUserID: userA}, Servings: 1.5})
	require.NoError(t, err)
	assert.Equal(t, 120.0, listAmounts(f)[it.ID])
	assert.Equal(t, 1.5, f.list.state.Servings(model.DishKey{MealID: 10, SourceUserID: userA}))
}

func TestRescaleRejectsInvalidServings(t *testing.T) {
	f, dish := rescaleFixture(t)
	for _, v := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := f.svc.Rescale(context.Background(), RescaleRequest{HouseholdID: 1, Dish: dish, Servings: v})
		assert.ErrorIs(t, err, ErrInvalidServings, "servings %v", v)
	}
	assert.Equal(t, 0, f.list.applies)
}

func TestRescaleRetriesOnceOnConflict(t *testing.T) {
	f, dish := rescaleFixture(t)
	f.list.conflicts = 1

	_, err := f.svc.Rescale(context.Background(), RescaleRequest{HouseholdID: 1, Dish: dish, Servings: 4})
	require.NoError(t, err)
	assert.Equal(t, 2, f.list.applies)
	assert.Equal(t, 200.0, listAmounts(f)[1])
}

func TestRescaleSurfacesRepeatedConflict(t *testing.T) {
	f, dish := rescaleFixture(t)
	f.list.conflicts = 2
	before := listAmounts(f)

	_, err := f.svc.Rescale(context.Background(), RescaleRequest{HouseholdID: 1, Dish: dish, Servings: 4})
	assert.ErrorIs(t, err, store.ErrVersionConflict)
	assert.Equal(t, before, listAmounts(f))
}

func TestRescaleStoreFailure(t *testing.T) {
	f, dish := rescaleFixture(t)
	f.list.applyErr = errors.New("database is locked")
	before := listAmounts(f)

	_, err := f.svc.Rescale(context.Background(), RescaleRequest{HouseholdID: 1, Dish: dish, Servings: 4})
	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "rescale: apply", se.Op)
	assert.Equal(t, before, listAmounts(f))
	assert.Equal(t, 2.0, f.list.state.Servings(dish))
}

func TestScaleAmount(t *testing.T) {
	tests := []struct {
		amount, from, to, want float64
	}{
		{100, 1, 2, 200},
		{100, 3, 4, 133.33},
		{0.3, 3, 1, 0.1},
		{0.01, 2, 1, 0.01},
		{0.02, 100, 1, 0.01},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ScaleAmount(tt.amount, tt.from, tt.to), "%v * %v/%v", tt.amount, tt.to, tt.from)
	}
}
