package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dukerupert/potluck/internal/model"
)

type planFixture struct {
	db      *sql.DB
	plans   *MealPlanStore
	anna    int64
	bartek  int64
	oatmeal int64
	soup    int64
}

func setupPlanFixture(t *testing.T) *planFixture {
	t.Helper()
	db := setupTestDB(t)
	ctx := context.Background()
	ms := NewMealStore(db)

	f := &planFixture{db: db, plans: NewMealPlanStore(db)}
	f.anna = createUser(t, db, "anna@example.com", "Anna")
	f.bartek = createUser(t, db, "bartek@example.com", "Bartek")

	oatmeal, err := ms.Create(ctx, model.Meal{HouseholdID: 1, Name: "Owsianka", PrimaryCategory: model.CategoryBreakfast})
	if err != nil {
		t.Fatalf("create meal: %v", err)
	}
	soup, err := ms.Create(ctx, model.Meal{HouseholdID: 1, Name: "Pomidorowa", PrimaryCategory: model.CategoryLunch})
	if err != nil {
		t.Fatalf("create meal: %v", err)
	}
	f.oatmeal, f.soup = oatmeal.ID, soup.ID
	return f
}

func TestSetMealUpsertsSlot(t *testing.T) {
	f := setupPlanFixture(t)
	ctx := context.Background()

	first, err := f.plans.SetMeal(ctx, 1, f.anna, "2024-05-06", model.CategoryBreakfast, f.oatmeal)
	if err != nil {
		t.Fatalf("set meal: %v", err)
	}
	if _, err := f.plans.SetStatus(ctx, first.ID, true, false); err != nil {
		t.Fatalf("set status: %v", err)
	}

	second, err := f.plans.SetMeal(ctx, 1, f.anna, "2024-05-06", model.CategoryBreakfast, f.soup)
	if err != nil {
		t.Fatalf("set meal: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("id = %d, want %d (same slot)", second.ID, first.ID)
	}
	if second.MealID != f.soup {
		t.Errorf("meal = %d, want %d", second.MealID, f.soup)
	}
	if !second.IsConsumed {
		t.Error("status flags should survive a meal change")
	}

	day, err := f.plans.ListDay(ctx, 1, f.anna, "2024-05-06")
	if err != nil {
		t.Fatalf("list day: %v", err)
	}
	if len(day) != 1 {
		t.Errorf("entries = %d, want 1", len(day))
	}
}

func TestListRangeOrderAndBounds(t *testing.T) {
	f := setupPlanFixture(t)
	ctx := context.Background()

	must := func(uid int64, date string, cat model.MealCategory, meal int64) {
		t.Helper()
		if _, err := f.plans.SetMeal(ctx, 1, uid, date, cat, meal); err != nil {
			t.Fatalf("set meal: %v", err)
		}
	}
	must(f.anna, "2024-05-07", model.CategoryLunch, f.soup)
	must(f.anna, "2024-05-07", model.CategoryBreakfast, f.oatmeal)
	must(f.bartek, "2024-05-06", model.CategoryLunch, f.soup)
	must(f.anna, "2024-05-09", model.CategoryBreakfast, f.oatmeal)

	got, err := f.plans.ListRange(ctx, 1, []int64{f.anna, f.bartek}, "2024-05-06", "2024-05-08")
	if err != nil {
		t.Fatalf("list range: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("entries = %d, want 3", len(got))
	}
	if got[0].UserID != f.bartek || got[1].MealType != model.CategoryBreakfast || got[2].MealType != model.CategoryLunch {
		t.Errorf("order = %+v", got)
	}

	only, err := f.plans.ListRange(ctx, 1, []int64{f.bartek}, "2024-05-01", "2024-05-31")
	if err != nil {
		t.Fatalf("list range: %v", err)
	}
	if len(only) != 1 {
		t.Errorf("bartek entries = %d, want 1", len(only))
	}

	none, err := f.plans.ListRange(ctx, 1, nil, "2024-05-01", "2024-05-31")
	if err != nil {
		t.Fatalf("list range: %v", err)
	}
	if none != nil {
		t.Errorf("no members = %v, want nil", none)
	}
}

func TestCopyDay(t *testing.T) {
	f := setupPlanFixture(t)
	ctx := context.Background()

	src, err := f.plans.SetMeal(ctx, 1, f.anna, "2024-05-06", model.CategoryBreakfast, f.oatmeal)
	if err != nil {
		t.Fatalf("set meal: %v", err)
	}
	if _, err := f.plans.SetStatus(ctx, src.ID, true, false); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if _, err := f.plans.SetMeal(ctx, 1, f.anna, "2024-05-06", model.CategoryLunch, f.soup); err != nil {
		t.Fatalf("set meal: %v", err)
	}
	if _, err := f.plans.SetMeal(ctx, 1, f.bartek, "2024-05-07", model.CategoryBreakfast, f.soup); err != nil {
		t.Fatalf("set meal: %v", err)
	}

	n, err := f.plans.CopyDay(ctx, 1, f.anna, "2024-05-06", f.bartek, "2024-05-07", false)
	if err != nil {
		t.Fatalf("copy day: %v", err)
	}
	if n != 1 {
		t.Errorf("copied = %d, want 1 (breakfast already planned)", n)
	}
	day, err := f.plans.ListDay(ctx, 1, f.bartek, "2024-05-07")
	if err != nil {
		t.Fatalf("list day: %v", err)
	}
	if len(day) != 2 || day[0].MealID != f.soup || day[1].MealID != f.soup {
		t.Errorf("day without replace = %+v", day)
	}

	n, err = f.plans.CopyDay(ctx, 1, f.anna, "2024-05-06", f.bartek, "2024-05-07", true)
	if err != nil {
		t.Fatalf("copy day: %v", err)
	}
	if n != 2 {
		t.Errorf("copied = %d, want 2", n)
	}
	day, err = f.plans.ListDay(ctx, 1, f.bartek, "2024-05-07")
	if err != nil {
		t.Fatalf("list day: %v", err)
	}
	if len(day) != 2 || day[0].MealID != f.oatmeal {
		t.Errorf("day with replace = %+v", day)
	}
	if day[0].IsConsumed {
		t.Error("copied entry should not be consumed")
	}
}

func TestMealPlanDelete(t *testing.T) {
	f := setupPlanFixture(t)
	ctx := context.Background()

	p, err := f.plans.SetMeal(ctx, 1, f.anna, "2024-05-06", model.CategoryBreakfast, f.oatmeal)
	if err != nil {
		t.Fatalf("set meal: %v", err)
	}
	if err := f.plans.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := f.plans.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}
