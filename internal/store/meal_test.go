package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dukerupert/potluck/internal/model"
)

func createProduct(t *testing.T, db *sql.DB, name, category string) *model.Product {
	t.Helper()
	p, err := NewProductStore(db).Create(context.Background(), model.Product{HouseholdID: 1, Name: name, Category: category, KcalPerUnit: 100})
	if err != nil {
		t.Fatalf("create product %s: %v", name, err)
	}
	return p
}

func TestProductDefaultsUnit(t *testing.T) {
	db := setupTestDB(t)
	p := createProduct(t, db, "Jajka", "Nabiał")
	if p.UnitType != model.Unit100g {
		t.Errorf("unit = %q, want %q", p.UnitType, model.Unit100g)
	}
	if p.Protein != nil {
		t.Errorf("protein = %v, want nil", *p.Protein)
	}

	list, err := NewProductStore(db).ListByHousehold(context.Background(), 1)
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Jajka" {
		t.Errorf("products = %+v", list)
	}
}

func TestMealCategoriesRoundTrip(t *testing.T) {
	ms := NewMealStore(setupTestDB(t))
	ctx := context.Background()

	m, err := ms.Create(ctx, model.Meal{
		HouseholdID:           1,
		Name:                  "Jajecznica",
		PrimaryCategory:       model.CategoryBreakfast,
		AlternativeCategories: []model.MealCategory{model.CategoryDinner, model.CategorySnack},
	})
	if err != nil {
		t.Fatalf("create meal: %v", err)
	}
	if m.PrimaryCategory != model.CategoryBreakfast {
		t.Errorf("primary = %q", m.PrimaryCategory)
	}
	if len(m.AlternativeCategories) != 2 || m.AlternativeCategories[1] != model.CategorySnack {
		t.Errorf("alternatives = %v", m.AlternativeCategories)
	}

	plain, err := ms.Create(ctx, model.Meal{HouseholdID: 1, Name: "Kanapka"})
	if err != nil {
		t.Fatalf("create meal: %v", err)
	}
	if len(plain.AlternativeCategories) != 0 {
		t.Errorf("alternatives = %v, want none", plain.AlternativeCategories)
	}

	missing, err := ms.GetByID(ctx, 999)
	if err != nil {
		t.Fatalf("get meal: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing meal")
	}
}

func TestMealItemsAndOverrides(t *testing.T) {
	db := setupTestDB(t)
	ms := NewMealStore(db)
	ctx := context.Background()
	uid := createUser(t, db, "anna@example.com", "Anna")

	eggs := createProduct(t, db, "Jajka", "Nabiał")
	butter := createProduct(t, db, "Masło", "Nabiał")
	chives := createProduct(t, db, "Szczypiorek", "Warzywa")

	meal, err := ms.Create(ctx, model.Meal{HouseholdID: 1, Name: "Jajecznica", PrimaryCategory: model.CategoryBreakfast})
	if err != nil {
		t.Fatalf("create meal: %v", err)
	}
	item, err := ms.AddItem(ctx, meal.ID, eggs.ID, 2, model.UnitPiece)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if item.Product == nil || item.Product.Name != "Jajka" {
		t.Errorf("item product = %+v", item.Product)
	}
	if _, err := ms.AddItem(ctx, meal.ID, butter.ID, 0.1, model.Unit100g); err != nil {
		t.Fatalf("add item: %v", err)
	}

	items, err := ms.ListItems(ctx, meal.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 2 || items[0].ProductID != eggs.ID || items[1].Product.Category != "Nabiał" {
		t.Errorf("items = %+v", items)
	}

	overrides, err := ms.ListOverrides(ctx, meal.ID, uid)
	if err != nil {
		t.Fatalf("list overrides: %v", err)
	}
	if len(overrides) != 0 {
		t.Fatalf("overrides = %d, want 0", len(overrides))
	}

	err = ms.ReplaceOverrides(ctx, meal.ID, uid, []IngredientInput{
		{ProductID: eggs.ID, Amount: 3, UnitType: model.UnitPiece},
		{ProductID: chives.ID, Amount: 0.05, UnitType: model.Unit100g},
	})
	if err != nil {
		t.Fatalf("replace overrides: %v", err)
	}
	overrides, err = ms.ListOverrides(ctx, meal.ID, uid)
	if err != nil {
		t.Fatalf("list overrides: %v", err)
	}
	if len(overrides) != 2 || overrides[0].Amount != 3 || overrides[1].Product.Name != "Szczypiorek" {
		t.Errorf("overrides = %+v", overrides)
	}

	if err := ms.ReplaceOverrides(ctx, meal.ID, uid, nil); err != nil {
		t.Fatalf("clear overrides: %v", err)
	}
	overrides, err = ms.ListOverrides(ctx, meal.ID, uid)
	if err != nil {
		t.Fatalf("list overrides: %v", err)
	}
	if len(overrides) != 0 {
		t.Errorf("overrides after clear = %d, want 0", len(overrides))
	}
}

func TestCreateMealWithItems(t *testing.T) {
	db := setupTestDB(t)
	ms := NewMealStore(db)
	ctx := context.Background()
	oats := createProduct(t, db, "Płatki owsiane", "Zboża")
	milk := createProduct(t, db, "Mleko", "Nabiał")

	m, err := ms.CreateWithItems(ctx, model.Meal{HouseholdID: 1, Name: "Owsianka", PrimaryCategory: model.CategoryBreakfast},
		[]IngredientInput{
			{ProductID: oats.ID, Amount: 50, UnitType: model.Unit100g},
			{ProductID: milk.ID, Amount: 200, UnitType: model.Unit100g},
		})
	if err != nil {
		t.Fatalf("create meal: %v", err)
	}
	items, err := ms.ListItems(ctx, m.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}

	_, err = ms.CreateWithItems(ctx, model.Meal{HouseholdID: 1, Name: "Zupa"},
		[]IngredientInput{{ProductID: 9999, Amount: 1, UnitType: model.Unit100g}})
	if err == nil {
		t.Fatal("expected error for unknown product")
	}
	meals, err := ms.ListByHousehold(ctx, 1)
	if err != nil {
		t.Fatalf("list meals: %v", err)
	}
	if len(meals) != 1 {
		t.Errorf("meals = %d, want 1 after rollback", len(meals))
	}
}
