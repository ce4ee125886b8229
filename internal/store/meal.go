package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/potluck/internal/model"
)

type MealStore struct {
	db *sql.DB
}

func NewMealStore(db *sql.DB) *MealStore {
	return &MealStore{db: db}
}

const mealCols = `id, household_id, name, description, primary_category, alternative_categories, created_by, created_at, updated_at`

func scanMeal(scanner interface{ Scan(...any) error }) (*model.Meal, error) {
	var m model.Meal
	var alt string
	var createdBy sql.NullInt64
	err := scanner.Scan(&m.ID, &m.HouseholdID, &m.Name, &m.Description, &m.PrimaryCategory, &alt, &createdBy, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.AlternativeCategories = splitCategories(alt)
	m.CreatedBy = nullInt64Ptr(createdBy)
	return &m, nil
}

func splitCategories(s string) []model.MealCategory {
	var out []model.MealCategory
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, model.MealCategory(part))
		}
	}
	return out
}

func joinCategories(cats []model.MealCategory) string {
	parts := make([]string, 0, len(cats))
	for _, c := range cats {
		parts = append(parts, string(c))
	}
	return strings.Join(parts, ",")
}

func (s *MealStore) Create(ctx context.Context, m model.Meal) (*model.Meal, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO meals (household_id, name, description, primary_category, alternative_categories, created_by) VALUES (?, ?, ?, ?, ?, ?)`,
		m.HouseholdID, m.Name, m.Description, m.PrimaryCategory, joinCategories(m.AlternativeCategories), int64PtrArg(m.CreatedBy),
	)
	if err != nil {
		return nil, fmt.Errorf("insert meal: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// CreateWithItems inserts the meal and its base ingredients in one
// transaction.
func (s *MealStore) CreateWithItems(ctx context.Context, m model.Meal, items []IngredientInput) (*model.Meal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO meals (household_id, name, description, primary_category, alternative_categories, created_by) VALUES (?, ?, ?, ?, ?, ?)`,
		m.HouseholdID, m.Name, m.Description, m.PrimaryCategory, joinCategories(m.AlternativeCategories), int64PtrArg(m.CreatedBy),
	)
	if err != nil {
		return nil, fmt.Errorf("insert meal: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	for _, it := range items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meal_items (meal_id, product_id, amount, unit_type) VALUES (?, ?, ?, ?)`,
			id, it.ProductID, it.Amount, it.UnitType,
		); err != nil {
			return nil, fmt.Errorf("insert meal item: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *MealStore) GetByID(ctx context.Context, id int64) (*model.Meal, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+mealCols+` FROM meals WHERE id = ?`, id)
	m, err := scanMeal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get meal: %w", err)
	}
	return m, nil
}

func (s *MealStore) ListByHousehold(ctx context.Context, householdID int64) ([]model.Meal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+mealCols+` FROM meals WHERE household_id = ? ORDER BY name ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list meals: %w", err)
	}
	defer rows.Close()

	var meals []model.Meal
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meal: %w", err)
		}
		meals = append(meals, *m)
	}
	return meals, rows.Err()
}

// --- Base items ---

func (s *MealStore) AddItem(ctx context.Context, mealID, productID int64, amount float64, unit model.UnitType) (*model.MealItem, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO meal_items (meal_id, product_id, amount, unit_type) VALUES (?, ?, ?, ?)`,
		mealID, productID, amount, unit,
	)
	if err != nil {
		return nil, fmt.Errorf("insert meal item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	items, err := s.listItems(ctx, `WHERE mi.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// ListItems returns the meal's base ingredients with their products.
func (s *MealStore) ListItems(ctx context.Context, mealID int64) ([]model.MealItem, error) {
	return s.listItems(ctx, `WHERE mi.meal_id = ?`, mealID)
}

func (s *MealStore) listItems(ctx context.Context, where string, args ...any) ([]model.MealItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT mi.id, mi.meal_id, mi.product_id, mi.amount, mi.unit_type, mi.created_at, `+prefixedProductCols+`
		 FROM meal_items mi
		 JOIN products p ON p.id = mi.product_id
		 `+where+`
		 ORDER BY mi.id ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list meal items: %w", err)
	}
	defer rows.Close()

	var items []model.MealItem
	for rows.Next() {
		var it model.MealItem
		var p model.Product
		var unitWeight, protein, fat, carbs sql.NullFloat64
		var createdBy sql.NullInt64
		dest := append([]any{&it.ID, &it.MealID, &it.ProductID, &it.Amount, &it.UnitType, &it.CreatedAt},
			productDest(&p, &unitWeight, &protein, &fat, &carbs, &createdBy)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan meal item: %w", err)
		}
		fillProductNulls(&p, unitWeight, protein, fat, carbs, createdBy)
		it.Product = &p
		items = append(items, it)
	}
	return items, rows.Err()
}

// --- Per-user overrides ---

// ListOverrides returns the user's personal ingredient list for the meal.
// An empty result means the user eats the base recipe.
func (s *MealStore) ListOverrides(ctx context.Context, mealID, userID int64) ([]model.MealItemOverride, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT o.id, o.meal_id, o.user_id, o.product_id, o.amount, o.unit_type, o.created_at, o.updated_at, `+prefixedProductCols+`
		 FROM meal_item_overrides o
		 JOIN products p ON p.id = o.product_id
		 WHERE o.meal_id = ? AND o.user_id = ?
		 ORDER BY o.id ASC`,
		mealID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	defer rows.Close()

	var overrides []model.MealItemOverride
	for rows.Next() {
		var o model.MealItemOverride
		var p model.Product
		var unitWeight, protein, fat, carbs sql.NullFloat64
		var createdBy sql.NullInt64
		dest := append([]any{&o.ID, &o.MealID, &o.UserID, &o.ProductID, &o.Amount, &o.UnitType, &o.CreatedAt, &o.UpdatedAt},
			productDest(&p, &unitWeight, &protein, &fat, &carbs, &createdBy)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		fillProductNulls(&p, unitWeight, protein, fat, carbs, createdBy)
		o.Product = &p
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// IngredientInput is one ingredient row of a base recipe or an override list.
type IngredientInput struct {
	ProductID int64
	Amount    float64
	UnitType  model.UnitType
}

// ReplaceOverrides swaps the user's whole override list for the meal in one
// transaction. An empty list removes the override and restores the base recipe.
func (s *MealStore) ReplaceOverrides(ctx context.Context, mealID, userID int64, items []IngredientInput) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM meal_item_overrides WHERE meal_id = ? AND user_id = ?`, mealID, userID); err != nil {
		return fmt.Errorf("delete overrides: %w", err)
	}
	for _, it := range items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meal_item_overrides (meal_id, user_id, product_id, amount, unit_type) VALUES (?, ?, ?, ?, ?)`,
			mealID, userID, it.ProductID, it.Amount, it.UnitType,
		); err != nil {
			return fmt.Errorf("insert override: %w", err)
		}
	}
	return tx.Commit()
}
