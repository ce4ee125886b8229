package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/potluck/internal/model"
)

// ErrVersionConflict is returned when a shopping list state write was based on
// a version that another writer has since replaced.
var ErrVersionConflict = errors.New("shopping list state was modified concurrently")

type ShoppingStore struct {
	db *sql.DB
}

func NewShoppingStore(db *sql.DB) *ShoppingStore {
	return &ShoppingStore{db: db}
}

// --- Items ---

const shoppingItemSelect = `SELECT i.id, i.household_id, i.product_id, i.meal_id, i.source_user_id, i.name, i.amount,
	i.unit_type, i.custom_amount_text, i.is_checked, i.checked_by, i.checked_at, i.added_by, i.created_at,
	COALESCE(p.category, ''), COALESCE(m.name, '')
	FROM shopping_list_items i
	LEFT JOIN products p ON p.id = i.product_id
	LEFT JOIN meals m ON m.id = i.meal_id`

func scanShoppingItem(scanner interface{ Scan(...any) error }) (*model.ShoppingListItem, error) {
	var item model.ShoppingListItem
	var productID, mealID, sourceUserID, checkedBy, addedBy sql.NullInt64
	var customText sql.NullString
	var checkedAt sql.NullTime
	var checked int

	err := scanner.Scan(
		&item.ID, &item.HouseholdID, &productID, &mealID, &sourceUserID, &item.Name, &item.Amount,
		&item.UnitType, &customText, &checked, &checkedBy, &checkedAt, &addedBy, &item.CreatedAt,
		&item.ProductCategory, &item.MealName,
	)
	if err != nil {
		return nil, err
	}

	item.ProductID = nullInt64Ptr(productID)
	item.MealID = nullInt64Ptr(mealID)
	item.SourceUserID = nullInt64Ptr(sourceUserID)
	item.CustomAmountText = nullStringPtr(customText)
	item.IsChecked = checked != 0
	item.CheckedBy = nullInt64Ptr(checkedBy)
	if checkedAt.Valid {
		item.CheckedAt = &checkedAt.Time
	}
	item.AddedBy = nullInt64Ptr(addedBy)
	return &item, nil
}

func (s *ShoppingStore) GetItemByID(ctx context.Context, id int64) (*model.ShoppingListItem, error) {
	row := s.db.QueryRowContext(ctx, shoppingItemSelect+` WHERE i.id = ?`, id)
	item, err := scanShoppingItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shopping item: %w", err)
	}
	return item, nil
}

// ListItems returns every item of the household, newest first.
func (s *ShoppingStore) ListItems(ctx context.Context, householdID int64) ([]model.ShoppingListItem, error) {
	rows, err := s.db.QueryContext(ctx,
		shoppingItemSelect+` WHERE i.household_id = ? ORDER BY i.created_at DESC, i.id ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list shopping items: %w", err)
	}
	defer rows.Close()

	var items []model.ShoppingListItem
	for rows.Next() {
		item, err := scanShoppingItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shopping item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *ShoppingStore) CountItems(ctx context.Context, householdID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM shopping_list_items WHERE household_id = ?`,
		householdID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count shopping items: %w", err)
	}
	return count, nil
}

// CreateCustomItem adds a free-form item that belongs to no dish. When
// customText is set, amount is a placeholder.
func (s *ShoppingStore) CreateCustomItem(ctx context.Context, householdID int64, name string, amount float64, customText *string, addedBy *int64) (*model.ShoppingListItem, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO shopping_list_items (household_id, name, amount, custom_amount_text, added_by) VALUES (?, ?, ?, ?, ?)`,
		householdID, name, amount, stringPtrArg(customText), int64PtrArg(addedBy),
	)
	if err != nil {
		return nil, fmt.Errorf("insert custom item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetItemByID(ctx, id)
}

func idArgs(householdID int64, ids []int64) (string, []any) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, householdID)
	for _, id := range ids {
		args = append(args, id)
	}
	return placeholders, args
}

// SetChecked applies one checked state to every listed item in a single
// statement. Checking records who and when; unchecking clears both.
func (s *ShoppingStore) SetChecked(ctx context.Context, householdID int64, ids []int64, checked bool, by *int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders, idParams := idArgs(householdID, ids)

	var checkedBy sql.NullInt64
	var checkedAt sql.NullTime
	if checked {
		checkedBy = int64PtrArg(by)
		checkedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}
	args := append([]any{boolToInt(checked), checkedBy, checkedAt}, idParams...)

	result, err := s.db.ExecContext(ctx,
		`UPDATE shopping_list_items SET is_checked = ?, checked_by = ?, checked_at = ?
		 WHERE household_id = ? AND id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("set checked: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (s *ShoppingStore) DeleteItems(ctx context.Context, householdID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders, args := idArgs(householdID, ids)
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM shopping_list_items WHERE household_id = ? AND id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("delete shopping items: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (s *ShoppingStore) ClearChecked(ctx context.Context, householdID int64) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM shopping_list_items WHERE household_id = ? AND is_checked = 1`,
		householdID,
	)
	if err != nil {
		return 0, fmt.Errorf("clear checked: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}

// --- State ---

func scanState(scanner interface{ Scan(...any) error }) (*model.ShoppingListState, error) {
	var st model.ShoppingListState
	var start, end sql.NullString
	var servings string
	var updatedBy sql.NullInt64
	err := scanner.Scan(&st.HouseholdID, &start, &end, &servings, &st.Version, &updatedBy, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	st.GeneratedStartDate = nullStringPtr(start)
	st.GeneratedEndDate = nullStringPtr(end)
	st.UpdatedBy = nullInt64Ptr(updatedBy)
	if err := json.Unmarshal([]byte(servings), &st.MealServings); err != nil {
		return nil, fmt.Errorf("decode meal servings: %w", err)
	}
	return &st, nil
}

const stateCols = `household_id, generated_start_date, generated_end_date, meal_servings, version, updated_by, updated_at`

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getState(ctx context.Context, q queryRower, householdID int64) (*model.ShoppingListState, error) {
	row := q.QueryRowContext(ctx, `SELECT `+stateCols+` FROM shopping_list_state WHERE household_id = ?`, householdID)
	st, err := scanState(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shopping list state: %w", err)
	}
	return st, nil
}

// GetState returns the household's list state, or nil if no list was ever generated.
func (s *ShoppingStore) GetState(ctx context.Context, householdID int64) (*model.ShoppingListState, error) {
	return getState(ctx, s.db, householdID)
}

// writeState stores servings and the optional date range, bumping the
// version. expectedVersion 0 means "no row yet"; any other value must match
// the stored version or ErrVersionConflict is returned. A nil range keeps the
// stored dates.
func writeState(ctx context.Context, tx *sql.Tx, householdID int64, start, end *string, servings []model.MealServing, expectedVersion int64, by *int64) error {
	if servings == nil {
		servings = []model.MealServing{}
	}
	encoded, err := json.Marshal(servings)
	if err != nil {
		return fmt.Errorf("encode meal servings: %w", err)
	}
	now := time.Now().UTC()

	var result sql.Result
	if expectedVersion == 0 {
		result, err = tx.ExecContext(ctx,
			`INSERT INTO shopping_list_state (household_id, generated_start_date, generated_end_date, meal_servings, version, updated_by, updated_at)
			 VALUES (?, ?, ?, ?, 1, ?, ?)
			 ON CONFLICT (household_id) DO NOTHING`,
			householdID, stringPtrArg(start), stringPtrArg(end), string(encoded), int64PtrArg(by), now,
		)
	} else {
		result, err = tx.ExecContext(ctx,
			`UPDATE shopping_list_state SET
			   generated_start_date = COALESCE(?, generated_start_date),
			   generated_end_date = COALESCE(?, generated_end_date),
			   meal_servings = ?, version = version + 1, updated_by = ?, updated_at = ?
			 WHERE household_id = ? AND version = ?`,
			stringPtrArg(start), stringPtrArg(end), string(encoded), int64PtrArg(by), now, householdID, expectedVersion,
		)
	}
	if err != nil {
		return fmt.Errorf("write shopping list state: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}

// --- Generation ---

// NewListItem is one aggregated (meal, member, product) bucket to insert.
type NewListItem struct {
	ProductID    int64
	MealID       int64
	SourceUserID int64
	Name         string
	Amount       float64
	UnitType     string
}

// GeneratedList is the complete write of one generation run.
type GeneratedList struct {
	HouseholdID   int64
	ClearExisting bool
	Items         []NewListItem
	StartDate     string
	EndDate       string
	Servings      []model.MealServing
	AddedBy       *int64
}

// SaveGeneratedList writes a generation run in one transaction: optionally
// delete the household's items, insert the new ones, and replace the state's
// date range and multiplier map wholesale.
func (s *ShoppingStore) SaveGeneratedList(ctx context.Context, g GeneratedList) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if g.ClearExisting {
		if _, err := tx.ExecContext(ctx, `DELETE FROM shopping_list_items WHERE household_id = ?`, g.HouseholdID); err != nil {
			return fmt.Errorf("clear items: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO shopping_list_items (household_id, product_id, meal_id, source_user_id, name, amount, unit_type, custom_amount_text, is_checked, added_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, NULL, 0, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, it := range g.Items {
		if _, err := stmt.ExecContext(ctx,
			g.HouseholdID, it.ProductID, it.MealID, it.SourceUserID, it.Name, it.Amount, it.UnitType, int64PtrArg(g.AddedBy),
		); err != nil {
			return fmt.Errorf("insert item %q: %w", it.Name, err)
		}
	}

	current, err := getState(ctx, tx, g.HouseholdID)
	if err != nil {
		return err
	}
	var version int64
	if current != nil {
		version = current.Version
	}
	if err := writeState(ctx, tx, g.HouseholdID, &g.StartDate, &g.EndDate, g.Servings, version, g.AddedBy); err != nil {
		return err
	}

	return tx.Commit()
}

// --- Dish operations ---

// AmountUpdate sets one item's amount.
type AmountUpdate struct {
	ItemID int64
	Amount float64
}

// DishRescale is the write of one serving change for a dish group.
type DishRescale struct {
	HouseholdID     int64
	Dish            model.DishKey
	Servings        float64
	Updates         []AmountUpdate
	ExpectedVersion int64
	UpdatedBy       *int64
}

// ApplyRescale updates the dish's item amounts and patches the dish's entry
// in the multiplier map, all in one transaction. Other dishes' entries are
// preserved. On ErrVersionConflict nothing is written.
func (s *ShoppingStore) ApplyRescale(ctx context.Context, r DishRescale) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, u := range r.Updates {
		result, err := tx.ExecContext(ctx,
			`UPDATE shopping_list_items SET amount = ?
			 WHERE id = ? AND household_id = ? AND meal_id = ? AND source_user_id = ? AND custom_amount_text IS NULL`,
			u.Amount, u.ItemID, r.HouseholdID, r.Dish.MealID, r.Dish.SourceUserID,
		)
		if err != nil {
			return fmt.Errorf("update amount of item %d: %w", u.ItemID, err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("rows affected: %w", err)
		} else if n == 0 {
			return fmt.Errorf("update amount of item %d: %w", u.ItemID, sql.ErrNoRows)
		}
	}

	current, err := getState(ctx, tx, r.HouseholdID)
	if err != nil {
		return err
	}
	var existing []model.MealServing
	if current != nil {
		existing = current.MealServings
	}
	if err := writeState(ctx, tx, r.HouseholdID, nil, nil, PatchServings(existing, r.Dish, r.Servings), r.ExpectedVersion, r.UpdatedBy); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteDish removes every item of the dish group and drops its multiplier
// entry. It returns the number of items removed.
func (s *ShoppingStore) DeleteDish(ctx context.Context, householdID int64, dish model.DishKey, by *int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM shopping_list_items WHERE household_id = ? AND meal_id = ? AND source_user_id = ?`,
		householdID, dish.MealID, dish.SourceUserID,
	)
	if err != nil {
		return 0, fmt.Errorf("delete dish items: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	current, err := getState(ctx, tx, householdID)
	if err != nil {
		return 0, err
	}
	if current != nil {
		if err := writeState(ctx, tx, householdID, nil, nil, RemoveServings(current.MealServings, dish), current.Version, by); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// PatchServings returns entries with the per-dish entry for dish set to
// servings, leaving every other entry untouched.
func PatchServings(entries []model.MealServing, dish model.DishKey, servings float64) []model.MealServing {
	out := make([]model.MealServing, 0, len(entries)+1)
	found := false
	for _, e := range entries {
		if e.MealID == dish.MealID && e.SourceUserID != nil && *e.SourceUserID == dish.SourceUserID {
			e.Servings = servings
			found = true
		}
		out = append(out, e)
	}
	if !found {
		uid := dish.SourceUserID
		out = append(out, model.MealServing{MealID: dish.MealID, SourceUserID: &uid, Servings: servings})
	}
	return out
}

// RemoveServings drops the per-dish entry for dish.
func RemoveServings(entries []model.MealServing, dish model.DishKey) []model.MealServing {
	out := make([]model.MealServing, 0, len(entries))
	for _, e := range entries {
		if e.MealID == dish.MealID && e.SourceUserID != nil && *e.SourceUserID == dish.SourceUserID {
			continue
		}
		out = append(out, e)
	}
	return out
}
