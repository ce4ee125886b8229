package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/potluck/internal/model"
)

type MealPlanStore struct {
	db *sql.DB
}

func NewMealPlanStore(db *sql.DB) *MealPlanStore {
	return &MealPlanStore{db: db}
}

const mealPlanCols = `id, household_id, user_id, date, meal_type, meal_id, is_consumed, is_skipped, created_at, updated_at`

func scanMealPlan(scanner interface{ Scan(...any) error }) (*model.MealPlan, error) {
	var p model.MealPlan
	var consumed, skipped int
	err := scanner.Scan(&p.ID, &p.HouseholdID, &p.UserID, &p.Date, &p.MealType, &p.MealID, &consumed, &skipped, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.IsConsumed = consumed != 0
	p.IsSkipped = skipped != 0
	return &p, nil
}

func (s *MealPlanStore) GetByID(ctx context.Context, id int64) (*model.MealPlan, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+mealPlanCols+` FROM meal_plan WHERE id = ?`, id)
	p, err := scanMealPlan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get meal plan: %w", err)
	}
	return p, nil
}

// SetMeal plans mealID into the (user, date, category) slot. An existing entry
// for the slot is updated in place rather than duplicated.
func (s *MealPlanStore) SetMeal(ctx context.Context, householdID, userID int64, date string, category model.MealCategory, mealID int64) (*model.MealPlan, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meal_plan (household_id, user_id, date, meal_type, meal_id) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, date, meal_type) DO UPDATE SET meal_id = excluded.meal_id`,
		householdID, userID, date, category, mealID,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert meal plan: %w", err)
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+mealPlanCols+` FROM meal_plan WHERE user_id = ? AND date = ? AND meal_type = ?`,
		userID, date, category,
	)
	p, err := scanMealPlan(row)
	if err != nil {
		return nil, fmt.Errorf("get meal plan: %w", err)
	}
	return p, nil
}

// SetStatus writes both status flags of a plan entry.
func (s *MealPlanStore) SetStatus(ctx context.Context, id int64, consumed, skipped bool) (*model.MealPlan, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE meal_plan SET is_consumed = ?, is_skipped = ? WHERE id = ?`,
		boolToInt(consumed), boolToInt(skipped), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update meal plan status: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *MealPlanStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM meal_plan WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete meal plan: %w", err)
	}
	return nil
}

// ListDay returns one member's plan for a date in category order.
func (s *MealPlanStore) ListDay(ctx context.Context, householdID, userID int64, date string) ([]model.MealPlan, error) {
	return s.list(ctx,
		`WHERE household_id = ? AND user_id = ? AND date = ?`,
		householdID, userID, date,
	)
}

// ListRange returns the plan entries of the given members with start <= date <= end.
func (s *MealPlanStore) ListRange(ctx context.Context, householdID int64, userIDs []int64, start, end string) ([]model.MealPlan, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")
	args := []any{householdID}
	for _, id := range userIDs {
		args = append(args, id)
	}
	args = append(args, start, end)
	return s.list(ctx,
		`WHERE household_id = ? AND user_id IN (`+placeholders+`) AND date >= ? AND date <= ?`,
		args...,
	)
}

func (s *MealPlanStore) list(ctx context.Context, where string, args ...any) ([]model.MealPlan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+mealPlanCols+` FROM meal_plan `+where+`
		 ORDER BY date ASC, user_id ASC,
		   CASE meal_type
		     WHEN 'breakfast' THEN 0 WHEN 'second_breakfast' THEN 1 WHEN 'lunch' THEN 2
		     WHEN 'dinner' THEN 3 ELSE 4 END,
		   id ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list meal plan: %w", err)
	}
	defer rows.Close()

	var plans []model.MealPlan
	for rows.Next() {
		p, err := scanMealPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meal plan: %w", err)
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

// CopyDay copies the source member's plan for fromDate into the target
// member's plan for toDate. Only categories the target has not planned are
// filled unless replace is set, in which case the target day is cleared first.
// Copied entries start neither consumed nor skipped. It returns the number of
// entries written.
func (s *MealPlanStore) CopyDay(ctx context.Context, householdID, fromUserID int64, fromDate string, toUserID int64, toDate string, replace bool) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if replace {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM meal_plan WHERE household_id = ? AND user_id = ? AND date = ?`,
			householdID, toUserID, toDate,
		); err != nil {
			return 0, fmt.Errorf("clear target day: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO meal_plan (household_id, user_id, date, meal_type, meal_id)
		 SELECT household_id, ?, ?, meal_type, meal_id FROM meal_plan
		 WHERE household_id = ? AND user_id = ? AND date = ?
		 ON CONFLICT (user_id, date, meal_type) DO NOTHING`,
		toUserID, toDate, householdID, fromUserID, fromDate,
	)
	if err != nil {
		return 0, fmt.Errorf("copy day: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return int(n), nil
}
