// Package planner manages members' daily meal plans: one meal per
// (member, date, category) slot, consumed and skipped flags, day copies and
// the day's nutrition summary.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dukerupert/potluck/internal/model"
	"github.com/dukerupert/potluck/internal/shopping"
	ws "github.com/dukerupert/potluck/internal/websocket"
)

var (
	ErrNotFound         = errors.New("meal plan entry not found")
	ErrInvalidDate      = errors.New("dates must be YYYY-MM-DD")
	ErrMealNotFound     = errors.New("meal not found")
	ErrNotMember        = errors.New("user is not a member of this household")
	ErrInvalidCategory  = errors.New("unknown meal category")
	ErrCategoryMismatch = errors.New("meal is not offered for this category")
)

// EntityMealPlan is the notification entity for plan changes.
const EntityMealPlan = "meal_plan"

type PlanStore interface {
	GetByID(ctx context.Context, id int64) (*model.MealPlan, error)
	SetMeal(ctx context.Context, householdID, userID int64, date string, category model.MealCategory, mealID int64) (*model.MealPlan, error)
	SetStatus(ctx context.Context, id int64, consumed, skipped bool) (*model.MealPlan, error)
	Delete(ctx context.Context, id int64) error
	ListDay(ctx context.Context, householdID, userID int64, date string) ([]model.MealPlan, error)
	CopyDay(ctx context.Context, householdID, fromUserID int64, fromDate string, toUserID int64, toDate string, replace bool) (int, error)
}

type MealLookup interface {
	GetByID(ctx context.Context, id int64) (*model.Meal, error)
}

type MemberLookup interface {
	GetMember(ctx context.Context, householdID, userID int64) (*model.HouseholdMember, error)
}

type Notifier interface {
	Broadcast(msg ws.Message)
}

type Planner struct {
	plans    PlanStore
	meals    MealLookup
	members  MemberLookup
	resolver *shopping.Resolver
	notifier Notifier
	logger   *slog.Logger
}

func New(plans PlanStore, meals MealLookup, members MemberLookup, ingredients shopping.IngredientSource, notifier Notifier, logger *slog.Logger) *Planner {
	return &Planner{
		plans:    plans,
		meals:    meals,
		members:  members,
		resolver: shopping.NewResolver(ingredients),
		notifier: notifier,
		logger:   logger,
	}
}

func (p *Planner) notify(householdID int64, action string, id int64, extra map[string]any) {
	if p.notifier == nil {
		return
	}
	p.notifier.Broadcast(ws.NewMessage(householdID, EntityMealPlan, action, id, extra))
}

func validDate(date string) error {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return nil
}

func (p *Planner) requireMember(ctx context.Context, householdID, userID int64) error {
	m, err := p.members.GetMember(ctx, householdID, userID)
	if err != nil {
		return fmt.Errorf("get member: %w", err)
	}
	if m == nil {
		return ErrNotMember
	}
	return nil
}

// entry loads a plan entry, hiding entries of other households.
func (p *Planner) entry(ctx context.Context, householdID, id int64) (*model.MealPlan, error) {
	e, err := p.plans.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil || e.HouseholdID != householdID {
		return nil, ErrNotFound
	}
	return e, nil
}

// Day returns a member's plan for date in category order.
func (p *Planner) Day(ctx context.Context, householdID, userID int64, date string) ([]model.MealPlan, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	return p.plans.ListDay(ctx, householdID, userID, date)
}

// SelectMeal plans mealID into the member's slot, replacing whatever was
// planned there.
func (p *Planner) SelectMeal(ctx context.Context, householdID, userID int64, date string, category model.MealCategory, mealID int64) (*model.MealPlan, error) {
	if !category.Valid() {
		return nil, ErrInvalidCategory
	}
	if err := validDate(date); err != nil {
		return nil, err
	}
	if err := p.requireMember(ctx, householdID, userID); err != nil {
		return nil, err
	}
	meal, err := p.meals.GetByID(ctx, mealID)
	if err != nil {
		return nil, fmt.Errorf("get meal: %w", err)
	}
	if meal == nil || meal.HouseholdID != householdID {
		return nil, ErrMealNotFound
	}
	if meal.PrimaryCategory != "" && meal.PrimaryCategory != category && !slices.Contains(meal.AlternativeCategories, category) {
		return nil, ErrCategoryMismatch
	}

	e, err := p.plans.SetMeal(ctx, householdID, userID, date, category, mealID)
	if err != nil {
		return nil, err
	}
	p.notify(householdID, "updated", e.ID, map[string]any{"user_id": userID, "date": date})
	return e, nil
}

// ToggleConsumed flips the consumed flag. Marking an entry consumed clears
// skipped.
func (p *Planner) ToggleConsumed(ctx context.Context, householdID, id int64) (*model.MealPlan, error) {
	e, err := p.entry(ctx, householdID, id)
	if err != nil {
		return nil, err
	}
	consumed := !e.IsConsumed
	skipped := e.IsSkipped && !consumed
	return p.setStatus(ctx, householdID, e, consumed, skipped)
}

// ToggleSkipped flips the skipped flag. Marking an entry skipped clears
// consumed.
func (p *Planner) ToggleSkipped(ctx context.Context, householdID, id int64) (*model.MealPlan, error) {
	e, err := p.entry(ctx, householdID, id)
	if err != nil {
		return nil, err
	}
	skipped := !e.IsSkipped
	consumed := e.IsConsumed && !skipped
	return p.setStatus(ctx, householdID, e, consumed, skipped)
}

func (p *Planner) setStatus(ctx context.Context, householdID int64, e *model.MealPlan, consumed, skipped bool) (*model.MealPlan, error) {
	updated, err := p.plans.SetStatus(ctx, e.ID, consumed, skipped)
	if err != nil {
		return nil, err
	}
	p.notify(householdID, "updated", e.ID, map[string]any{"user_id": e.UserID, "date": e.Date})
	return updated, nil
}

// Clear removes a plan entry.
func (p *Planner) Clear(ctx context.Context, householdID, id int64) error {
	e, err := p.entry(ctx, householdID, id)
	if err != nil {
		return err
	}
	if err := p.plans.Delete(ctx, e.ID); err != nil {
		return err
	}
	p.notify(householdID, "deleted", e.ID, map[string]any{"user_id": e.UserID, "date": e.Date})
	return nil
}

// CopyRequest copies one member's day onto another member's (or the same
// member's) day.
type CopyRequest struct {
	FromUserID int64
	FromDate   string
	ToUserID   int64
	ToDate     string
	// Replace clears the target day first; otherwise only its empty
	// categories are filled.
	Replace bool
}

// CopyDay copies a day's plan and returns the number of entries written.
func (p *Planner) CopyDay(ctx context.Context, householdID int64, req CopyRequest) (int, error) {
	if err := validDate(req.FromDate); err != nil {
		return 0, err
	}
	if err := validDate(req.ToDate); err != nil {
		return 0, err
	}
	if req.FromUserID == req.ToUserID && req.FromDate == req.ToDate {
		return 0, nil
	}
	for _, uid := range []int64{req.FromUserID, req.ToUserID} {
		if err := p.requireMember(ctx, householdID, uid); err != nil {
			return 0, err
		}
	}

	n, err := p.plans.CopyDay(ctx, householdID, req.FromUserID, req.FromDate, req.ToUserID, req.ToDate, req.Replace)
	if err != nil {
		return 0, err
	}
	p.logger.Info("meal plan day copied",
		"household_id", householdID,
		"from_user_id", req.FromUserID, "from_date", req.FromDate,
		"to_user_id", req.ToUserID, "to_date", req.ToDate,
		"entries", n,
	)
	if n > 0 || req.Replace {
		p.notify(householdID, "copied", 0, map[string]any{"user_id": req.ToUserID, "date": req.ToDate})
	}
	return n, nil
}
