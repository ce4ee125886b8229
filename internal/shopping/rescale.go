package shopping

import (
	"context"
	"errors"
	"math"

	"github.com/dukerupert/potluck/internal/model"
	"github.com/dukerupert/potluck/internal/store"
)

const servingsTolerance = 1e-4

// RescaleRequest sets a dish group's serving count.
type RescaleRequest struct {
	HouseholdID int64
	UserID      int64
	Dish        model.DishKey
	Servings    float64
}

// RescaleResult reports what a rescale changed.
type RescaleResult struct {
	Dish    model.DishKey        `json:"dish"`
	From    float64              `json:"from"`
	To      float64              `json:"to"`
	Updated []store.AmountUpdate `json:"updated"`
	NoOp    bool                 `json:"no_op"`
}

// Rescale multiplies every numeric item of the dish by Servings divided by
// the dish's current servings and records the new count. Custom-text items
// are untouched. A dish with no items on the list yields ErrNoItems.
// Amounts are rounded to two places with a floor of 0.01.
// The amounts and the state are written together; a concurrent state write
// causes one re-read and retry before the conflict is returned.
func (s *Service) Rescale(ctx context.Context, req RescaleRequest) (*RescaleResult, error) {
	if !(req.Servings > 0) || math.IsInf(req.Servings, 0) {
		return nil, ErrInvalidServings
	}

	lock := s.householdLock(req.HouseholdID)
	lock.Lock()
	defer lock.Unlock()

	for attempt := 0; ; attempt++ {
		res, err := s.rescaleOnce(ctx, req)
		if errors.Is(err, store.ErrVersionConflict) && attempt == 0 {
			s.logger.Warn("shopping list state changed during rescale, retrying",
				"household_id", req.HouseholdID, "meal_id", req.Dish.MealID, "source_user_id", req.Dish.SourceUserID)
			continue
		}
		if err != nil {
			return nil, err
		}
		if !res.NoOp {
			s.notify(req.HouseholdID, EntityItem, "rescaled", req.Dish.MealID, map[string]any{
				"source_user_id": req.Dish.SourceUserID,
				"count":          len(res.Updated),
			})
			s.notify(req.HouseholdID, EntityState, "updated", 0, nil)
		}
		return res, nil
	}
}

func (s *Service) rescaleOnce(ctx context.Context, req RescaleRequest) (*RescaleResult, error) {
	state, err := s.list.GetState(ctx, req.HouseholdID)
	if err != nil {
		return nil, storeErr("rescale: load state", err)
	}
	items, err := s.list.ListItems(ctx, req.HouseholdID)
	if err != nil {
		return nil, storeErr("rescale: list items", err)
	}
	matched := 0
	current := state.Servings(req.Dish)
	res := &RescaleResult{Dish: req.Dish, From: current, To: req.Servings}
	for _, it := range items {
		k, ok := model.DishKeyOf(it)
		if !ok || k != req.Dish {
			continue
		}
		matched++
		if it.IsCustomText() {
			continue
		}
		res.Updated = append(res.Updated, store.AmountUpdate{
			ItemID: it.ID,
			Amount: ScaleAmount(it.Amount, current, req.Servings),
		})
	}
	if matched == 0 {
		return nil, ErrNoItems
	}
	if math.Abs(current-req.Servings) < servingsTolerance {
		res.NoOp = true
		res.Updated = nil
		return res, nil
	}

	var version int64
	if state != nil {
		version = state.Version
	}
	err = s.list.ApplyRescale(ctx, store.DishRescale{
		HouseholdID:     req.HouseholdID,
		Dish:            req.Dish,
		Servings:        req.Servings,
		Updates:         res.Updated,
		ExpectedVersion: version,
		UpdatedBy:       userPtr(req.UserID),
	})
	if errors.Is(err, store.ErrVersionConflict) {
		return nil, err
	}
	if err != nil {
		return nil, storeErr("rescale: apply", err)
	}
	return res, nil
}
