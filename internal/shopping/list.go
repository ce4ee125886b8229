package shopping

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/dukerupert/potluck/internal/model"
)

// View loads the household's list and groups it by mode.
func (s *Service) View(ctx context.Context, householdID int64, mode Mode, memberNames map[int64]string) (View, error) {
	items, err := s.list.ListItems(ctx, householdID)
	if err != nil {
		return View{}, storeErr("load list items", err)
	}
	state, err := s.list.GetState(ctx, householdID)
	if err != nil {
		return View{}, storeErr("load list state", err)
	}
	return BuildView(mode, items, state, memberNames), nil
}

// Toggle flips a group of items: if every one of them is checked they are
// all unchecked, otherwise they are all checked. It returns the new state.
func (s *Service) Toggle(ctx context.Context, householdID, userID int64, ids []int64) (bool, error) {
	items, err := s.list.ListItems(ctx, householdID)
	if err != nil {
		return false, storeErr("toggle: list items", err)
	}
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var matched []int64
	allChecked := true
	for _, it := range items {
		if !want[it.ID] {
			continue
		}
		matched = append(matched, it.ID)
		allChecked = allChecked && it.IsChecked
	}
	if len(matched) == 0 {
		return false, ErrNoItems
	}

	checked := !allChecked
	if err := s.SetChecked(ctx, householdID, userID, matched, checked); err != nil {
		return false, err
	}
	return checked, nil
}

// SetChecked checks or unchecks the items in one batched write.
func (s *Service) SetChecked(ctx context.Context, householdID, userID int64, ids []int64, checked bool) error {
	if len(ids) == 0 {
		return ErrNoItems
	}
	n, err := s.list.SetChecked(ctx, householdID, ids, checked, userPtr(userID))
	if err != nil {
		return storeErr("set checked", err)
	}
	action := "checked"
	if !checked {
		action = "unchecked"
	}
	s.notify(householdID, EntityItem, action, 0, map[string]any{"count": n})
	return nil
}

// ParseQuantity interprets free-form quantity input. A positive number
// (comma or dot decimal) becomes the amount; anything else is kept as text
// with a placeholder amount of 1.
func ParseQuantity(input string) (amount float64, text *string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 1, nil
	}
	if v, err := strconv.ParseFloat(strings.ReplaceAll(input, ",", "."), 64); err == nil && v > 0 && !math.IsInf(v, 0) {
		return v, nil
	}
	return 1, &input
}

// AddCustomItem adds an item with no backing product.
func (s *Service) AddCustomItem(ctx context.Context, householdID, userID int64, name, quantity string) (*model.ShoppingListItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	amount, text := ParseQuantity(quantity)
	item, err := s.list.CreateCustomItem(ctx, householdID, name, amount, text, userPtr(userID))
	if err != nil {
		return nil, storeErr("add custom item", err)
	}
	s.notify(householdID, EntityItem, "created", item.ID, nil)
	return item, nil
}

// DeleteItems removes the items, typically one product group.
func (s *Service) DeleteItems(ctx context.Context, householdID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, ErrNoItems
	}
	n, err := s.list.DeleteItems(ctx, householdID, ids)
	if err != nil {
		return 0, storeErr("delete items", err)
	}
	s.notify(householdID, EntityItem, "deleted", 0, map[string]any{"count": n})
	return n, nil
}

// DeleteDish removes a dish group's items and its servings entry.
func (s *Service) DeleteDish(ctx context.Context, householdID, userID int64, dish model.DishKey) (int64, error) {
	lock := s.householdLock(householdID)
	lock.Lock()
	defer lock.Unlock()

	n, err := s.list.DeleteDish(ctx, householdID, dish, userPtr(userID))
	if err != nil {
		return 0, storeErr("delete dish", err)
	}
	s.notify(householdID, EntityItem, "deleted", dish.MealID, map[string]any{"count": n, "source_user_id": dish.SourceUserID})
	s.notify(householdID, EntityState, "updated", 0, nil)
	return n, nil
}

// ClearChecked removes every checked item.
func (s *Service) ClearChecked(ctx context.Context, householdID int64) (int64, error) {
	n, err := s.list.ClearChecked(ctx, householdID)
	if err != nil {
		return 0, storeErr("clear checked items", err)
	}
	if n > 0 {
		s.notify(householdID, EntityItem, "deleted", 0, map[string]any{"count": n})
	}
	return n, nil
}
