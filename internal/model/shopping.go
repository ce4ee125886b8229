package model

import "time"

type ShoppingListItem struct {
	ID               int64      `json:"id"`
	HouseholdID      int64      `json:"household_id"`
	ProductID        *int64     `json:"product_id"`
	MealID           *int64     `json:"meal_id"`
	SourceUserID     *int64     `json:"source_user_id"`
	Name             string     `json:"name"`
	Amount           float64    `json:"amount"`
	UnitType         string     `json:"unit_type"`
	CustomAmountText *string    `json:"custom_amount_text"`
	IsChecked        bool       `json:"is_checked"`
	CheckedBy        *int64     `json:"checked_by"`
	CheckedAt        *time.Time `json:"checked_at"`
	AddedBy          *int64     `json:"added_by"`
	CreatedAt        time.Time  `json:"created_at"`

	// Populated by joins on read; never written.
	ProductCategory string `json:"product_category,omitempty"`
	MealName        string `json:"meal_name,omitempty"`
}

// IsCustomText reports whether the item's quantity is free-form text, in
// which case Amount is a placeholder and must be ignored.
func (i ShoppingListItem) IsCustomText() bool {
	return i.CustomAmountText != nil && *i.CustomAmountText != ""
}

// DishKey identifies a dish generation group: one meal as eaten by one
// household member. Serving counts are tracked per DishKey.
type DishKey struct {
	MealID       int64 `json:"meal_id"`
	SourceUserID int64 `json:"source_user_id"`
}

// DishKeyOf returns the dish key of a generated item. ok is false for custom
// items that do not belong to a dish.
func DishKeyOf(i ShoppingListItem) (DishKey, bool) {
	if i.MealID == nil {
		return DishKey{}, false
	}
	k := DishKey{MealID: *i.MealID}
	if i.SourceUserID != nil {
		k.SourceUserID = *i.SourceUserID
	}
	return k, true
}

// MealServing is one persisted entry of the per-dish serving multiplier map.
// Legacy entries carry only a meal id (SourceUserID nil) and apply to every
// member's version of that meal.
type MealServing struct {
	MealID       int64   `json:"meal_id"`
	SourceUserID *int64  `json:"source_user_id,omitempty"`
	Servings     float64 `json:"servings"`
}

type ShoppingListState struct {
	HouseholdID        int64         `json:"household_id"`
	GeneratedStartDate *string       `json:"generated_start_date"`
	GeneratedEndDate   *string       `json:"generated_end_date"`
	MealServings       []MealServing `json:"meal_servings"`
	Version            int64         `json:"version"`
	UpdatedBy          *int64        `json:"updated_by"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// Servings returns the multiplier for k: the per-dish entry if present, else
// a legacy by-meal entry, else 1.
func (s *ShoppingListState) Servings(k DishKey) float64 {
	if s == nil {
		return 1
	}
	legacy := 0.0
	for _, ms := range s.MealServings {
		if ms.MealID != k.MealID {
			continue
		}
		if ms.SourceUserID == nil {
			legacy = ms.Servings
			continue
		}
		if *ms.SourceUserID == k.SourceUserID && ms.Servings > 0 {
			return ms.Servings
		}
	}
	if legacy > 0 {
		return legacy
	}
	return 1
}
