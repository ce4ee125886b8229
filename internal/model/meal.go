package model

import "time"

// MealCategory is a slot of the day a meal can be planned into.
type MealCategory string

const (
	CategoryBreakfast       MealCategory = "breakfast"
	CategorySecondBreakfast MealCategory = "second_breakfast"
	CategoryLunch           MealCategory = "lunch"
	CategoryDinner          MealCategory = "dinner"
	CategorySnack           MealCategory = "snack"
)

// MealCategories lists the categories in day order.
var MealCategories = []MealCategory{
	CategoryBreakfast, CategorySecondBreakfast, CategoryLunch, CategoryDinner, CategorySnack,
}

func (c MealCategory) Valid() bool {
	for _, known := range MealCategories {
		if c == known {
			return true
		}
	}
	return false
}

type Meal struct {
	ID                    int64          `json:"id"`
	HouseholdID           int64          `json:"household_id"`
	Name                  string         `json:"name"`
	Description           string         `json:"description"`
	PrimaryCategory       MealCategory   `json:"primary_category"`
	AlternativeCategories []MealCategory `json:"alternative_categories"`
	CreatedBy             *int64         `json:"created_by"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// MealItem is one ingredient of a meal's shared base recipe.
type MealItem struct {
	ID        int64     `json:"id"`
	MealID    int64     `json:"meal_id"`
	ProductID int64     `json:"product_id"`
	Amount    float64   `json:"amount"`
	UnitType  UnitType  `json:"unit_type"`
	Product   *Product  `json:"product,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MealItemOverride is one ingredient of a member's personal version of a meal.
type MealItemOverride struct {
	ID        int64     `json:"id"`
	MealID    int64     `json:"meal_id"`
	UserID    int64     `json:"user_id"`
	ProductID int64     `json:"product_id"`
	Amount    float64   `json:"amount"`
	UnitType  UnitType  `json:"unit_type"`
	Product   *Product  `json:"product,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
