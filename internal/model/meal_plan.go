package model

import "time"

// DateLayout is the storage format of plan and list dates.
const DateLayout = "2006-01-02"

type MealPlan struct {
	ID          int64        `json:"id"`
	HouseholdID int64        `json:"household_id"`
	UserID      int64        `json:"user_id"`
	Date        string       `json:"date"`
	MealType    MealCategory `json:"meal_type"`
	MealID      int64        `json:"meal_id"`
	IsConsumed  bool         `json:"is_consumed"`
	IsSkipped   bool         `json:"is_skipped"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
