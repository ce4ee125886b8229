package model

import "time"

// UnitType is the preferred unit a product is measured in.
type UnitType string

const (
	Unit100g       UnitType = "100g"
	UnitPiece      UnitType = "piece"
	UnitTablespoon UnitType = "tablespoon"
	UnitTeaspoon   UnitType = "teaspoon"
)

// Valid reports whether u is one of the known units.
func (u UnitType) Valid() bool {
	switch u {
	case Unit100g, UnitPiece, UnitTablespoon, UnitTeaspoon:
		return true
	}
	return false
}

// Product is a household catalog entry. Nutrient values are per 100 g.
type Product struct {
	ID              int64     `json:"id"`
	HouseholdID     int64     `json:"household_id"`
	Name            string    `json:"name"`
	Category        string    `json:"category"`
	UnitType        UnitType  `json:"unit_type"`
	UnitWeightGrams *float64  `json:"unit_weight_grams"`
	KcalPerUnit     float64   `json:"kcal_per_unit"`
	Protein         *float64  `json:"protein"`
	Fat             *float64  `json:"fat"`
	Carbs           *float64  `json:"carbs"`
	CreatedBy       *int64    `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
