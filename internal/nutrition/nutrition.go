// Package nutrition converts ingredient quantities into absolute nutrient
// amounts. All nutrient values in the catalog are stored per 100 g.
package nutrition

import "github.com/dukerupert/potluck/internal/model"

// Fallback weights in grams of one unit, used when a product has no
// unit_weight_grams of its own. Amounts of 100g products are grams.
const (
	GramWeight       = 1.0
	PieceWeight      = 100.0
	TablespoonWeight = 15.0
	TeaspoonWeight   = 5.0
)

// Calculate returns the absolute amount of a nutrient for amount units that
// each weigh unitWeightGrams, given the nutrient's value per 100 g. A nil
// unit weight uses fallback.
func Calculate(amount float64, unitWeightGrams *float64, fallback, valuePer100g float64) float64 {
	weight := fallback
	if unitWeightGrams != nil {
		weight = *unitWeightGrams
	}
	return amount * weight / 100 * valuePer100g
}

// FallbackWeight returns the default gram weight of one unit.
func FallbackWeight(unit model.UnitType) float64 {
	switch unit {
	case model.UnitPiece:
		return PieceWeight
	case model.UnitTablespoon:
		return TablespoonWeight
	case model.UnitTeaspoon:
		return TeaspoonWeight
	default:
		return GramWeight
	}
}

// Facts is an absolute nutrient total.
type Facts struct {
	Kcal    float64 `json:"kcal"`
	Protein float64 `json:"protein"`
	Fat     float64 `json:"fat"`
	Carbs   float64 `json:"carbs"`
}

// Add returns the element-wise sum of f and o.
func (f Facts) Add(o Facts) Facts {
	return Facts{
		Kcal:    f.Kcal + o.Kcal,
		Protein: f.Protein + o.Protein,
		Fat:     f.Fat + o.Fat,
		Carbs:   f.Carbs + o.Carbs,
	}
}

// ForProduct computes the facts of amount units of p. Missing macro values
// count as zero.
func ForProduct(p model.Product, amount float64) Facts {
	fallback := FallbackWeight(p.UnitType)
	macro := func(v *float64) float64 {
		if v == nil {
			return 0
		}
		return Calculate(amount, p.UnitWeightGrams, fallback, *v)
	}
	return Facts{
		Kcal:    Calculate(amount, p.UnitWeightGrams, fallback, p.KcalPerUnit),
		Protein: macro(p.Protein),
		Fat:     macro(p.Fat),
		Carbs:   macro(p.Carbs),
	}
}
