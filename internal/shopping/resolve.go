package shopping

import (
	"context"
	"fmt"

	"github.com/dukerupert/potluck/internal/model"
)

// Ingredient is one effective ingredient of a meal as eaten by one member.
type Ingredient struct {
	ProductID int64
	Product   *model.Product
	Amount    float64
	UnitType  model.UnitType
}

// Resolver picks a member's effective ingredient list for a meal.
type Resolver struct {
	source IngredientSource
}

func NewResolver(source IngredientSource) *Resolver {
	return &Resolver{source: source}
}

// Resolve returns the member's override rows if they have any, otherwise the
// meal's base items. A single override row replaces the whole base list;
// overrides and base items are never merged. overridden reports which list
// was used.
func (r *Resolver) Resolve(ctx context.Context, mealID, userID int64) (ings []Ingredient, overridden bool, err error) {
	overrides, err := r.source.ListOverrides(ctx, mealID, userID)
	if err != nil {
		return nil, false, fmt.Errorf("list overrides for meal %d: %w", mealID, err)
	}
	if len(overrides) > 0 {
		ings = make([]Ingredient, 0, len(overrides))
		for _, o := range overrides {
			ings = append(ings, Ingredient{ProductID: o.ProductID, Product: o.Product, Amount: o.Amount, UnitType: o.UnitType})
		}
		return ings, true, nil
	}

	items, err := r.source.ListItems(ctx, mealID)
	if err != nil {
		return nil, false, fmt.Errorf("list items for meal %d: %w", mealID, err)
	}
	ings = make([]Ingredient, 0, len(items))
	for _, it := range items {
		ings = append(ings, Ingredient{ProductID: it.ProductID, Product: it.Product, Amount: it.Amount, UnitType: it.UnitType})
	}
	return ings, false, nil
}
