package planner

import (
	"context"

	"github.com/dukerupert/potluck/internal/model"
	"github.com/dukerupert/potluck/internal/nutrition"
)

// EntrySummary is one planned meal with the nutrition of the member's
// effective ingredients.
type EntrySummary struct {
	model.MealPlan
	Overridden bool            `json:"overridden"`
	Facts      nutrition.Facts `json:"facts"`
}

// DaySummary totals a member's day. Planned excludes skipped entries;
// Consumed counts only entries marked consumed.
type DaySummary struct {
	UserID   int64           `json:"user_id"`
	Date     string          `json:"date"`
	Entries  []EntrySummary  `json:"entries"`
	Planned  nutrition.Facts `json:"planned"`
	Consumed nutrition.Facts `json:"consumed"`
}

// Summary computes the member's nutrition for date.
func (p *Planner) Summary(ctx context.Context, householdID, userID int64, date string) (*DaySummary, error) {
	entries, err := p.Day(ctx, householdID, userID, date)
	if err != nil {
		return nil, err
	}

	s := &DaySummary{UserID: userID, Date: date, Entries: make([]EntrySummary, 0, len(entries))}
	for _, e := range entries {
		ings, overridden, err := p.resolver.Resolve(ctx, e.MealID, e.UserID)
		if err != nil {
			return nil, err
		}
		var facts nutrition.Facts
		for _, ing := range ings {
			if ing.Product == nil {
				continue
			}
			facts = facts.Add(nutrition.ForProduct(*ing.Product, ing.Amount))
		}
		s.Entries = append(s.Entries, EntrySummary{MealPlan: e, Overridden: overridden, Facts: facts})
		if !e.IsSkipped {
			s.Planned = s.Planned.Add(facts)
		}
		if e.IsConsumed {
			s.Consumed = s.Consumed.Add(facts)
		}
	}
	return s, nil
}
