package shopping

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/potluck/internal/model"
	"github.com/dukerupert/potluck/internal/store"
)

// GenerateRequest selects the plan entries to build a list from.
type GenerateRequest struct {
	HouseholdID int64
	UserID      int64
	Members     []int64
	StartDate   string
	EndDate     string
	// ReplaceExisting must be set to discard a non-empty list.
	ReplaceExisting bool
}

// GenerateResult summarises a generation run.
type GenerateResult struct {
	Items    int                 `json:"items"`
	Dishes   int                 `json:"dishes"`
	Entries  int                 `json:"entries"`
	Replaced int                 `json:"replaced"`
	Servings []model.MealServing `json:"servings"`
}

func (r GenerateRequest) validate() error {
	if len(r.Members) == 0 {
		return ErrNoMembers
	}
	start, err := time.Parse(model.DateLayout, r.StartDate)
	if err != nil {
		return fmt.Errorf("%w: start %q", ErrInvalidDate, r.StartDate)
	}
	end, err := time.Parse(model.DateLayout, r.EndDate)
	if err != nil {
		return fmt.Errorf("%w: end %q", ErrInvalidDate, r.EndDate)
	}
	if start.After(end) {
		return ErrInvalidRange
	}
	return nil
}

type bucketKey struct {
	dish      model.DishKey
	productID int64
}

type bucket struct {
	key    bucketKey
	name   string
	unit   model.UnitType
	amount decimal.Decimal
}

// Generate builds the household's shopping list from the selected members'
// meal plans over [StartDate, EndDate] and replaces the list and its serving
// state in one write.
//
// Each (meal, member) pair's ingredients are resolved once; a dish's initial
// servings count is the number of plan entries that contributed at least one
// ingredient. Amounts are summed per (meal, member, product).
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	lock := s.householdLock(req.HouseholdID)
	lock.Lock()
	defer lock.Unlock()

	entries, err := s.plans.ListRange(ctx, req.HouseholdID, req.Members, req.StartDate, req.EndDate)
	if err != nil {
		return nil, storeErr("generate: list meal plans", err)
	}
	if len(entries) == 0 {
		return nil, ErrNothingToGenerate
	}

	resolved, err := s.resolveAll(ctx, entries)
	if err != nil {
		return nil, storeErr("generate: resolve ingredients", err)
	}

	var (
		buckets     = make(map[bucketKey]*bucket)
		order       []bucketKey
		occurrences = make(map[model.DishKey]int)
		dishOrder   []model.DishKey
	)
	for _, e := range entries {
		dish := model.DishKey{MealID: e.MealID, SourceUserID: e.UserID}
		contributed := false
		for _, ing := range resolved[dish] {
			if ing.Product == nil {
				continue
			}
			contributed = true
			k := bucketKey{dish: dish, productID: ing.ProductID}
			b, ok := buckets[k]
			if !ok {
				b = &bucket{key: k, name: ing.Product.Name, unit: ing.Product.UnitType}
				buckets[k] = b
				order = append(order, k)
			}
			b.amount = addAmount(b.amount, ing.Amount)
		}
		if contributed {
			if occurrences[dish] == 0 {
				dishOrder = append(dishOrder, dish)
			}
			occurrences[dish]++
		}
	}
	if len(order) == 0 {
		return nil, ErrNoIngredients
	}

	existing, err := s.list.CountItems(ctx, req.HouseholdID)
	if err != nil {
		return nil, storeErr("generate: count items", err)
	}
	if existing > 0 && !req.ReplaceExisting {
		return nil, ErrConfirmationRequired
	}

	items := make([]store.NewListItem, 0, len(order))
	for _, k := range order {
		b := buckets[k]
		items = append(items, store.NewListItem{
			ProductID:    k.productID,
			MealID:       k.dish.MealID,
			SourceUserID: k.dish.SourceUserID,
			Name:         b.name,
			Amount:       persistable(b.amount),
			UnitType:     string(b.unit),
		})
	}

	servings := make([]model.MealServing, 0, len(dishOrder))
	for _, d := range dishOrder {
		uid := d.SourceUserID
		servings = append(servings, model.MealServing{MealID: d.MealID, SourceUserID: &uid, Servings: float64(occurrences[d])})
	}

	err = s.list.SaveGeneratedList(ctx, store.GeneratedList{
		HouseholdID:   req.HouseholdID,
		ClearExisting: req.ReplaceExisting,
		Items:         items,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Servings:      servings,
		AddedBy:       userPtr(req.UserID),
	})
	if err != nil {
		return nil, storeErr("generate: save list", err)
	}

	s.logger.Info("shopping list generated",
		"household_id", req.HouseholdID,
		"entries", len(entries),
		"items", len(items),
		"dishes", len(servings),
		"replaced", existing,
	)
	s.notify(req.HouseholdID, EntityItem, "generated", 0, map[string]any{"count": len(items)})
	s.notify(req.HouseholdID, EntityState, "updated", 0, nil)

	return &GenerateResult{
		Items:    len(items),
		Dishes:   len(servings),
		Entries:  len(entries),
		Replaced: existing,
		Servings: servings,
	}, nil
}

// resolveAll resolves every distinct (meal, member) pair of entries
// concurrently and waits for all of them.
func (s *Service) resolveAll(ctx context.Context, entries []model.MealPlan) (map[model.DishKey][]Ingredient, error) {
	var dishes []model.DishKey
	seen := make(map[model.DishKey]bool)
	for _, e := range entries {
		k := model.DishKey{MealID: e.MealID, SourceUserID: e.UserID}
		if !seen[k] {
			seen[k] = true
			dishes = append(dishes, k)
		}
	}

	results := make([][]Ingredient, len(dishes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, d := range dishes {
		g.Go(func() error {
			ings, _, err := s.resolver.Resolve(gctx, d.MealID, d.SourceUserID)
			if err != nil {
				return err
			}
			results[i] = ings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[model.DishKey][]Ingredient, len(dishes))
	for i, d := range dishes {
		out[d] = results[i]
	}
	return out, nil
}
