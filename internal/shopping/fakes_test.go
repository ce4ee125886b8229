package shopping

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dukerupert/potluck/internal/model"
	"github.com/dukerupert/potluck/internal/store"
	ws "github.com/dukerupert/potluck/internal/websocket"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }

func product(id int64, name string, unit model.UnitType, category string) *model.Product {
	return &model.Product{ID: id, HouseholdID: 1, Name: name, UnitType: unit, Category: category}
}

type fakePlans struct {
	entries []model.MealPlan
	err     error
}

func (f *fakePlans) ListRange(_ context.Context, householdID int64, userIDs []int64, start, end string) ([]model.MealPlan, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.MealPlan
	for _, e := range f.entries {
		if e.HouseholdID == householdID && slices.Contains(userIDs, e.UserID) && e.Date >= start && e.Date <= end {
			out = append(out, e)
		}
	}
	return out, nil
}

type overrideKey struct{ mealID, userID int64 }

type fakeIngredients struct {
	mu        sync.Mutex
	base      map[int64][]model.MealItem
	overrides map[overrideKey][]model.MealItemOverride
	err       error
	lookups   int
}

func newFakeIngredients() *fakeIngredients {
	return &fakeIngredients{
		base:      make(map[int64][]model.MealItem),
		overrides: make(map[overrideKey][]model.MealItemOverride),
	}
}

func (f *fakeIngredients) addBase(mealID int64, p *model.Product, amount float64) {
	f.base[mealID] = append(f.base[mealID], model.MealItem{MealID: mealID, ProductID: p.ID, Product: p, Amount: amount, UnitType: p.UnitType})
}

func (f *fakeIngredients) addOverride(mealID, userID int64, p *model.Product, amount float64) {
	k := overrideKey{mealID, userID}
	f.overrides[k] = append(f.overrides[k], model.MealItemOverride{MealID: mealID, UserID: userID, ProductID: p.ID, Product: p, Amount: amount, UnitType: p.UnitType})
}

func (f *fakeIngredients) ListItems(_ context.Context, mealID int64) ([]model.MealItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	return f.base[mealID], nil
}

func (f *fakeIngredients) ListOverrides(_ context.Context, mealID, userID int64) ([]model.MealItemOverride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	return f.overrides[overrideKey{mealID, userID}], nil
}

// fakeList is an in-memory ListStore with the same version rules as the
// SQLite store.
type fakeList struct {
	mu        sync.Mutex
	items     []model.ShoppingListItem
	state     *model.ShoppingListState
	nextID    int64
	saveErr   error
	applyErr  error
	conflicts int
	applies   int
	onCount   func()
}

func (f *fakeList) ListItems(_ context.Context, householdID int64) ([]model.ShoppingListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ShoppingListItem
	for _, it := range f.items {
		if it.HouseholdID == householdID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeList) CountItems(ctx context.Context, householdID int64) (int, error) {
	items, _ := f.ListItems(ctx, householdID)
	if f.onCount != nil {
		f.onCount()
	}
	return len(items), nil
}

func (f *fakeList) GetState(_ context.Context, householdID int64) (*model.ShoppingListState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == nil || f.state.HouseholdID != householdID {
		return nil, nil
	}
	cp := *f.state
	cp.MealServings = slices.Clone(f.state.MealServings)
	return &cp, nil
}

func (f *fakeList) insert(it model.ShoppingListItem) model.ShoppingListItem {
	f.nextID++
	it.ID = f.nextID
	it.CreatedAt = time.Now()
	f.items = append(f.items, it)
	return it
}

func (f *fakeList) bumpState(householdID int64) *model.ShoppingListState {
	if f.state == nil {
		f.state = &model.ShoppingListState{HouseholdID: householdID}
	}
	f.state.Version++
	f.state.UpdatedAt = time.Now()
	return f.state
}

func (f *fakeList) SaveGeneratedList(_ context.Context, g store.GeneratedList) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if g.ClearExisting {
		f.items = slices.DeleteFunc(f.items, func(it model.ShoppingListItem) bool { return it.HouseholdID == g.HouseholdID })
	}
	for _, n := range g.Items {
		f.insert(model.ShoppingListItem{
			HouseholdID:  g.HouseholdID,
			ProductID:    ptr(n.ProductID),
			MealID:       ptr(n.MealID),
			SourceUserID: ptr(n.SourceUserID),
			Name:         n.Name,
			Amount:       n.Amount,
			UnitType:     n.UnitType,
			AddedBy:      g.AddedBy,
		})
	}
	st := f.bumpState(g.HouseholdID)
	st.GeneratedStartDate = ptr(g.StartDate)
	st.GeneratedEndDate = ptr(g.EndDate)
	st.MealServings = slices.Clone(g.Servings)
	return nil
}

func (f *fakeList) ApplyRescale(_ context.Context, r store.DishRescale) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applies++
	if f.applyErr != nil {
		return f.applyErr
	}
	if f.conflicts > 0 {
		f.conflicts--
		return store.ErrVersionConflict
	}
	var current int64
	if f.state != nil {
		current = f.state.Version
	}
	if current != r.ExpectedVersion {
		return store.ErrVersionConflict
	}
	for _, u := range r.Updates {
		for i := range f.items {
			if f.items[i].ID == u.ItemID {
				f.items[i].Amount = u.Amount
			}
		}
	}
	st := f.bumpState(r.HouseholdID)
	st.MealServings = store.PatchServings(st.MealServings, r.Dish, r.Servings)
	return nil
}

func (f *fakeList) SetChecked(_ context.Context, householdID int64, ids []int64, checked bool, by *int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.items {
		it := &f.items[i]
		if it.HouseholdID != householdID || !slices.Contains(ids, it.ID) {
			continue
		}
		it.IsChecked = checked
		it.CheckedBy = nil
		if checked {
			it.CheckedBy = by
		}
		n++
	}
	return n, nil
}

func (f *fakeList) CreateCustomItem(_ context.Context, householdID int64, name string, amount float64, customText *string, addedBy *int64) (*model.ShoppingListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it := f.insert(model.ShoppingListItem{HouseholdID: householdID, Name: name, Amount: amount, CustomAmountText: customText, AddedBy: addedBy})
	return &it, nil
}

func (f *fakeList) DeleteItems(_ context.Context, householdID int64, ids []int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	before := len(f.items)
	f.items = slices.DeleteFunc(f.items, func(it model.ShoppingListItem) bool {
		return it.HouseholdID == householdID && slices.Contains(ids, it.ID)
	})
	return int64(before - len(f.items)), nil
}

func (f *fakeList) DeleteDish(_ context.Context, householdID int64, dish model.DishKey, _ *int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	before := len(f.items)
	f.items = slices.DeleteFunc(f.items, func(it model.ShoppingListItem) bool {
		k, ok := model.DishKeyOf(it)
		return it.HouseholdID == householdID && ok && k == dish
	})
	if f.state != nil {
		st := f.bumpState(householdID)
		st.MealServings = store.RemoveServings(st.MealServings, dish)
	}
	return int64(before - len(f.items)), nil
}

func (f *fakeList) ClearChecked(_ context.Context, householdID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	before := len(f.items)
	f.items = slices.DeleteFunc(f.items, func(it model.ShoppingListItem) bool {
		return it.HouseholdID == householdID && it.IsChecked
	})
	return int64(before - len(f.items)), nil
}

type recorder struct {
	mu   sync.Mutex
	msgs []ws.Message
}

func (r *recorder) Broadcast(msg ws.Message) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.Type)
	}
	return out
}

type fixture struct {
	plans *fakePlans
	ings  *fakeIngredients
	list  *fakeList
	notes *recorder
	svc   *Service
}

func newFixture() *fixture {
	f := &fixture{
		plans: &fakePlans{},
		ings:  newFakeIngredients(),
		list:  &fakeList{},
		notes: &recorder{},
	}
	f.svc = NewService(f.plans, f.ings, f.list, f.notes, discardLogger(), 2)
	return f
}

func (f *fixture) plan(userID int64, date string, cat model.MealCategory, mealID int64) {
	f.plans.entries = append(f.plans.entries, model.MealPlan{
		ID:          int64(len(f.plans.entries) + 1),
		HouseholdID: 1,
		UserID:      userID,
		Date:        date,
		MealType:    cat,
		MealID:      mealID,
	})
}

// dishItem seeds a generated item directly.
func (f *fixture) dishItem(mealID, userID int64, p *model.Product, amount float64, checked bool) model.ShoppingListItem {
	f.list.mu.Lock()
	defer f.list.mu.Unlock()
	return f.list.insert(model.ShoppingListItem{
		HouseholdID:     1,
		ProductID:       ptr(p.ID),
		MealID:          ptr(mealID),
		SourceUserID:    ptr(userID),
		Name:            p.Name,
		Amount:          amount,
		UnitType:        string(p.UnitType),
		IsChecked:       checked,
		ProductCategory: p.Category,
	})
}
