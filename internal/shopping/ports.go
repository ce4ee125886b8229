package shopping

import (
	"context"

	"github.com/dukerupert/potluck/internal/model"
	"github.com/dukerupert/potluck/internal/store"
	ws "github.com/dukerupert/potluck/internal/websocket"
)

// PlanSource reads meal-plan entries.
type PlanSource interface {
	ListRange(ctx context.Context, householdID int64, userIDs []int64, start, end string) ([]model.MealPlan, error)
}

// IngredientSource reads a meal's base recipe and members' overrides.
type IngredientSource interface {
	ListItems(ctx context.Context, mealID int64) ([]model.MealItem, error)
	ListOverrides(ctx context.Context, mealID, userID int64) ([]model.MealItemOverride, error)
}

// ListStore persists shopping list items and the per-household list state.
type ListStore interface {
	ListItems(ctx context.Context, householdID int64) ([]model.ShoppingListItem, error)
	CountItems(ctx context.Context, householdID int64) (int, error)
	GetState(ctx context.Context, householdID int64) (*model.ShoppingListState, error)
	SaveGeneratedList(ctx context.Context, g store.GeneratedList) error
	ApplyRescale(ctx context.Context, r store.DishRescale) error
	SetChecked(ctx context.Context, householdID int64, ids []int64, checked bool, by *int64) (int64, error)
	CreateCustomItem(ctx context.Context, householdID int64, name string, amount float64, customText *string, addedBy *int64) (*model.ShoppingListItem, error)
	DeleteItems(ctx context.Context, householdID int64, ids []int64) (int64, error)
	DeleteDish(ctx context.Context, householdID int64, dish model.DishKey, by *int64) (int64, error)
	ClearChecked(ctx context.Context, householdID int64) (int64, error)
}

// Notifier publishes change notifications to a household's subscribers.
type Notifier interface {
	Broadcast(msg ws.Message)
}

// Subscriber delivers a household's change notifications until cancel is called.
type Subscriber interface {
	Subscribe(householdID int64) (<-chan ws.Message, func())
}

// Entity names carried by shopping list notifications.
const (
	EntityItem  = "shopping_list_item"
	EntityState = "shopping_list_state"
)
