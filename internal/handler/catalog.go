package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/potluck/internal/auth"
	"github.com/dukerupert/potluck/internal/model"
	"github.com/dukerupert/potluck/internal/store"
)

type ProductCatalog interface {
	Create(ctx context.Context, p model.Product) (*model.Product, error)
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	ListByHousehold(ctx context.Context, householdID int64) ([]model.Product, error)
}

type MealCatalog interface {
	CreateWithItems(ctx context.Context, m model.Meal, items []store.IngredientInput) (*model.Meal, error)
	GetByID(ctx context.Context, id int64) (*model.Meal, error)
	ListByHousehold(ctx context.Context, householdID int64) ([]model.Meal, error)
	ListItems(ctx context.Context, mealID int64) ([]model.MealItem, error)
	ListOverrides(ctx context.Context, mealID, userID int64) ([]model.MealItemOverride, error)
	ReplaceOverrides(ctx context.Context, mealID, userID int64, items []store.IngredientInput) error
}

// CatalogHandler serves the household's products and meals.
type CatalogHandler struct {
	products ProductCatalog
	meals    MealCatalog
	validate *validator.Validate
	logger   *slog.Logger
}

func NewCatalogHandler(products ProductCatalog, meals MealCatalog, validate *validator.Validate, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{products: products, meals: meals, validate: validate, logger: logger}
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListByHousehold(r.Context(), auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("list products", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

type createProductRequest struct {
	Name            string   `json:"name" validate:"required,max=200"`
	Category        string   `json:"category" validate:"max=100"`
	UnitType        string   `json:"unit_type" validate:"omitempty,oneof=100g piece tablespoon teaspoon"`
	UnitWeightGrams *float64 `json:"unit_weight_grams" validate:"omitempty,gt=0"`
	KcalPerUnit     float64  `json:"kcal_per_unit" validate:"gte=0"`
	Protein         *float64 `json:"protein" validate:"omitempty,gte=0"`
	Fat             *float64 `json:"fat" validate:"omitempty,gte=0"`
	Carbs           *float64 `json:"carbs" validate:"omitempty,gte=0"`
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if !decodeValid(w, r, h.validate, &req) {
		return
	}

	userID := auth.UserID(r.Context())
	p, err := h.products.Create(r.Context(), model.Product{
		HouseholdID:     auth.HouseholdID(r.Context()),
		Name:            req.Name,
		Category:        req.Category,
		UnitType:        model.UnitType(req.UnitType),
		UnitWeightGrams: req.UnitWeightGrams,
		KcalPerUnit:     req.KcalPerUnit,
		Protein:         req.Protein,
		Fat:             req.Fat,
		Carbs:           req.Carbs,
		CreatedBy:       &userID,
	})
	if err != nil {
		h.logger.Error("create product", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

type ingredientRequest struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Amount    float64 `json:"amount" validate:"gt=0"`
	UnitType  string  `json:"unit_type" validate:"omitempty,oneof=100g piece tablespoon teaspoon"`
}

// mealWithItems is a meal together with its base recipe.
type mealWithItems struct {
	model.Meal
	Items []model.MealItem `json:"items"`
}

func (h *CatalogHandler) ListMeals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	meals, err := h.meals.ListByHousehold(ctx, auth.HouseholdID(ctx))
	if err != nil {
		h.logger.Error("list meals", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]mealWithItems, 0, len(meals))
	for _, m := range meals {
		items, err := h.meals.ListItems(ctx, m.ID)
		if err != nil {
			h.logger.Error("list meal items", "meal_id", m.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if items == nil {
			items = []model.MealItem{}
		}
		out = append(out, mealWithItems{Meal: m, Items: items})
	}
	writeJSON(w, http.StatusOK, out)
}

type createMealRequest struct {
	Name                  string              `json:"name" validate:"required,max=200"`
	Description           string              `json:"description" validate:"max=2000"`
	PrimaryCategory       string              `json:"primary_category" validate:"required,oneof=breakfast second_breakfast lunch dinner snack"`
	AlternativeCategories []string            `json:"alternative_categories" validate:"dive,oneof=breakfast second_breakfast lunch dinner snack"`
	Items                 []ingredientRequest `json:"items" validate:"dive"`
}

func (h *CatalogHandler) CreateMeal(w http.ResponseWriter, r *http.Request) {
	var req createMealRequest
	if !decodeValid(w, r, h.validate, &req) {
		return
	}

	ctx := r.Context()
	householdID := auth.HouseholdID(ctx)
	items, ok := h.ingredients(ctx, w, householdID, req.Items)
	if !ok {
		return
	}
	alternatives := make([]model.MealCategory, 0, len(req.AlternativeCategories))
	for _, c := range req.AlternativeCategories {
		alternatives = append(alternatives, model.MealCategory(c))
	}

	userID := auth.UserID(ctx)
	m, err := h.meals.CreateWithItems(ctx, model.Meal{
		HouseholdID:           householdID,
		Name:                  req.Name,
		Description:           req.Description,
		PrimaryCategory:       model.MealCategory(req.PrimaryCategory),
		AlternativeCategories: alternatives,
		CreatedBy:             &userID,
	}, items)
	if err != nil {
		h.logger.Error("create meal", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	saved, err := h.meals.ListItems(ctx, m.ID)
	if err != nil {
		h.logger.Error("list meal items", "meal_id", m.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if saved == nil {
		saved = []model.MealItem{}
	}
	writeJSON(w, http.StatusCreated, mealWithItems{Meal: *m, Items: saved})
}

type replaceOverridesRequest struct {
	Items []ingredientRequest `json:"items" validate:"dive"`
}

// ReplaceOverrides swaps the caller's personal version of a meal. An empty
// item list restores the base recipe for them.
func (h *CatalogHandler) ReplaceOverrides(w http.ResponseWriter, r *http.Request) {
	mealID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid meal ID")
		return
	}
	var req replaceOverridesRequest
	if !decodeValid(w, r, h.validate, &req) {
		return
	}

	ctx := r.Context()
	householdID := auth.HouseholdID(ctx)
	m, err := h.meals.GetByID(ctx, mealID)
	if err != nil {
		h.logger.Error("get meal", "meal_id", mealID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if m == nil || m.HouseholdID != householdID {
		writeError(w, http.StatusNotFound, "meal not found")
		return
	}

	items, ok := h.ingredients(ctx, w, householdID, req.Items)
	if !ok {
		return
	}
	userID := auth.UserID(ctx)
	if err := h.meals.ReplaceOverrides(ctx, mealID, userID, items); err != nil {
		h.logger.Error("replace overrides", "meal_id", mealID, "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	overrides, err := h.meals.ListOverrides(ctx, mealID, userID)
	if err != nil {
		h.logger.Error("list overrides", "meal_id", mealID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if overrides == nil {
		overrides = []model.MealItemOverride{}
	}
	writeJSON(w, http.StatusOK, overrides)
}

// ingredients checks that every product belongs to the household and fills
// in the product's unit where the request left it out. It writes a 400 and
// returns false on the first foreign or unknown product.
func (h *CatalogHandler) ingredients(ctx context.Context, w http.ResponseWriter, householdID int64, reqs []ingredientRequest) ([]store.IngredientInput, bool) {
	out := make([]store.IngredientInput, 0, len(reqs))
	for _, it := range reqs {
		p, err := h.products.GetByID(ctx, it.ProductID)
		if err != nil {
			h.logger.Error("get product", "product_id", it.ProductID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return nil, false
		}
		if p == nil || p.HouseholdID != householdID {
			writeError(w, http.StatusBadRequest, "unknown product")
			return nil, false
		}
		unit := model.UnitType(it.UnitType)
		if unit == "" {
			unit = p.UnitType
		}
		out = append(out, store.IngredientInput{ProductID: p.ID, Amount: it.Amount, UnitType: unit})
	}
	return out, true
}
