package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/potluck/internal/auth"
	"github.com/dukerupert/potluck/internal/model"
	"github.com/dukerupert/potluck/internal/shopping"
	"github.com/dukerupert/potluck/internal/store"
	ws "github.com/dukerupert/potluck/internal/websocket"
)

// MemberNamer labels dish groups with member names.
type MemberNamer interface {
	MemberNames(ctx context.Context, householdID int64) (map[int64]string, error)
}

type ShoppingHandler struct {
	service  *shopping.Service
	watcher  *shopping.Watcher
	members  MemberNamer
	validate *validator.Validate
	logger   *slog.Logger
}

func NewShoppingHandler(service *shopping.Service, watcher *shopping.Watcher, members MemberNamer, validate *validator.Validate, logger *slog.Logger) *ShoppingHandler {
	return &ShoppingHandler{service: service, watcher: watcher, members: members, validate: validate, logger: logger}
}

// fail maps engine errors onto HTTP responses.
func (h *ShoppingHandler) fail(w http.ResponseWriter, err error) {
	var se *shopping.StoreError
	switch {
	case shopping.IsNoData(err):
		writeJSON(w, http.StatusOK, map[string]any{"generated": false, "message": err.Error()})
	case errors.Is(err, shopping.ErrConfirmationRequired):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error(), "confirmation_required": true})
	case errors.Is(err, store.ErrVersionConflict):
		writeError(w, http.StatusConflict, "the shopping list was changed by someone else; reload and try again")
	case errors.Is(err, shopping.ErrNoItems):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, shopping.ErrNoMembers),
		errors.Is(err, shopping.ErrInvalidDate),
		errors.Is(err, shopping.ErrInvalidRange),
		errors.Is(err, shopping.ErrInvalidServings),
		errors.Is(err, shopping.ErrEmptyName):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &se):
		h.logger.Error("shopping list store failure", "op", se.Op, "error", se.Err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not save the shopping list, please retry", "op": se.Op})
	default:
		h.logger.Error("shopping list", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type generateRequest struct {
	Members         []int64 `json:"members" validate:"required,min=1,dive,gt=0"`
	StartDate       string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate         string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	ReplaceExisting bool    `json:"replace_existing"`
}

func (h *ShoppingHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeValid(w, r, h.validate, &req) {
		return
	}
	ac, _ := auth.FromContext(r.Context())

	res, err := h.service.Generate(r.Context(), shopping.GenerateRequest{
		HouseholdID:     ac.HouseholdID,
		UserID:          ac.UserID,
		Members:         req.Members,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		ReplaceExisting: req.ReplaceExisting,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"generated": true, "result": res})
}

func (h *ShoppingHandler) memberNames(r *http.Request, householdID int64, mode shopping.Mode) map[int64]string {
	if mode != shopping.ModeDish {
		return nil
	}
	names, err := h.members.MemberNames(r.Context(), householdID)
	if err != nil {
		// dish groups render without member labels
		h.logger.Warn("load member names", "household_id", householdID, "error", err)
	}
	return names
}

func (h *ShoppingHandler) List(w http.ResponseWriter, r *http.Request) {
	mode, err := shopping.ParseMode(r.URL.Query().Get("group_by"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	householdID := auth.HouseholdID(r.Context())

	view, err := h.service.View(r.Context(), householdID, mode, h.memberNames(r, householdID, mode))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type addItemRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Quantity string `json:"quantity" validate:"max=100"`
}

func (h *ShoppingHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !decodeValid(w, r, h.validate, &req) {
		return
	}
	ac, _ := auth.FromContext(r.Context())

	item, err := h.service.AddCustomItem(r.Context(), ac.HouseholdID, ac.UserID, req.Name, req.Quantity)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

type itemsRequest struct {
	ItemIDs []int64 `json:"item_ids" validate:"required,min=1,dive,gt=0"`
	// Checked forces a state; omitted means toggle.
	Checked *bool `json:"checked"`
}

func (h *ShoppingHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req itemsRequest
	if !decodeValid(w, r, h.validate, &req) {
		return
	}
	ac, _ := auth.FromContext(r.Context())

	if req.Checked != nil {
		if err := h.service.SetChecked(r.Context(), ac.HouseholdID, ac.UserID, req.ItemIDs, *req.Checked); err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"checked": *req.Checked})
		return
	}

	checked, err := h.service.Toggle(r.Context(), ac.HouseholdID, ac.UserID, req.ItemIDs)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"checked": checked})
}

func (h *ShoppingHandler) DeleteItems(w http.ResponseWriter, r *http.Request) {
	var req itemsRequest
	if !decodeValid(w, r, h.validate, &req) {
		return
	}

	n, err := h.service.DeleteItems(r.Context(), auth.HouseholdID(r.Context()), req.ItemIDs)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

type dishRequest struct {
	MealID       int64   `json:"meal_id" validate:"required,gt=0"`
	SourceUserID int64   `json:"source_user_id" validate:"required,gt=0"`
	Servings     float64 `json:"servings"`
}

func (d dishRequest) key() model.DishKey {
	return model.DishKey{MealID: d.MealID, SourceUserID: d.SourceUserID}
}

func (h *ShoppingHandler) SetServings(w http.ResponseWriter, r *http.Request) {
	var req dishRequest
	if !decodeValid(w, r, h.validate, &req) {
		return
	}
	if err := h.validate.Var(req.Servings, "gt=0,lte=1000"); err != nil {
		writeError(w, http.StatusBadRequest, shopping.ErrInvalidServings.Error())
		return
	}
	ac, _ := auth.FromContext(r.Context())

	res, err := h.service.Rescale(r.Context(), shopping.RescaleRequest{
		HouseholdID: ac.HouseholdID,
		UserID:      ac.UserID,
		Dish:        req.key(),
		Servings:    req.Servings,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ShoppingHandler) DeleteDish(w http.ResponseWriter, r *http.Request) {
	var req dishRequest
	if !decodeValid(w, r, h.validate, &req) {
		return
	}
	ac, _ := auth.FromContext(r.Context())

	n, err := h.service.DeleteDish(r.Context(), ac.HouseholdID, ac.UserID, req.key())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (h *ShoppingHandler) ClearChecked(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.ClearChecked(r.Context(), auth.HouseholdID(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// Stream builds the WebSocket producer pushing grouped views of the caller's
// list. It returns nil for an unknown grouping.
func (h *ShoppingHandler) Stream(r *http.Request) ws.StreamFunc {
	mode, err := shopping.ParseMode(r.URL.Query().Get("group_by"))
	if err != nil {
		return nil
	}
	householdID := auth.HouseholdID(r.Context())
	names := h.memberNames(r, householdID, mode)

	return func(ctx context.Context, send func(v any) error) error {
		return h.watcher.Run(ctx, householdID, mode, names, func(v shopping.View) error {
			return send(v)
		})
	}
}
