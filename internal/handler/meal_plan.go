package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/potluck/internal/auth"
	"github.com/dukerupert/potluck/internal/model"
	"github.com/dukerupert/potluck/internal/planner"
)

type MealPlanHandler struct {
	planner  *planner.Planner
	validate *validator.Validate
	logger   *slog.Logger
}

func NewMealPlanHandler(p *planner.Planner, validate *validator.Validate, logger *slog.Logger) *MealPlanHandler {
	return &MealPlanHandler{planner: p, validate: validate, logger: logger}
}

func (h *MealPlanHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, planner.ErrNotFound), errors.Is(err, planner.ErrMealNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, planner.ErrNotMember):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, planner.ErrInvalidDate),
		errors.Is(err, planner.ErrInvalidCategory),
		errors.Is(err, planner.ErrCategoryMismatch):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("meal plan", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// dayParams reads ?date= and ?user_id=, defaulting the user to the caller.
func dayParams(r *http.Request) (int64, string, error) {
	q := r.URL.Query()
	userID := auth.UserID(r.Context())
	if s := q.Get("user_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, "", errors.New("invalid user_id")
		}
		userID = id
	}
	date := q.Get("date")
	if date == "" {
		return 0, "", errors.New("date is required")
	}
	return userID, date, nil
}

func (h *MealPlanHandler) Day(w http.ResponseWriter, r *http.Request) {
	userID, date, err := dayParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.planner.Day(r.Context(), auth.HouseholdID(r.Context()), userID, date)
	if err != nil {
		h.fail(w, err)
		return
	}
	if entries == nil {
		entries = []model.MealPlan{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type selectMealRequest struct {
	UserID   int64  `json:"user_id" validate:"omitempty,gt=0"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	MealType string `json:"meal_type" validate:"required,oneof=breakfast second_breakfast lunch dinner snack"`
	MealID   int64  `json:"meal_id" validate:"required,gt=0"`
}

func (h *MealPlanHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req selectMealRequest
	if !decodeValid(w, r, h.validate, &req) {
		return
	}
	ac, _ := auth.FromContext(r.Context())
	if req.UserID == 0 {
		req.UserID = ac.UserID
	}

	entry, err := h.planner.SelectMeal(r.Context(), ac.HouseholdID, req.UserID, req.Date, model.MealCategory(req.MealType), req.MealID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *MealPlanHandler) ToggleConsumed(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	entry, err := h.planner.ToggleConsumed(r.Context(), auth.HouseholdID(r.Context()), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *MealPlanHandler) ToggleSkipped(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	entry, err := h.planner.ToggleSkipped(r.Context(), auth.HouseholdID(r.Context()), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *MealPlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.planner.Clear(r.Context(), auth.HouseholdID(r.Context()), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type copyDayRequest struct {
	FromUserID int64  `json:"from_user_id" validate:"omitempty,gt=0"`
	FromDate   string `json:"from_date" validate:"required,datetime=2006-01-02"`
	ToUserID   int64  `json:"to_user_id" validate:"omitempty,gt=0"`
	ToDate     string `json:"to_date" validate:"required,datetime=2006-01-02"`
	Replace    bool   `json:"replace"`
}

func (h *MealPlanHandler) Copy(w http.ResponseWriter, r *http.Request) {
	var req copyDayRequest
	if !decodeValid(w, r, h.validate, &req) {
		return
	}
	ac, _ := auth.FromContext(r.Context())
	if req.FromUserID == 0 {
		req.FromUserID = ac.UserID
	}
	if req.ToUserID == 0 {
		req.ToUserID = ac.UserID
	}

	n, err := h.planner.CopyDay(r.Context(), ac.HouseholdID, planner.CopyRequest{
		FromUserID: req.FromUserID,
		FromDate:   req.FromDate,
		ToUserID:   req.ToUserID,
		ToDate:     req.ToDate,
		Replace:    req.Replace,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"copied": n})
}

func (h *MealPlanHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, date, err := dayParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.planner.Summary(r.Context(), auth.HouseholdID(r.Context()), userID, date)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
