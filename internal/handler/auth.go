package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/potluck/internal/auth"
	"github.com/dukerupert/potluck/internal/middleware"
	"github.com/dukerupert/potluck/internal/model"
)

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
}

type MembershipLookup interface {
	FirstMembership(ctx context.Context, userID int64) (*model.HouseholdMember, error)
}

type SessionManager interface {
	Create(ctx context.Context, userID, householdID int64) (*model.Session, error)
	Delete(ctx context.Context, id int64) error
}

type AuthHandler struct {
	users    Authenticator
	members  MembershipLookup
	sessions SessionManager
	validate *validator.Validate
	logger   *slog.Logger
}

func NewAuthHandler(users Authenticator, members MembershipLookup, sessions SessionManager, validate *validator.Validate, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, members: members, sessions: sessions, validate: validate, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeValid(w, r, h.validate, &req) {
		return
	}

	user, err := h.users.Authenticate(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	member, err := h.members.FirstMembership(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("login membership", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if member == nil {
		writeError(w, http.StatusForbidden, "not a member of any household")
		return
	}

	sess, err := h.sessions.Create(r.Context(), user.ID, member.HouseholdID)
	if err != nil {
		h.logger.Error("create session", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	h.logger.Info("user logged in", "user_id", user.ID, "household_id", member.HouseholdID)
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":      user.ID,
		"household_id": member.HouseholdID,
		"name":         user.Name,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if ac, ok := auth.FromContext(r.Context()); ok {
		if err := h.sessions.Delete(r.Context(), ac.SessionID); err != nil {
			h.logger.Error("delete session", "session_id", ac.SessionID, "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
