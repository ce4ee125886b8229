package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dukerupert/potluck/internal/auth"
	"github.com/dukerupert/potluck/internal/model"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "potluck_session"

type SessionLookup interface {
	GetByToken(ctx context.Context, token string) (*model.Session, error)
}

type MemberLookup interface {
	GetMember(ctx context.Context, householdID, userID int64) (*model.HouseholdMember, error)
}

// RequireAuth validates the session cookie and populates AuthContext. API
// and WebSocket requests are refused with 401; page requests are redirected
// to /login.
func RequireAuth(sessions SessionLookup, members MemberLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w, r)
				return
			}

			sess, err := sessions.GetByToken(r.Context(), cookie.Value)
			if err != nil || sess == nil {
				unauthorized(w, r)
				return
			}

			member, err := members.GetMember(r.Context(), sess.HouseholdID, sess.UserID)
			if err != nil || member == nil {
				unauthorized(w, r)
				return
			}

			ac := auth.AuthContext{
				UserID:      sess.UserID,
				HouseholdID: sess.HouseholdID,
				Role:        member.Role,
				SessionID:   sess.ID,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/ws") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"authentication required"}`))
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
