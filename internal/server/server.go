package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/potluck/internal/config"
	"github.com/dukerupert/potluck/internal/handler"
	"github.com/dukerupert/potluck/internal/middleware"
	"github.com/dukerupert/potluck/internal/planner"
	"github.com/dukerupert/potluck/internal/shopping"
	"github.com/dukerupert/potluck/internal/store"
	ws "github.com/dukerupert/potluck/internal/websocket"
)

const (
	loginLimit  = 10
	loginWindow = time.Minute
)

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	authH          *handler.AuthHandler
	shoppingH      *handler.ShoppingHandler
	mealPlanH      *handler.MealPlanHandler
	catalogH       *handler.CatalogHandler
	sessionStore   *store.SessionStore
	householdStore *store.HouseholdStore
	rateLimiter    *middleware.RateLimiter
	allowedOrigins []string
	logger         *slog.Logger
}

func New(db *sql.DB, cfg config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	validate := handler.NewValidator()

	userStore := store.NewUserStore(db)
	householdStore := store.NewHouseholdStore(db)
	sessionStore := store.NewSessionStore(db)
	productStore := store.NewProductStore(db)
	mealStore := store.NewMealStore(db)
	mealPlanStore := store.NewMealPlanStore(db)
	shoppingStore := store.NewShoppingStore(db)

	shoppingLogger := logger.With("component", "shopping")
	shoppingSvc := shopping.NewService(mealPlanStore, mealStore, shoppingStore, hub, shoppingLogger, cfg.ResolveConcurrency)
	watcher := shopping.NewWatcher(shoppingSvc, hub, cfg.RefreshInterval, shoppingLogger.With("subsystem", "watcher"))
	mealPlanner := planner.New(mealPlanStore, mealStore, householdStore, mealStore, hub, logger.With("component", "planner"))

	return &Server{
		db:             db,
		hub:            hub,
		authH:          handler.NewAuthHandler(userStore, householdStore, sessionStore, validate, logger.With("component", "auth")),
		shoppingH:      handler.NewShoppingHandler(shoppingSvc, watcher, householdStore, validate, logger.With("component", "shopping_handler")),
		mealPlanH:      handler.NewMealPlanHandler(mealPlanner, validate, logger.With("component", "meal_plan_handler")),
		catalogH:       handler.NewCatalogHandler(productStore, mealStore, validate, logger.With("component", "catalog_handler")),
		sessionStore:   sessionStore,
		householdStore: householdStore,
		rateLimiter:    middleware.NewRateLimiter(),
		allowedOrigins: cfg.AllowedOrigins,
		logger:         logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.Handle("POST /login", middleware.RateLimit(s.rateLimiter, middleware.ByIP, loginLimit, loginWindow)(http.HandlerFunc(s.authH.Login)))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.householdStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestID(middleware.RequestLogger(s.logger.With("component", "http"))(outerMux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)

	// Shopping list
	mux.HandleFunc("POST /api/shopping-list/generate", s.shoppingH.Generate)
	mux.HandleFunc("GET /api/shopping-list", s.shoppingH.List)
	mux.HandleFunc("POST /api/shopping-list/items", s.shoppingH.AddItem)
	mux.HandleFunc("DELETE /api/shopping-list/items", s.shoppingH.DeleteItems)
	mux.HandleFunc("POST /api/shopping-list/check", s.shoppingH.Check)
	mux.HandleFunc("POST /api/shopping-list/dishes/servings", s.shoppingH.SetServings)
	mux.HandleFunc("DELETE /api/shopping-list/dishes", s.shoppingH.DeleteDish)
	mux.HandleFunc("POST /api/shopping-list/clear-checked", s.shoppingH.ClearChecked)

	// Catalog
	mux.HandleFunc("GET /api/products", s.catalogH.ListProducts)
	mux.HandleFunc("POST /api/products", s.catalogH.CreateProduct)
	mux.HandleFunc("GET /api/meals", s.catalogH.ListMeals)
	mux.HandleFunc("POST /api/meals", s.catalogH.CreateMeal)
	mux.HandleFunc("PUT /api/meals/{id}/overrides", s.catalogH.ReplaceOverrides)

	// Meal plan
	mux.HandleFunc("GET /api/meal-plan", s.mealPlanH.Day)
	mux.HandleFunc("PUT /api/meal-plan", s.mealPlanH.Select)
	mux.HandleFunc("GET /api/meal-plan/summary", s.mealPlanH.Summary)
	mux.HandleFunc("POST /api/meal-plan/copy", s.mealPlanH.Copy)
	mux.HandleFunc("POST /api/meal-plan/{id}/consumed", s.mealPlanH.ToggleConsumed)
	mux.HandleFunc("POST /api/meal-plan/{id}/skipped", s.mealPlanH.ToggleSkipped)
	mux.HandleFunc("DELETE /api/meal-plan/{id}", s.mealPlanH.Delete)

	// Realtime
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.allowedOrigins))
	mux.HandleFunc("GET /ws/shopping-list", ws.HandleStream(s.hub, s.allowedOrigins, s.shoppingH.Stream))
}
