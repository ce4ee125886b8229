package shopping

import (
	"log/slog"
	"sync"

	ws "github.com/dukerupert/potluck/internal/websocket"
)

const defaultConcurrency = 4

// Service is the shopping list engine: generation, grouping, rescaling and
// list maintenance for every household.
type Service struct {
	plans       PlanSource
	resolver    *Resolver
	list        ListStore
	notifier    Notifier
	logger      *slog.Logger
	concurrency int

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewService wires the engine to its stores. notifier may be nil.
// concurrency bounds parallel ingredient lookups during generation.
func NewService(plans PlanSource, ingredients IngredientSource, list ListStore, notifier Notifier, logger *slog.Logger, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Service{
		plans:       plans,
		resolver:    NewResolver(ingredients),
		list:        list,
		notifier:    notifier,
		logger:      logger,
		concurrency: concurrency,
		locks:       make(map[int64]*sync.Mutex),
	}
}

// householdLock returns the mutex serialising list writes for a household.
func (s *Service) householdLock(householdID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[householdID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[householdID] = l
	}
	return l
}

func (s *Service) notify(householdID int64, entity, action string, id int64, extra map[string]any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Broadcast(ws.NewMessage(householdID, entity, action, id, extra))
}

func userPtr(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
