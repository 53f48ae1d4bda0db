package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/bbernstein/sbsp-go/internal/bus"
	"github.com/bbernstein/sbsp-go/internal/controller"
	"github.com/bbernstein/sbsp-go/internal/history"
	"github.com/bbernstein/sbsp-go/internal/manager"
)

// Server wires the core (Controller, Manager, Bus, history Log) to an
// HTTP router: a websocket endpoint plus a couple of one-shot
// reconciliation endpoints.
type Server struct {
	controller *controller.Controller
	manager    *manager.Manager
	bus        *bus.Bus
	history    *history.Log

	corsOrigin string
	dev        bool
}

// New constructs a Server. Call Router to obtain the http.Handler to
// serve.
func New(c *controller.Controller, m *manager.Manager, b *bus.Bus, h *history.Log, corsOrigin string, dev bool) *Server {
	return &Server{controller: c, manager: m, bus: b, history: h, corsOrigin: corsOrigin, dev: dev}
}

// Router builds the chi router, grouping middleware and routes the
// same way the teacher's cmd/server/main.go does.
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{s.corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		Debug:            s.dev,
	})
	router.Use(corsMiddleware.Handler)

	router.Get("/health", s.handleHealth)
	router.Get("/ws", s.handleWebSocket)
	router.Get("/api/show/full_state", s.handleFullState)
	router.Get("/api/show/history", s.handleHistory)

	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleFullState(w http.ResponseWriter, r *http.Request) {
	full := wireFullState{
		ShowModel: showModelToWire(s.manager.Snapshot()),
		ShowState: showStateToWire(s.controller.State()),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(full); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
