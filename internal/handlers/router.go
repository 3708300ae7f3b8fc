package handlers

import (
	"net/http"

	"tabletennis/internal/config"
	"tabletennis/internal/license"
	"tabletennis/internal/middleware"
	"tabletennis/internal/models"
	"tabletennis/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	gws "github.com/gorilla/websocket"
)

type Handler struct {
	cfg          config.Config
	reservations ReservationService
	quota        QuotaService
	calendar     CalendarService
	ledger       LedgerService
	tournament   TournamentService
	pairing      PairingService
	messages     MessageService
	reviews      ReviewService
	users        UserStore
	audit        AuditStore
	license      *license.Cache
	licenses     LicenseWriter
	hub          *websocket.Hub
	upgrader     gws.Upgrader
}

func New(cfg config.Config, deps Deps, hub *websocket.Hub) *Handler {
	return &Handler{
		cfg:          cfg,
		reservations: deps.Reservations,
		quota:        deps.Quota,
		calendar:     deps.Calendar,
		ledger:       deps.Ledger,
		tournament:   deps.Tournament,
		pairing:      deps.Pairing,
		messages:     deps.Messages,
		reviews:      deps.Reviews,
		users:        deps.Users,
		audit:        deps.Audit,
		license:      deps.License,
		licenses:     deps.Licenses,
		hub:          hub,
		upgrader:     websocket.NewUpgrader(cfg.Origins()),
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.RequestLogger)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if h.license != nil {
		router.Use(license.Gate(h.license, h.cfg.LicenseEnforce))
	}

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Get("/api/license/status", h.LicenseStatus)
	router.With(middleware.Auth(h.cfg.JWTSecret), middleware.RequireAdmin(h.users, models.RoleSuperAdmin)).
		Post("/api/license/activate", h.ActivateLicense)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Get("/ws", h.WS)

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", h.CreateReservation)
			r.Get("/", h.ListReservations)
			r.Get("/cancel/quota", h.CancelQuota)
			r.Get("/{id}", h.GetReservation)
			r.Post("/{id}/confirm", h.ConfirmReservation)
			r.Post("/{id}/reject", h.RejectReservation)
			r.Post("/{id}/complete", h.CompleteReservation)
			r.Post("/{id}/cancel", h.CancelReservation)
		})
		r.Get("/tables/available", h.AvailableTables)

		r.Route("/tournament", func(r chi.Router) {
			r.Get("/info", h.TournamentInfo)
			r.Get("/participants", h.TournamentParticipants)
			r.Post("/signup", h.TournamentSignup)
			r.Post("/schedule", h.GenerateSchedule)
		})
		r.Get("/schedule", h.TournamentSchedule)

		r.Route("/account", func(r chi.Router) {
			r.Post("/recharge", h.Recharge)
			r.Get("/{user_id}", h.GetBalance)
			r.Get("/{user_id}/transactions", h.ListTransactions)
			r.Get("/{user_id}/self-check", h.SelfCheck)
		})

		r.Route("/coach/select", func(r chi.Router) {
			r.Post("/", h.SelectCoach)
			r.Post("/approve", h.DecidePairing)
			r.Get("/pending", h.PendingPairings)
		})

		r.Route("/messages", func(r chi.Router) {
			r.Get("/", h.ListMessages)
			r.Post("/read-all", h.MarkAllMessagesRead)
			r.Post("/{id}/read", h.MarkMessageRead)
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Post("/", h.SubmitReview)
			r.Get("/", h.ListReviews)
			r.Get("/pending", h.PendingReviews)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(h.users, ""))
			r.Post("/reservations/{id}/cancel", h.AdminCancelReservation)
			r.Get("/audit", h.ListAuditLogs)
		})
	})
	return router
}
