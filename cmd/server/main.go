package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tabletennis/internal/config"
	"tabletennis/internal/db"
	"tabletennis/internal/events"
	"tabletennis/internal/handlers"
	"tabletennis/internal/license"
	"tabletennis/internal/logging"
	"tabletennis/internal/notify"
	"tabletennis/internal/reminder"
	"tabletennis/internal/services"
	"tabletennis/internal/store"
	"tabletennis/internal/websocket"

	"github.com/rs/zerolog/log"
)

func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load log config")
	}
	logging.Init(logCfg)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	loc, _ := cfg.Location()
	fee, _ := cfg.TournamentFeeAmount()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	defer database.Close()

	users := store.NewUserStore(database)
	accounts := store.NewAccountStore(database)
	transactions := store.NewTransactionStore(database)
	reservations := store.NewReservationStore(database)
	calendarStore := store.NewCalendarStore(database)
	pairings := store.NewPairingStore(database)
	tournaments := store.NewTournamentStore(database)
	messages := store.NewMessageStore(database)
	audit := store.NewAuditStore(database)
	licenses := store.NewLicenseStore(database)
	reviews := store.NewReviewStore(database)
	txRunner := db.NewTxRunner(database)

	var publisher events.Sink = events.Noop{}
	if cfg.RabbitMQURL != "" {
		publisher = events.NewPublisher(cfg.RabbitMQURL, events.DefaultExchange)
	}
	defer publisher.Close()

	hub := websocket.NewHub()
	notifier := notify.New(messages, hub)
	effects := services.Effects{
		Notifier: notifier,
		Audit:    audit,
		Events:   publisher,
		Hub:      hub,
	}

	ledger := services.NewLedgerService(txRunner, accounts, transactions, effects)
	calendar := services.NewCalendarService(calendarStore)
	quota := services.NewQuotaTracker(reservations, cfg.CancelMonthlyQuota, loc, nil)
	reservationService := services.NewReservationService(
		txRunner,
		reservations,
		calendar,
		pairings,
		users,
		ledger,
		quota,
		services.CancelRules{LeadTime: cfg.CancelLead(), RequestTTL: cfg.CancelRequestTTL},
		effects,
		nil,
	)
	tournamentService := services.NewTournamentService(txRunner, tournaments, ledger, effects, fee, loc, nil)
	pairingService := services.NewPairingService(txRunner, pairings, effects)
	messageService := services.NewMessageService(messages)
	reviewService := services.NewReviewService(txRunner, reviews, reservations, effects, nil)

	licenseCache := license.NewCache(licenses, loc, nil)
	if err := licenseCache.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("initial license check failed")
	}
	go licenseCache.Run(ctx, cfg.LicenseRefresh)

	var claimer reminder.Claimer
	if client := reminder.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); client != nil {
		defer client.Close()
		claimer = reminder.NewRedisClaimer(client)
	}
	scanner := reminder.NewScanner(reservations, messages, notifier, claimer, cfg.ReminderLead, nil)
	go scanner.Run(ctx, cfg.ReminderInterval)

	handler := handlers.New(cfg, handlers.Deps{
		Reservations: reservationService,
		Quota:        quota,
		Calendar:     calendar,
		Ledger:       ledger,
		Tournament:   tournamentService,
		Pairing:      pairingService,
		Messages:     messageService,
		Reviews:      reviewService,
		Users:        users,
		Audit:        audit,
		License:      licenseCache,
		Licenses:     licenses,
	}, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Str("env", cfg.AppEnv).Msg("table tennis API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
		os.Exit(1)
	}
}
