package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/example/carpool/config"
	"github.com/example/carpool/internal/events"
	"github.com/example/carpool/internal/handler"
	"github.com/example/carpool/internal/middleware"
	"github.com/example/carpool/internal/repository"
	"github.com/example/carpool/internal/service"
	"github.com/example/carpool/pkg/cache"
	"github.com/example/carpool/pkg/db"
)

func main() {
	// ── Load configuration ──────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// ── Connect to PostgreSQL ───────────────────────────
	pgPool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("failed to connect to PostgreSQL: %v", err)
	}
	defer pgPool.Close()
	log.Println("✓ PostgreSQL connected")

	// ── Connect to Redis ────────────────────────────────
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("✓ Redis connected")

	// ── Connect to RabbitMQ (optional) ──────────────────
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		rabbit, err := events.NewRabbitPublisher(cfg.RabbitMQ.URL)
		if err != nil {
			log.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		defer rabbit.Close()
		publisher = rabbit
		log.Println("✓ RabbitMQ connected")
	} else {
		log.Println("· RabbitMQ not configured; allocation events disabled")
	}

	// ── Initialize layers ───────────────────────────────
	ledger := repository.NewPostgresLedger(pgPool)
	tripRepo := repository.NewTripRepository(pgPool, redisClient)
	passengerDir := repository.NewPostgresPassengerDirectory(pgPool)
	locationResolver := repository.NewPostgresLocationResolver(pgPool)

	capacity := service.NewCapacityTracker(tripRepo, ledger)
	promoter := service.NewWaitlistPromoter(ledger, capacity, publisher)
	engine := service.NewAllocationEngine(
		ledger, tripRepo, passengerDir, locationResolver,
		capacity, promoter, publisher,
	)

	requestHandler := handler.NewRequestHandler(engine)
	decisionHandler := handler.NewDecisionHandler(engine)
	tripHandler := handler.NewTripHandler(tripRepo, engine)

	// ── Setup router ────────────────────────────────────
	router := mux.NewRouter()

	// Operational endpoints.
	router.HandleFunc("/health", healthHandler(pgPool, redisClient)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// API v1 routes.
	api := router.PathPrefix("/api/v1").Subrouter()

	// Trip management (thin collaborator; owns trip rows).
	api.HandleFunc("/trips", tripHandler.CreateTrip).Methods(http.MethodPost)
	api.HandleFunc("/trips", tripHandler.ListTrips).Methods(http.MethodGet)
	api.HandleFunc("/trips/{id}", tripHandler.GetTrip).Methods(http.MethodGet)
	api.HandleFunc("/trips/{id}", tripHandler.UpdateTrip).Methods(http.MethodPut)
	api.HandleFunc("/trips/{id}", tripHandler.DeleteTrip).Methods(http.MethodDelete)
	api.HandleFunc("/trips/{id}/cancel", tripHandler.CancelTrip).Methods(http.MethodPost)
	api.HandleFunc("/trips/{id}/seats", tripHandler.AvailableSeats).Methods(http.MethodGet)
	api.HandleFunc("/trips/{id}/requests", decisionHandler.ListTripRequests).Methods(http.MethodGet)

	// Seat request lifecycle.
	api.HandleFunc("/requests", requestHandler.CreateRequest).Methods(http.MethodPost)
	api.HandleFunc("/requests/{id}", requestHandler.GetRequest).Methods(http.MethodGet)
	api.HandleFunc("/requests/{id}/cancel", requestHandler.CancelRequest).Methods(http.MethodPost)
	api.HandleFunc("/requests/{id}/accept", decisionHandler.Accept).Methods(http.MethodPost)
	api.HandleFunc("/requests/{id}/reject", decisionHandler.Reject).Methods(http.MethodPost)
	api.HandleFunc("/requests/{id}/waitlist", decisionHandler.MoveToWaitingList).Methods(http.MethodPost)
	api.HandleFunc("/passengers/{id}/requests", requestHandler.ListByPassenger).Methods(http.MethodGet)

	api.Use(middleware.Metrics)

	// Wrap with logging, panic recovery and CORS.
	root := middleware.CORS(middleware.Recoverer(middleware.RequestLogger(router)))

	// ── Start HTTP server ───────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.ServerAddr(),
		Handler:      root,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in a goroutine so we can listen for shutdown signals.
	go func() {
		log.Printf("🚀 Server listening on %s", cfg.Server.ServerAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// ── Graceful shutdown ───────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("⏳ Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("✅ Server gracefully stopped")
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// healthHandler returns an HTTP handler that checks PG and Redis connectivity.
func healthHandler(pgPool *pgxpool.Pool, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:   "ok",
			Services: make(map[string]string),
		}

		if err := db.HealthCheck(r.Context(), pgPool); err != nil {
			resp.Status = "degraded"
			resp.Services["postgres"] = "unhealthy: " + err.Error()
		} else {
			resp.Services["postgres"] = "healthy"
		}

		if err := cache.HealthCheck(r.Context(), redisClient); err != nil {
			resp.Status = "degraded"
			resp.Services["redis"] = "unhealthy: " + err.Error()
		} else {
			resp.Services["redis"] = "healthy"
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(resp)
	}
}
