package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"fleetsim/internal/api"
	"fleetsim/internal/config"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	srv, err := api.NewServer(cfg)
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	limiter := api.NewRateLimiter(cfg.Server.RateRPS, cfg.Server.RateBurst)

	mux := http.NewServeMux()

	// Scenarios
	mux.HandleFunc("/v1/scenarios", srv.ScenariosHandler)
	mux.HandleFunc("/v1/scenarios/", srv.ScenarioByIDHandler)

	// Runs
	mux.HandleFunc("/v1/runs", limiter.Wrap(srv.RunsHandler))
	mux.HandleFunc("/v1/runs/", srv.RunByIDHandler) // includes /metrics, /events/stream
	mux.HandleFunc("/v1/compare", limiter.Wrap(srv.CompareHandler))

	// Subscriptions
	mux.HandleFunc("/v1/subscriptions", srv.SubscriptionsHandler)
	mux.HandleFunc("/v1/subscriptions/", srv.SubscriptionByIDHandler)

	// Run event WebSocket
	mux.HandleFunc("/v1/ws", srv.RunWSHandler)

	// Health, metrics, debug
	mux.HandleFunc("/healthz", srv.HealthHandler)
	mux.HandleFunc("/readyz", srv.ReadyHandler)
	mux.Handle("/metrics", api.MetricsHandler())
	mux.HandleFunc("/debugz", srv.DebugJSON)

	addr := ":" + cfg.Server.Port

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           api.LogMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("API listening on %s", addr)
	if srv.Pub != nil {
		worker := srv.NewWebhookWorker()
		worker.Start()
	}
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
