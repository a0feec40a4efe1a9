package api

import (
	"context"
	"os"
	"strings"

	"fleetsim/internal/auth"
	"fleetsim/internal/config"
	"fleetsim/internal/store"
	"fleetsim/internal/webhooks"
)

type Server struct {
	Store  store.Store
	Pub    *webhooks.Publisher
	Auth   *auth.Verifier
	Broker EventBroker
	Cfg    config.Config
}

// NewServer wires the server's dependencies. If DATABASE_URL is unset, uses
// the in-memory store; if REDIS_URL is unset, uses the in-process broker.
func NewServer(cfg config.Config) (*Server, error) {
	dsn := os.Getenv("DATABASE_URL")
	var s store.Store
	if strings.TrimSpace(dsn) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		// Run migrations (dev helper)
		if os.Getenv("DB_MIGRATE") != "false" {
			_ = sp.Migrate(context.Background())
		}
		s = sp
	}
	var broker EventBroker
	if os.Getenv("REDIS_URL") != "" {
		if rb, err := NewRedisBroker(); err == nil {
			broker = rb
		} else {
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}
	return &Server{Store: s, Pub: webhooks.NewPublisher(s), Auth: auth.NewVerifierFromEnv(), Broker: broker, Cfg: cfg}, nil
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store)
}
