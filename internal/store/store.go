// Package store persists scenarios, runs, webhook subscriptions, and the
// webhook delivery queue. Memory backs development and tests; Postgres backs
// deployments with a DATABASE_URL.
package store

import (
	"context"
	"errors"
	"time"

	"fleetsim/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// Scenarios
	CreateScenario(ctx context.Context, sc *model.Scenario) error
	GetScenario(ctx context.Context, id string) (model.Scenario, error)
	ListScenarios(ctx context.Context, cursor string, limit int) ([]model.Scenario, string, error)
	DeleteScenario(ctx context.Context, id string) error

	// Runs
	CreateRun(ctx context.Context, r *model.Run) error
	UpdateRun(ctx context.Context, r *model.Run) error
	GetRun(ctx context.Context, id string) (model.Run, error)
	ListRuns(ctx context.Context, scenarioID, cursor string, limit int) ([]model.Run, string, error)

	// Subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error)
	ListSubscriptions(ctx context.Context, cursor string, limit int) ([]model.Subscription, string, error)
	DeleteSubscription(ctx context.Context, id string) error

	// Webhook deliveries
	EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int) error
	FailWebhookDelivery(ctx context.Context, id, lastError string, responseCode int) error

	Ping(ctx context.Context) error
}

// WebhookDelivery is one queued outbound event notification.
type WebhookDelivery struct {
	ID             string
	SubscriptionID string
	EventType      string
	URL            string
	Secret         string
	Payload        []byte
	Status         string // pending, retry, delivered, failed
	Attempts       int
}

var ErrNotFound = errors.New("not found")
