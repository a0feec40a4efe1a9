// Package webhooks fans run lifecycle events out to subscribed endpoints.
// The publisher enqueues one delivery per matching subscription; a background
// worker drains the queue with signed POSTs and exponential backoff.
package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fleetsim/internal/store"
)

type Publisher struct {
	Store store.Store
}

func NewPublisher(s store.Store) *Publisher {
	return &Publisher{Store: s}
}

// Emit queues the event for every subscription that matches eventType.
// Delivery is asynchronous; Emit never blocks on the network.
func (p *Publisher) Emit(ctx context.Context, eventType string, data any) {
	subs, err := p.Store.GetSubscriptionsForEvent(ctx, eventType)
	if err != nil || len(subs) == 0 {
		return
	}
	payload := map[string]any{
		"id":   fmt.Sprintf("evt_%d", time.Now().UnixNano()),
		"type": eventType,
		"ts":   time.Now().UTC().Format(time.RFC3339),
		"data": data,
	}
	body, _ := json.Marshal(payload)
	for _, s := range subs {
		_, _ = p.Store.EnqueueWebhook(ctx, s.ID, eventType, s.URL, s.Secret, body)
	}
}
