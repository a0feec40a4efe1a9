package api

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type EventBroker interface {
	Subscribe(runID string) chan RunEvent
	Unsubscribe(runID string, ch chan RunEvent)
	Publish(runID string, evt RunEvent)
}

// RedisBroker implements EventBroker over Redis Pub/Sub so run events reach
// subscribers on other instances.
type RedisBroker struct {
	rdb *redis.Client

	mu   sync.Mutex
	subs map[chan RunEvent]*redis.PubSub
}

func NewRedisBroker() (*RedisBroker, error) {
	opt, err := redis.ParseURL(os.Getenv("REDIS_URL"))
	if err != nil {
		return nil, err
	}
	return &RedisBroker{rdb: redis.NewClient(opt), subs: map[chan RunEvent]*redis.PubSub{}}, nil
}

func (b *RedisBroker) Subscribe(runID string) chan RunEvent {
	ch := make(chan RunEvent, 16)
	ctx := context.Background()
	ps := b.rdb.Subscribe(ctx, b.chanName(runID))
	// initial consume to ensure subscription
	_, _ = ps.Receive(ctx)
	b.mu.Lock()
	b.subs[ch] = ps
	b.mu.Unlock()
	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			var evt RunEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err == nil {
				select {
				case ch <- evt:
				default:
				}
			}
		}
	}()
	return ch
}

// Unsubscribe closes the pubsub; the fanout goroutine then closes ch.
func (b *RedisBroker) Unsubscribe(runID string, ch chan RunEvent) {
	b.mu.Lock()
	ps := b.subs[ch]
	delete(b.subs, ch)
	b.mu.Unlock()
	if ps != nil {
		_ = ps.Close()
	}
}

func (b *RedisBroker) Publish(runID string, evt RunEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, _ := json.Marshal(evt)
	_ = b.rdb.Publish(ctx, b.chanName(runID), data).Err()
}

func (b *RedisBroker) chanName(runID string) string { return "run:" + runID }
