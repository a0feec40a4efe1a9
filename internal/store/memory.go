package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"fleetsim/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
// Cursors are the last returned id, same contract as the Postgres store.
type Memory struct {
	mu          sync.Mutex
	scenarios   map[string]model.Scenario
	scenarioIDs []string
	runs        map[string]model.Run
	runIDs      []string
	subs        []model.Subscription
	deliveries  map[string]*memDelivery
	deliveryIDs []string
}

// memDelivery augments WebhookDelivery with scheduling state.
type memDelivery struct {
	WebhookDelivery
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
}

func NewMemory() *Memory {
	return &Memory{
		scenarios:  map[string]model.Scenario{},
		runs:       map[string]model.Run{},
		deliveries: map[string]*memDelivery{},
	}
}

func (m *Memory) CreateScenario(ctx context.Context, sc *model.Scenario) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sc.ID == "" {
		sc.ID = uuid.New().String()
	}
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = time.Now().UTC()
	}
	if _, exists := m.scenarios[sc.ID]; !exists {
		m.scenarioIDs = append(m.scenarioIDs, sc.ID)
	}
	m.scenarios[sc.ID] = *sc
	return nil
}

func (m *Memory) GetScenario(ctx context.Context, id string) (model.Scenario, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc, ok := m.scenarios[id]
	if !ok {
		return model.Scenario{}, ErrNotFound
	}
	return sc, nil
}

func (m *Memory) ListScenarios(ctx context.Context, cursor string, limit int) ([]model.Scenario, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids, next := page(m.scenarioIDs, cursor, limit)
	out := make([]model.Scenario, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.scenarios[id])
	}
	return out, next, nil
}

func (m *Memory) DeleteScenario(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scenarios[id]; !ok {
		return ErrNotFound
	}
	delete(m.scenarios, id)
	m.scenarioIDs = remove(m.scenarioIDs, id)
	return nil
}

func (m *Memory) CreateRun(ctx context.Context, r *model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if _, exists := m.runs[r.ID]; !exists {
		m.runIDs = append(m.runIDs, r.ID)
	}
	m.runs[r.ID] = *r
	return nil
}

func (m *Memory) UpdateRun(ctx context.Context, r *model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[r.ID]; !ok {
		return ErrNotFound
	}
	m.runs[r.ID] = *r
	return nil
}

func (m *Memory) GetRun(ctx context.Context, id string) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return model.Run{}, ErrNotFound
	}
	return r, nil
}

func (m *Memory) ListRuns(ctx context.Context, scenarioID, cursor string, limit int) ([]model.Run, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.runIDs
	if scenarioID != "" {
		ids = nil
		for _, id := range m.runIDs {
			if m.runs[id].ScenarioID == scenarioID {
				ids = append(ids, id)
			}
		}
	}
	ids, next := page(ids, cursor, limit)
	out := make([]model.Run, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.runs[id])
	}
	return out, next, nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := model.Subscription{ID: uuid.New().String(), URL: req.URL, Events: req.Events, Secret: req.Secret}
	m.subs = append(m.subs, s)
	return s, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Subscription
	for _, s := range m.subs {
		for _, e := range s.Events {
			if e == eventType || e == "*" {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, cursor string, limit int) ([]model.Subscription, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start := 0
	if cursor != "" {
		for i := range m.subs {
			if m.subs[i].ID == cursor {
				start = i + 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = 100
	}
	end := start + limit
	if end > len(m.subs) {
		end = len(m.subs)
	}
	items := append([]model.Subscription(nil), m.subs[start:end]...)
	next := ""
	if end < len(m.subs) && end > start {
		next = m.subs[end-1].ID
	}
	return items, next, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		if s.ID != id {
			out = append(out, s)
		}
	}
	m.subs = out
	return nil
}

func (m *Memory) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.deliveries[id] = &memDelivery{
		WebhookDelivery: WebhookDelivery{ID: id, SubscriptionID: subscriptionID, EventType: eventType, URL: url, Secret: secret, Payload: payload, Status: "pending"},
		NextAttemptAt:   time.Now(),
	}
	m.deliveryIDs = append(m.deliveryIDs, id)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	out := []WebhookDelivery{}
	for _, id := range m.deliveryIDs {
		d := m.deliveries[id]
		if d == nil {
			continue
		}
		if (d.Status == "pending" || d.Status == "retry") && !d.NextAttemptAt.After(now) {
			out = append(out, d.WebhookDelivery)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d == nil {
		return nil
	}
	d.Attempts++
	d.ResponseCode = responseCode
	if success {
		d.Status = "delivered"
		return nil
	}
	d.Status = "retry"
	d.LastError = lastError
	if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	} else {
		d.NextAttemptAt = time.Now().Add(time.Minute)
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id, lastError string, responseCode int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d := m.deliveries[id]; d != nil {
		d.Status = "failed"
		d.LastError = lastError
		d.ResponseCode = responseCode
	}
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

// page slices an id list after the cursor, at most limit entries. Returns
// the ids and the next cursor, empty when the page reached the end.
func page(ids []string, cursor string, limit int) ([]string, string) {
	start := 0
	if cursor != "" {
		for i, id := range ids {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = 100
	}
	end := start + limit
	if end > len(ids) {
		end = len(ids)
	}
	out := ids[start:end]
	next := ""
	if end < len(ids) && len(out) > 0 {
		next = out[len(out)-1]
	}
	return out, next
}

func remove(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
