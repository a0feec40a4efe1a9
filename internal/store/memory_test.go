package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"fleetsim/internal/model"
)

func TestScenarioCRUD(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	sc := &model.Scenario{Name: "crud", Depot: 0}
	if err := m.CreateScenario(ctx, sc); err != nil {
		t.Fatal(err)
	}
	if sc.ID == "" || sc.CreatedAt.IsZero() {
		t.Fatal("id and createdAt should be stamped")
	}

	got, err := m.GetScenario(ctx, sc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "crud" {
		t.Fatalf("Name=%q", got.Name)
	}

	if err := m.DeleteScenario(ctx, sc.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := m.GetScenario(ctx, sc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := m.DeleteScenario(ctx, sc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete: %v", err)
	}
}

func TestScenarioPagination(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := m.CreateScenario(ctx, &model.Scenario{Name: fmt.Sprintf("s%d", i)}); err != nil {
			t.Fatal(err)
		}
	}

	seen := map[string]bool{}
	cursor := ""
	pages := 0
	for {
		items, next, err := m.ListScenarios(ctx, cursor, 2)
		if err != nil {
			t.Fatal(err)
		}
		for _, sc := range items {
			if seen[sc.ID] {
				t.Fatalf("scenario %s returned twice", sc.ID)
			}
			seen[sc.ID] = true
		}
		pages++
		if next == "" {
			break
		}
		cursor = next
	}
	if len(seen) != 5 {
		t.Fatalf("walked %d scenarios, want 5", len(seen))
	}
	if pages != 3 {
		t.Fatalf("expected 3 pages of 2, got %d", pages)
	}
}

func TestRunCRUD(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	r := &model.Run{ScenarioID: "sc-1", Mode: "smart", Status: "running"}
	if err := m.CreateRun(ctx, r); err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC()
	r.Status = "completed"
	r.CompletedAt = &now
	r.Report = &model.RunReport{Mode: "smart", Delivered: 3}
	if err := m.UpdateRun(ctx, r); err != nil {
		t.Fatal(err)
	}

	got, err := m.GetRun(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "completed" || got.Report == nil || got.Report.Delivered != 3 {
		t.Fatalf("update lost: %+v", got)
	}

	if err := m.UpdateRun(ctx, &model.Run{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListRunsByScenario(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := m.CreateRun(ctx, &model.Run{ScenarioID: "a"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.CreateRun(ctx, &model.Run{ScenarioID: "b"}); err != nil {
		t.Fatal(err)
	}

	runs, _, err := m.ListRuns(ctx, "a", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 {
		t.Fatalf("scenario filter: got %d runs", len(runs))
	}
	runs, _, err = m.ListRuns(ctx, "", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 4 {
		t.Fatalf("unfiltered: got %d runs", len(runs))
	}
}

func TestSubscriptionsForEvent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "http://a", Events: []string{"run.completed"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "http://b", Events: []string{"*"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "http://c", Events: []string{"run.failed"}}); err != nil {
		t.Fatal(err)
	}

	subs, err := m.GetSubscriptionsForEvent(ctx, "run.completed")
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected the exact match plus the wildcard, got %d", len(subs))
	}
}

func TestWebhookDeliveryLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.EnqueueWebhook(ctx, "sub-1", "run.completed", "http://example", "s3cret", []byte(`{}`))
	if err != nil {
		t.Fatal(err)
	}

	due, err := m.FetchDueWebhookDeliveries(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].ID != id || due[0].Status != "pending" {
		t.Fatalf("due=%+v", due)
	}

	// Failed attempt with a future retry leaves it scheduled but not due.
	next := time.Now().Add(time.Hour)
	if err := m.MarkWebhookDelivery(ctx, id, false, &next, "boom", 500); err != nil {
		t.Fatal(err)
	}
	due, err = m.FetchDueWebhookDeliveries(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 0 {
		t.Fatalf("retry scheduled in the future should not be due: %+v", due)
	}

	// Past retry time makes it due again, then success retires it.
	past := time.Now().Add(-time.Minute)
	if err := m.MarkWebhookDelivery(ctx, id, false, &past, "boom", 500); err != nil {
		t.Fatal(err)
	}
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 1 || due[0].Attempts != 2 {
		t.Fatalf("due after past retry: %+v", due)
	}
	if err := m.MarkWebhookDelivery(ctx, id, true, nil, "", 200); err != nil {
		t.Fatal(err)
	}
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("delivered webhook still due: %+v", due)
	}

	// A terminal failure never comes back.
	id2, _ := m.EnqueueWebhook(ctx, "sub-1", "run.failed", "http://example", "", nil)
	if err := m.FailWebhookDelivery(ctx, id2, "gave up", 503); err != nil {
		t.Fatal(err)
	}
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("failed webhook still due: %+v", due)
	}
}
