package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"fleetsim/internal/config"
	"fleetsim/internal/model"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := NewServer(config.Default())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

// diamondScenario has a short bad road from the depot to node 2 and a clean
// detour through node 3.
const diamondScenario = `{
	"name": "diamond",
	"depot": 1,
	"nodes": [{"id":1},{"id":2},{"id":3}],
	"edges": [
		{"from":1,"to":2,"length":400,"pavement":"bad"},
		{"from":1,"to":3,"length":300},
		{"from":3,"to":2,"length":300}
	],
	"orders": [
		{"id":1,"node":2,"deadline":60,"weight":25,"fragile":true},
		{"id":2,"node":3,"deadline":90,"weight":10}
	]
}`

func createScenario(t *testing.T, srv *Server, body string) model.Scenario {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/scenarios", strings.NewReader(body))
	req.Header.Set("X-Role", "admin")
	rec := httptest.NewRecorder()
	srv.ScenariosHandler(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create scenario: %d %s", rec.Code, rec.Body.String())
	}
	var sc model.Scenario
	if err := json.Unmarshal(rec.Body.Bytes(), &sc); err != nil {
		t.Fatal(err)
	}
	if sc.ID == "" {
		t.Fatal("scenario id missing")
	}
	return sc
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.ReadyHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz: %d", rec.Code)
	}
}

func TestScenarioLifecycle(t *testing.T) {
	srv := newTestServer(t)
	sc := createScenario(t, srv, diamondScenario)

	req := httptest.NewRequest(http.MethodGet, "/v1/scenarios/"+sc.ID, nil)
	rec := httptest.NewRecorder()
	srv.ScenarioByIDHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get scenario: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.ScenariosHandler(rec, httptest.NewRequest(http.MethodGet, "/v1/scenarios?limit=10", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list scenarios: %d", rec.Code)
	}
	var list struct {
		Items []model.Scenario `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Items) != 1 {
		t.Fatalf("list: %d items", len(list.Items))
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/scenarios/"+sc.ID, nil)
	req.Header.Set("X-Role", "admin")
	rec = httptest.NewRecorder()
	srv.ScenarioByIDHandler(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete scenario: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.ScenarioByIDHandler(rec, httptest.NewRequest(http.MethodGet, "/v1/scenarios/"+sc.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: %d", rec.Code)
	}
}

func TestScenarioValidation(t *testing.T) {
	srv := newTestServer(t)

	cases := []string{
		`{"depot":1}`,                     // no name
		`{"name":"x"}`,                    // no nodes or synth
		`{"name":"x","synth":{"side":1}}`, // grid too small
		`{"name":"x","depot":1,"nodes":[{"id":1},{"id":2}],"edges":[{"from":1,"to":2,"length":-5}]}`,
		`{"name":"x","depot":9,"nodes":[{"id":1}]}`, // depot outside network
	}
	for _, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/v1/scenarios", strings.NewReader(body))
		req.Header.Set("X-Role", "admin")
		rec := httptest.NewRecorder()
		srv.ScenariosHandler(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d %s", body, rec.Code, rec.Body.String())
		}
	}
}

func TestScenarioForbiddenForViewer(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/scenarios", strings.NewReader(diamondScenario))
	req.Header.Set("X-Role", "viewer")
	rec := httptest.NewRecorder()
	srv.ScenariosHandler(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("viewer should not create scenarios: %d", rec.Code)
	}
}

func TestRunLifecycle(t *testing.T) {
	srv := newTestServer(t)
	sc := createScenario(t, srv, diamondScenario)

	body, _ := json.Marshal(model.RunRequest{ScenarioID: sc.ID, Mode: "smart", Seed: 42})
	req := httptest.NewRequest(http.MethodPost, "/v1/runs", bytes.NewReader(body))
	req.Header.Set("X-Role", "dispatcher")
	rec := httptest.NewRecorder()
	srv.RunsHandler(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start run: %d %s", rec.Code, rec.Body.String())
	}
	var run model.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatal(err)
	}
	if run.Status != "completed" || run.Report == nil {
		t.Fatalf("run should complete synchronously: %+v", run)
	}
	if run.Report.Delivered != 2 {
		t.Fatalf("Delivered=%d", run.Report.Delivered)
	}
	if run.Report.IntegrityLoss != 0 {
		t.Fatalf("smart mode should avoid the bad road, IntegrityLoss=%d", run.Report.IntegrityLoss)
	}
	if len(run.Orders) != 2 {
		t.Fatalf("order outcomes missing: %d", len(run.Orders))
	}

	rec = httptest.NewRecorder()
	srv.RunByIDHandler(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/"+run.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get run: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.RunByIDHandler(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/"+run.ID+"/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("run metrics: %d", rec.Code)
	}
	var m struct {
		RunID     string          `json:"runId"`
		Optimizer json.RawMessage `json:"optimizer"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatal(err)
	}
	if m.RunID != run.ID || !strings.Contains(string(m.Optimizer), `"smart"`) {
		t.Fatalf("optimizer metrics missing: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.RunsHandler(rec, httptest.NewRequest(http.MethodGet, "/v1/runs?scenarioId="+sc.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list runs: %d", rec.Code)
	}
	var list struct {
		Items []model.Run `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Items) != 1 {
		t.Fatalf("list runs: %d items", len(list.Items))
	}
}

func TestRunValidation(t *testing.T) {
	srv := newTestServer(t)
	sc := createScenario(t, srv, diamondScenario)

	cases := []struct {
		body string
		want int
	}{
		{`{"mode":"smart"}`, http.StatusBadRequest},                          // no scenario
		{`{"scenarioId":"` + sc.ID + `","mode":"warp"}`, http.StatusBadRequest},
		{`{"scenarioId":"` + sc.ID + `","seed":-1}`, http.StatusBadRequest},
		{`{"scenarioId":"nope"}`, http.StatusNotFound},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader(c.body))
		req.Header.Set("X-Role", "admin")
		rec := httptest.NewRecorder()
		srv.RunsHandler(rec, req)
		if rec.Code != c.want {
			t.Fatalf("body %s: expected %d, got %d %s", c.body, c.want, rec.Code, rec.Body.String())
		}
	}
}

func TestCompareEndpoint(t *testing.T) {
	srv := newTestServer(t)
	sc := createScenario(t, srv, diamondScenario)

	body := `{"scenarioId":"` + sc.ID + `","seed":7}`
	req := httptest.NewRequest(http.MethodPost, "/v1/compare", strings.NewReader(body))
	req.Header.Set("X-Role", "dispatcher")
	rec := httptest.NewRecorder()
	srv.CompareHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("compare: %d %s", rec.Code, rec.Body.String())
	}
	var cmp struct {
		Seed    int64                      `json:"seed"`
		Reports map[string]model.RunReport `json:"reports"`
		Delta   map[string]float64         `json:"delta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &cmp); err != nil {
		t.Fatal(err)
	}
	if len(cmp.Reports) != 2 || cmp.Delta == nil {
		t.Fatalf("expected legacy and smart with a delta: %s", rec.Body.String())
	}
	if cmp.Delta["integrityLoss"] >= 0 {
		t.Fatalf("smart should beat legacy on integrity: %v", cmp.Delta)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/compare", strings.NewReader(`{"scenarioId":"`+sc.ID+`","modes":["warp"]}`))
	req.Header.Set("X-Role", "admin")
	rec = httptest.NewRecorder()
	srv.CompareHandler(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid mode: %d", rec.Code)
	}
}

func TestSubscriptionsAdminOnly(t *testing.T) {
	srv := newTestServer(t)

	body := `{"url":"http://example.com/hook","events":["run.completed"],"secret":"s"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/subscriptions", strings.NewReader(body))
	req.Header.Set("X-Role", "dispatcher")
	rec := httptest.NewRecorder()
	srv.SubscriptionsHandler(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("dispatcher should not manage subscriptions: %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/subscriptions", strings.NewReader(body))
	req.Header.Set("X-Role", "admin")
	rec = httptest.NewRecorder()
	srv.SubscriptionsHandler(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create subscription: %d %s", rec.Code, rec.Body.String())
	}
	var sub model.Subscription
	if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
		t.Fatal(err)
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/subscriptions/"+sub.ID, nil)
	req.Header.Set("X-Role", "admin")
	rec = httptest.NewRecorder()
	srv.SubscriptionByIDHandler(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete subscription: %d", rec.Code)
	}
}

func TestRunEmitsWebhook(t *testing.T) {
	srv := newTestServer(t)
	sc := createScenario(t, srv, diamondScenario)

	subBody := `{"url":"http://example.com/hook","events":["run.completed"],"secret":"s"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/subscriptions", strings.NewReader(subBody))
	req.Header.Set("X-Role", "admin")
	rec := httptest.NewRecorder()
	srv.SubscriptionsHandler(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create subscription: %d", rec.Code)
	}

	runBody := `{"scenarioId":"` + sc.ID + `","mode":"legacy","seed":1}`
	req = httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader(runBody))
	req.Header.Set("X-Role", "admin")
	rec = httptest.NewRecorder()
	srv.RunsHandler(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("run: %d %s", rec.Code, rec.Body.String())
	}

	due, err := srv.Store.FetchDueWebhookDeliveries(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].EventType != "run.completed" {
		t.Fatalf("expected one queued run.completed delivery, got %+v", due)
	}
}

// sseRecorder is a minimal ResponseWriter that supports flushing, so the SSE
// handler can run against it from a goroutine.
type sseRecorder struct {
	mu     sync.Mutex
	header http.Header
	buf    bytes.Buffer
	code   int
}

func newSSERecorder() *sseRecorder { return &sseRecorder{header: http.Header{}} }

func (r *sseRecorder) Header() http.Header { return r.header }

func (r *sseRecorder) Write(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Write(b)
}

func (r *sseRecorder) WriteHeader(code int) { r.code = code }
func (r *sseRecorder) Flush()               {}

func (r *sseRecorder) contents() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}

func TestRunEventStream(t *testing.T) {
	srv := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/v1/runs/run-1/events/stream", nil).WithContext(ctx)
	rec := newSSERecorder()

	done := make(chan struct{})
	go func() {
		srv.RunByIDHandler(rec, req)
		close(done)
	}()

	// Wait for the subscription to land, then publish through the broker.
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(rec.contents(), "event: heartbeat") {
		if time.Now().After(deadline) {
			t.Fatal("no heartbeat on the stream")
		}
		time.Sleep(5 * time.Millisecond)
	}
	srv.Broker.Publish("run-1", RunEvent{Type: "order.delivered", Data: map[string]any{"order": 1}})

	for !strings.Contains(rec.contents(), "event: order.delivered") {
		if time.Now().After(deadline) {
			t.Fatalf("published event never reached the stream: %q", rec.contents())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not exit on context cancel")
	}
}
