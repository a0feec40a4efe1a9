package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fleetsim/internal/model"
	"fleetsim/internal/opt"
	"fleetsim/internal/sim"
	"fleetsim/internal/store"
)

// ScenariosHandler handles POST/GET /v1/scenarios
func (s *Server) ScenariosHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		p := s.getPrincipal(r)
		if !canDispatch(p) {
			writeProblem(w, http.StatusForbidden, "Forbidden", "dispatcher or admin required", r.URL.Path)
			return
		}
		var sc model.Scenario
		if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateScenario(&sc); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid scenario", err.Error(), r.URL.Path)
			return
		}
		// Reject scenarios whose network will not build before persisting.
		if _, err := s.buildSimulator(sc, 1); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid scenario", err.Error(), r.URL.Path)
			return
		}
		if err := s.Store.CreateScenario(r.Context(), &sc); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create scenario failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, sc)
	case http.MethodGet:
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListScenarios(r.Context(), cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List scenarios failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ScenarioByIDHandler handles GET/DELETE /v1/scenarios/{id}
func (s *Server) ScenarioByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/scenarios/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodGet:
		sc, err := s.Store.GetScenario(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Scenario not found", "", r.URL.Path)
			return
		}
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Get scenario failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, sc)
	case http.MethodDelete:
		p := s.getPrincipal(r)
		if !isAdmin(p) {
			writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
			return
		}
		if err := s.Store.DeleteScenario(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeProblem(w, http.StatusNotFound, "Scenario not found", "", r.URL.Path)
				return
			}
			writeProblem(w, http.StatusInternalServerError, "Delete scenario failed", err.Error(), r.URL.Path)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// RunsHandler handles POST/GET /v1/runs. POST executes the simulation before
// responding; runs finish in well under a second on scenario-sized networks,
// so the completed record comes back directly.
func (s *Server) RunsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		p := s.getPrincipal(r)
		if !canDispatch(p) {
			writeProblem(w, http.StatusForbidden, "Forbidden", "dispatcher or admin required", r.URL.Path)
			return
		}
		var req model.RunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateRunRequest(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid run request", err.Error(), r.URL.Path)
			return
		}
		sc, err := s.Store.GetScenario(r.Context(), req.ScenarioID)
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Scenario not found", "", r.URL.Path)
			return
		}
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Get scenario failed", err.Error(), r.URL.Path)
			return
		}
		run := &model.Run{ScenarioID: sc.ID, Mode: req.Mode, Seed: req.Seed, Status: "running", CreatedAt: time.Now().UTC()}
		if err := s.Store.CreateRun(r.Context(), run); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create run failed", err.Error(), r.URL.Path)
			return
		}
		s.executeRun(r.Context(), run, sc)
		status := http.StatusCreated
		if run.Status == "failed" {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, run)
	case http.MethodGet:
		scenarioID := r.URL.Query().Get("scenarioId")
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListRuns(r.Context(), scenarioID, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List runs failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// RunByIDHandler handles /v1/runs/{id}, /v1/runs/{id}/metrics, and
// /v1/runs/{id}/events/stream (SSE).
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if rest == r.URL.Path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	if len(parts) > 1 && parts[1] == "events" && len(parts) > 2 && parts[2] == "stream" {
		s.streamRunEvents(w, r, id)
		return
	}
	if len(parts) > 1 && parts[1] == "metrics" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if _, err := s.Store.GetRun(r.Context(), id); errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Run not found", "", r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"runId": id, "optimizer": opt.GetMetrics(id)})
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	run, err := s.Store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Run not found", "", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Get run failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) streamRunEvents(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)
	fmt.Fprintf(w, "event: heartbeat\n")
	fmt.Fprintf(w, "data: {\"runId\":%q,\"ts\":%q}\n\n", id, time.Now().Format(time.RFC3339))
	flusher.Flush()
	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case evt := <-ch:
			b, _ := json.Marshal(evt.Data)
			fmt.Fprintf(w, "event: %s\n", evt.Type)
			fmt.Fprintf(w, "data: %s\n\n", string(b))
			flusher.Flush()
		case <-time.After(15 * time.Second):
			fmt.Fprintf(w, "event: heartbeat\n")
			fmt.Fprintf(w, "data: {\"runId\":%q,\"ts\":%q}\n\n", id, time.Now().Format(time.RFC3339))
			flusher.Flush()
		}
	}
}

// CompareHandler handles POST /v1/compare: the same scenario and seed run
// through several dispatch modes, reported side by side.
func (s *Server) CompareHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if !canDispatch(p) {
		writeProblem(w, http.StatusForbidden, "Forbidden", "dispatcher or admin required", r.URL.Path)
		return
	}
	var req struct {
		ScenarioID string   `json:"scenarioId"`
		Modes      []string `json:"modes"`
		Seed       int64    `json:"seed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if req.ScenarioID == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid compare request", "scenarioId is required", r.URL.Path)
		return
	}
	for _, m := range req.Modes {
		if !sim.ValidMode(m) {
			writeProblem(w, http.StatusBadRequest, "Invalid compare request", "invalid mode: "+m, r.URL.Path)
			return
		}
	}
	sc, err := s.Store.GetScenario(r.Context(), req.ScenarioID)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Scenario not found", "", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Get scenario failed", err.Error(), r.URL.Path)
		return
	}
	simulator, err := s.buildSimulator(sc, req.Seed)
	if err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Scenario build failed", err.Error(), r.URL.Path)
		return
	}
	cmp, err := sim.Compare(r.Context(), simulator, req.Modes, req.Seed)
	if err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Compare failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	if !isAdmin(p) {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.URL == "" || len(req.Events) == 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid subscription", "url and events are required", r.URL.Path)
			return
		}
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListSubscriptions(r.Context(), cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List subscriptions failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if !isAdmin(p) {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	if err := s.Store.DeleteSubscription(r.Context(), id); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Delete subscription failed", err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthHandler handles GET /healthz
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler handles GET /readyz
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Ping(r.Context()); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Not ready", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
