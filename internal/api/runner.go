package api

import (
	"context"
	"time"

	"fleetsim/internal/graph"
	"fleetsim/internal/metrics"
	"fleetsim/internal/model"
	"fleetsim/internal/opt"
	"fleetsim/internal/orders"
	"fleetsim/internal/sim"
)

// buildSimulator materializes a stored scenario: road network, order set,
// and a simulator configured from the service config.
func (s *Server) buildSimulator(sc model.Scenario, seed int64) (*sim.Simulator, error) {
	g, err := graph.Build(sc)
	if err != nil {
		return nil, err
	}
	var ords []*model.Order
	switch {
	case len(sc.Orders) > 0:
		ords = orders.FromSpecs(sc.Orders)
	case sc.Synth != nil && sc.Synth.Orders > 0:
		genSeed := sc.Synth.Seed
		if genSeed == 0 {
			genSeed = seed
		}
		ords = orders.Generate(g, sc.Synth.Orders, genSeed)
	}
	return sim.New(g, sc.Depot, ords, s.Cfg)
}

// executeRun drives one simulation to completion, streaming progress through
// the broker and persisting the outcome. The run record is updated in place.
func (s *Server) executeRun(ctx context.Context, run *model.Run, sc model.Scenario) {
	simulator, err := s.buildSimulator(sc, run.Seed)
	if err != nil {
		s.finishRun(ctx, run, nil, err)
		return
	}
	simulator.Progress = func(event string, data map[string]any) {
		s.Broker.Publish(run.ID, RunEvent{Type: event, Data: data})
	}
	report, optMetrics, err := simulator.Run(ctx, run.Mode, run.Seed)
	if err != nil {
		s.finishRun(ctx, run, nil, err)
		return
	}
	run.Seed = report.Seed
	run.Orders = simulator.Orders()
	if optMetrics != nil {
		opt.RecordMetrics(run.ID, run.Mode, *optMetrics)
	}
	s.finishRun(ctx, run, &report, nil)
}

func (s *Server) finishRun(ctx context.Context, run *model.Run, report *model.RunReport, err error) {
	now := time.Now().UTC()
	run.CompletedAt = &now
	if err != nil {
		run.Status = "failed"
		run.Error = err.Error()
	} else {
		run.Status = "completed"
		run.Report = report
	}
	metrics.Runs.WithLabelValues(run.Mode, run.Status).Inc()
	_ = s.Store.UpdateRun(ctx, run)

	data := map[string]any{"runId": run.ID, "scenarioId": run.ScenarioID, "mode": run.Mode, "status": run.Status}
	if report != nil {
		data["report"] = report
	}
	if run.Error != "" {
		data["error"] = run.Error
	}
	s.Broker.Publish(run.ID, RunEvent{Type: "run." + run.Status, Data: data})
	s.Pub.Emit(ctx, "run."+run.Status, data)
}
