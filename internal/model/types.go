package model

import "time"

// Order is a delivery request. Upstream scoring stages fill the priority and
// risk fields; the simulator fills the outcome fields. Orders are created
// once per run and mutated in place, never replaced mid-run.
type Order struct {
	ID            int64   `json:"id" yaml:"id"`
	NodeID        int64   `json:"node" yaml:"node"`
	DeadlineMin   float64 `json:"deadlineMin" yaml:"deadline"`
	WeightKg      float64 `json:"weightKg" yaml:"weight"`
	Fragile       bool    `json:"fragile" yaml:"fragile"`
	PriorityClass int     `json:"priorityClass" yaml:"class"` // 0 normal, 1 VIP

	// Written by the scoring stages.
	FuzzyPriority float64 `json:"fuzzyPriority,omitempty" yaml:"-"`
	EstimateMin   float64 `json:"estimateMin,omitempty" yaml:"-"`
	RiskLevel     string  `json:"riskLevel,omitempty" yaml:"-"` // LOW, MEDIUM, HIGH

	// Written by the simulator.
	Integrity          float64 `json:"integrity" yaml:"-"` // percent, 100 = untouched
	Delivered          bool    `json:"delivered" yaml:"-"`
	DeliveredAtMin     float64 `json:"deliveredAtMin,omitempty" yaml:"-"`
	UnavoidableBadRoad bool    `json:"unavoidableBadRoad,omitempty" yaml:"-"`
}

// NodeSpec and EdgeSpec describe the road network inside a scenario document.
type NodeSpec struct {
	ID int64   `json:"id" yaml:"id"`
	X  float64 `json:"x" yaml:"x"`
	Y  float64 `json:"y" yaml:"y"`
}

type EdgeSpec struct {
	From     int64   `json:"from" yaml:"from"`
	To       int64   `json:"to" yaml:"to"`
	LengthM  float64 `json:"length" yaml:"length"`
	Traffic  float64 `json:"traffic,omitempty" yaml:"traffic"`
	Pavement string  `json:"pavement,omitempty" yaml:"pavement"` // good, fair, bad
	Blocked  bool    `json:"blocked,omitempty" yaml:"blocked"`
	MaxKph   float64 `json:"maxKph,omitempty" yaml:"max_kph"`
	OneWay   bool    `json:"oneway,omitempty" yaml:"oneway"`
}

// SynthSpec asks for a generated grid network instead of explicit nodes/edges.
type SynthSpec struct {
	Side     int     `json:"side" yaml:"side"`               // grid side length in nodes
	SpacingM float64 `json:"spacingM" yaml:"spacing"`        // edge length between neighbors
	Seed     int64   `json:"seed" yaml:"seed"`               // enrichment seed
	Orders   int     `json:"orders,omitempty" yaml:"orders"` // generated order count
}

// Scenario is the unit of persistence: a road network plus a delivery set.
type Scenario struct {
	ID        string     `json:"id" yaml:"-"`
	Name      string     `json:"name" yaml:"name"`
	Depot     int64      `json:"depot" yaml:"depot"`
	Nodes     []NodeSpec `json:"nodes,omitempty" yaml:"nodes"`
	Edges     []EdgeSpec `json:"edges,omitempty" yaml:"edges"`
	Orders    []Order    `json:"orders,omitempty" yaml:"orders"`
	Synth     *SynthSpec `json:"synth,omitempty" yaml:"synth"`
	CreatedAt time.Time  `json:"createdAt" yaml:"-"`
}

// RunRequest triggers a simulation run for a stored scenario.
type RunRequest struct {
	ScenarioID string `json:"scenarioId"`
	Mode       string `json:"mode"` // smart, legacy, dfs, bfs
	Seed       int64  `json:"seed,omitempty"`
}

// RunReport aggregates the metrics of one completed simulation. It is
// computed once and never mutated afterwards; legacy and smart reports share
// the same shape so the comparison layer can diff them field by field.
type RunReport struct {
	Mode          string  `json:"mode"`
	Seed          int64   `json:"seed"`
	DistanceKm    float64 `json:"distanceKm"`
	TimeMin       float64 `json:"timeMin"`
	FuelCost      float64 `json:"fuelCost"`
	Delivered     int     `json:"delivered"`
	OnTime        int     `json:"onTime"`
	OnTimeRate    float64 `json:"onTimeRate"`
	IntegrityLoss int     `json:"integrityLoss"` // delivered orders below full health
	AvgIntegrity  float64 `json:"avgIntegrity"`
	Unavoidable   int     `json:"unavoidable"` // orders forced over a bad/blocked edge
}

// Run is the persisted record of one simulation execution.
type Run struct {
	ID          string     `json:"id"`
	ScenarioID  string     `json:"scenarioId"`
	Mode        string     `json:"mode"`
	Seed        int64      `json:"seed"`
	Status      string     `json:"status"` // running, completed, failed
	Report      *RunReport `json:"report,omitempty"`
	Orders      []Order    `json:"orders,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// SubscriptionRequest registers a webhook endpoint for run events.
type SubscriptionRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret"`
}

type Subscription struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret,omitempty"`
}
