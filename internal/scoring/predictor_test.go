package scoring

import (
	"errors"
	"testing"

	"fleetsim/internal/model"
)

func TestPredictBeforeTrain(t *testing.T) {
	p := NewDelayPredictor(1)
	if p.Trained() {
		t.Fatal("predictor claims trained before Train")
	}
	_, err := p.Predict(&model.Order{}, 1000, 0, 0)
	if !errors.Is(err, ErrNotTrained) {
		t.Fatalf("expected ErrNotTrained, got %v", err)
	}
}

func TestPredictDeterministic(t *testing.T) {
	a := NewDelayPredictor(42)
	a.Train()
	b := NewDelayPredictor(42)
	b.Train()

	o1 := &model.Order{WeightKg: 10, DeadlineMin: 60}
	o2 := &model.Order{WeightKg: 10, DeadlineMin: 60}
	e1, err := a.Predict(o1, 8000, 0.3, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	e2, err := b.Predict(o2, 8000, 0.3, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if e1 != e2 {
		t.Fatalf("same seed, different estimates: %v vs %v", e1, e2)
	}
}

func TestPredictGrowsWithDistance(t *testing.T) {
	p := NewDelayPredictor(7)
	p.Train()

	near := &model.Order{WeightKg: 10, DeadlineMin: 60}
	far := &model.Order{WeightKg: 10, DeadlineMin: 60}
	eNear, err := p.Predict(near, 2000, 0.2, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	eFar, err := p.Predict(far, 25000, 0.2, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if eFar <= eNear {
		t.Fatalf("farther route should take longer: %v <= %v", eFar, eNear)
	}
}

func TestPredictRiskLevels(t *testing.T) {
	p := NewDelayPredictor(7)
	p.Train()

	tight := &model.Order{WeightKg: 10, DeadlineMin: 1}
	if _, err := p.Predict(tight, 20000, 0.8, 0.4); err != nil {
		t.Fatal(err)
	}
	if tight.RiskLevel != RiskHigh {
		t.Fatalf("impossible deadline should be %s, got %s (est %v)", RiskHigh, tight.RiskLevel, tight.EstimateMin)
	}

	loose := &model.Order{WeightKg: 10, DeadlineMin: 1000}
	if _, err := p.Predict(loose, 2000, 0, 0); err != nil {
		t.Fatal(err)
	}
	if loose.RiskLevel != RiskLow {
		t.Fatalf("generous deadline should be %s, got %s (est %v)", RiskLow, loose.RiskLevel, loose.EstimateMin)
	}
	if loose.EstimateMin == 0 {
		t.Fatal("estimate not written onto the order")
	}
}
