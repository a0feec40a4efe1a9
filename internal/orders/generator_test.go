package orders

import (
	"reflect"
	"testing"

	"fleetsim/internal/graph"
	"fleetsim/internal/model"
)

func TestGenerateDeterministic(t *testing.T) {
	g := graph.New()
	for id := int64(0); id < 9; id++ {
		g.AddBareNode(id)
	}

	a := Generate(g, 10, 42)
	b := Generate(g, 10, 42)
	if len(a) != 10 {
		t.Fatalf("len=%d", len(a))
	}
	for i := range a {
		if !reflect.DeepEqual(*a[i], *b[i]) {
			t.Fatalf("order %d differs across same-seed runs:\n%+v\n%+v", i, *a[i], *b[i])
		}
		if _, ok := g.Node(a[i].NodeID); !ok {
			t.Fatalf("order %d on unknown node %d", i, a[i].NodeID)
		}
		if a[i].DeadlineMin < 10 || a[i].DeadlineMin > 120 {
			t.Fatalf("deadline out of range: %v", a[i].DeadlineMin)
		}
		if a[i].WeightKg < 1 || a[i].WeightKg > 8 {
			t.Fatalf("weight out of range: %v", a[i].WeightKg)
		}
		if a[i].Integrity != 100 {
			t.Fatalf("integrity should start at 100: %v", a[i].Integrity)
		}
	}

	c := Generate(g, 10, 43)
	same := true
	for i := range a {
		if !reflect.DeepEqual(*a[i], *c[i]) {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different seeds produced identical order sets")
	}
}

func TestFromSpecsCopies(t *testing.T) {
	specs := []model.Order{{ID: 1, NodeID: 2, WeightKg: 3, DeadlineMin: 30, Delivered: true, Integrity: 12}}
	got := FromSpecs(specs)
	if len(got) != 1 {
		t.Fatalf("len=%d", len(got))
	}
	if got[0].Integrity != 100 || got[0].Delivered {
		t.Fatalf("outcome fields should reset: %+v", got[0])
	}
	got[0].WeightKg = 99
	if specs[0].WeightKg != 3 {
		t.Fatal("FromSpecs must not alias the input slice")
	}
}
