package api

import "sync"

// RunEvent is one streamed event of a run in progress.
type RunEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Broker is the in-process event fanout, keyed by run id. Slow subscribers
// drop events rather than stall the run.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan RunEvent]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan RunEvent]struct{}{}}
}

func (b *Broker) Subscribe(runID string) chan RunEvent {
	ch := make(chan RunEvent, 16)
	b.mu.Lock()
	if b.subs[runID] == nil {
		b.subs[runID] = map[chan RunEvent]struct{}{}
	}
	b.subs[runID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(runID string, ch chan RunEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.subs[runID]
	if m == nil {
		return
	}
	if _, ok := m[ch]; !ok {
		return
	}
	delete(m, ch)
	if len(m) == 0 {
		delete(b.subs, runID)
	}
	close(ch)
}

func (b *Broker) Publish(runID string, evt RunEvent) {
	b.mu.Lock()
	for ch := range b.subs[runID] {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}
