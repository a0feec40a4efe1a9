package opt

import "sync"

type metricsKey struct {
	RunID string
	Mode  string
}

var (
	mu           sync.Mutex
	metricsStore = map[metricsKey]Metrics{}
)

// RecordMetrics keeps the optimizer metrics of a run in process memory so
// the API can expose them without a storage round trip.
func RecordMetrics(runID, mode string, m Metrics) {
	mu.Lock()
	metricsStore[metricsKey{RunID: runID, Mode: mode}] = m
	mu.Unlock()
}

// GetMetrics returns mode -> metrics for a run.
func GetMetrics(runID string) map[string]Metrics {
	mu.Lock()
	defer mu.Unlock()
	out := map[string]Metrics{}
	for k, v := range metricsStore {
		if k.RunID == runID {
			out[k.Mode] = v
		}
	}
	return out
}
