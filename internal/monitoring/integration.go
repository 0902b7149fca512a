package monitoring

import (
	"sync"
)

//nolint:gochecknoglobals // process-wide metrics shared by every executor
var (
	globalMetrics *Metrics
	globalMutex   sync.RWMutex
)

// SetGlobalMetrics installs the metrics used when an executor has none of
// its own. Passing nil disables recording.
func SetGlobalMetrics(m *Metrics) {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	globalMetrics = m
}

// GetGlobalMetrics returns the process-wide metrics, or nil.
func GetGlobalMetrics() *Metrics {
	globalMutex.RLock()
	defer globalMutex.RUnlock()
	return globalMetrics
}

// Resolve returns m when set and the global metrics otherwise.
func Resolve(m *Metrics) *Metrics {
	if m != nil {
		return m
	}
	return GetGlobalMetrics()
}
