package metrics

// NopMetrics discards every metric. Used in tests and when metrics are disabled.
type NopMetrics struct{}

var _ Collector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// RecordTransition discards the transition metric.
func (n *NopMetrics) RecordTransition(_ /* taskKind */, _ /* status */ string) {}

// RecordConflict discards the conflict metric.
func (n *NopMetrics) RecordConflict(_ /* operation */ string) {}

// RecordAward discards the award metric.
func (n *NopMetrics) RecordAward(_ /* entityKind */ string, _ /* points */ int64) {}

// RecordBadge discards the badge metric.
func (n *NopMetrics) RecordBadge(_ /* name */ string) {}

// RecordDispatch discards the dispatch metric.
func (n *NopMetrics) RecordDispatch(_ /* channel */, _ /* result */ string) {}

// RecordHTTPRequest discards the request metric.
func (n *NopMetrics) RecordHTTPRequest(_ /* method */, _ /* route */ string, _ /* status */ int, _ /* seconds */ float64) {
}
