// Package metrics instruments the assignment workflow, the scoring engine and
// the notification worker.
package metrics

// Collector receives the counters and timings emitted by the services, the
// outbox worker and the HTTP layer.
type Collector interface {
	// RecordTransition counts a committed assignment transition.
	RecordTransition(taskKind, status string)
	// RecordConflict counts an operation rejected with a conflict.
	RecordConflict(operation string)
	// RecordAward counts a ledger award and the points it moved.
	RecordAward(entityKind string, points int64)
	// RecordBadge counts a granted badge.
	RecordBadge(name string)
	// RecordDispatch counts a delivery attempt by channel and result
	// (delivered, retry, failed).
	RecordDispatch(channel, result string)
	// RecordHTTPRequest observes one served request.
	RecordHTTPRequest(method, route string, status int, seconds float64)
}
