package filestore

import "time"

// Operation names reported to Metrics.
const (
	OpCreate = "create"
	OpRead   = "read"
	OpUpdate = "update"
	OpAppend = "append"
	OpMove   = "move"
	OpCheck  = "check"
	OpDelete = "delete"
	OpForget = "forget"
)

// Metrics receives the outcome of every Store operation.
//
// Implementations must be safe for concurrent use. The Prometheus
// implementation lives in pkg/metrics.
type Metrics interface {
	// ObserveOperation records one completed operation and its result code.
	ObserveOperation(op string, code ErrorCode, duration time.Duration)

	// RecordCorruption records a witness mismatch or undecodable file.
	RecordCorruption(op string)

	// SetRegisteredFiles reports the current number of registered names.
	SetRegisteredFiles(n int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, ErrorCode, time.Duration) {}
func (noopMetrics) RecordCorruption(string)                           {}
func (noopMetrics) SetRegisteredFiles(int)                            {}
