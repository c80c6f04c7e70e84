package metrics

import (
	"time"
)

// Ordering operation results
const (
	ResultOK       = "ok"
	ResultInvalid  = "invalid"
	ResultNotFound = "not_found"
	ResultConflict = "conflict"
	ResultError    = "error"
)

// RecordOrdering records one ordering transaction and the rows it rewrote.
func (m *Metrics) RecordOrdering(collection, operation, result string, rows int, duration time.Duration) {
	m.safeExecute("RecordOrdering", func() {
		m.OrderingOperationsTotal.WithLabelValues(collection, operation, result).Inc()
		m.OrderingDuration.WithLabelValues(collection, operation).Observe(duration.Seconds())
		if rows > 0 {
			m.RowsReindexedTotal.WithLabelValues(collection).Add(float64(rows))
		}
	})
}

// RecordDensityRepair counts a parent compacted by the audit job.
func (m *Metrics) RecordDensityRepair(collection string, rows int) {
	m.safeExecute("RecordDensityRepair", func() {
		m.DensityRepairsTotal.WithLabelValues(collection).Inc()
		if rows > 0 {
			m.RowsReindexedTotal.WithLabelValues(collection).Add(float64(rows))
		}
	})
}

// RecordIdempotentReplay counts a create answered from the idempotency store.
func (m *Metrics) RecordIdempotentReplay() {
	m.safeExecute("RecordIdempotentReplay", func() {
		m.IdempotentReplaysTotal.Inc()
	})
}
