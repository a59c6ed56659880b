package service

import (
	"time"

	"github.com/noah-isme/coursework-engine/internal/observability"
)

const tracerPrefix = "github.com/noah-isme/coursework-engine/internal/service/"

// observeOperation records the outcome and duration of an engine operation.
func observeOperation(operation string, started time.Time, result ActionResult, err error) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case result.Status == ActionStatusFail:
		outcome = "fail"
	}
	observability.EngineOperations().WithLabelValues(operation, outcome).Inc()
	observability.EngineLatency().WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func observeRowsWritten(operation, table string, rows int) {
	if rows <= 0 {
		return
	}
	observability.EngineRowsWritten().WithLabelValues(operation, table).Add(float64(rows))
}
