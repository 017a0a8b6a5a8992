package notify

import (
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/example/shift-roster/internal/metrics"
)

func testutilCount(m *metrics.Metrics, direction, result string) int {
	return int(testutil.ToFloat64(m.NotifyEvents.WithLabelValues(direction, result)))
}
