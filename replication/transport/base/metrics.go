package base

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

var (
	sentTotal       = metrics.NewCounter(`dfs_transport_sent_total`)
	sendErrorsTotal = metrics.NewCounter(`dfs_transport_send_errors_total`)
	receivedTotal   = metrics.NewCounter(`dfs_transport_received_total`)
)

// droppedTotal returns the drop counter for a validation step
func droppedTotal(reason string) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`dfs_transport_dropped_total{reason=%q}`, reason))
}
