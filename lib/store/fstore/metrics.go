package fstore

import (
	"fmt"

	"github.com/ValentinKolb/dFS/replication/wire"
	"github.com/VictoriaMetrics/metrics"
)

var (
	flushesTotal    = metrics.NewCounter(`dfs_store_flushes_total`)
	evictionsTotal  = metrics.NewCounter(`dfs_store_evictions_total`)
	staleTotal      = metrics.NewCounter(`dfs_store_packets_stale_total`)
	rejectedTotal   = metrics.NewCounter(`dfs_store_packets_rejected_total`)
	cacheEntries    = metrics.NewCounter(`dfs_store_cache_entries`)
	broadcastsTotal = metrics.NewCounter(`dfs_store_packets_sent_total`)
)

// appliedTotal returns the counter of accepted inbound packets of a kind
func appliedTotal(kind wire.Kind) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`dfs_store_packets_applied_total{kind=%q}`, kind.String()))
}
