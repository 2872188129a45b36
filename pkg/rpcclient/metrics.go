package rpcclient

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics of the RPC calls made by all clients of the process.
var (
	rpcCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of RPC calls made",
			Name:      "rpc_calls_total",
			Namespace: "registry",
		},
		[]string{"method"},
	)
	rpcTimes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Help:      "RPC call time",
			Name:      "rpc_call_time",
			Namespace: "registry",
		},
		[]string{"method"},
	)
	instanceCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of historic instance info requests served from cache",
			Name:      "rpc_instance_cache_hits_total",
			Namespace: "registry",
		},
	)
)

func addReqTimeMetric(method string, t time.Duration) {
	rpcCalls.WithLabelValues(method).Inc()
	rpcTimes.WithLabelValues(method).Observe(t.Seconds())
}

func init() {
	prometheus.MustRegister(
		rpcCalls,
		rpcTimes,
		instanceCacheHits,
	)
}
