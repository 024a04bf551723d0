/*
Package observability provides lifecycle hooks for monitoring the Tendril engine.

Metrics exports Prometheus counters and histograms for runs, nodes and tool
calls; LogHooks writes the same events to a structured logger; Combine fans
one event out to several hook sets.

	metrics, _ := observability.NewMetrics(prometheus.DefaultRegisterer)
	eng, _ := tendril.New(tendril.WithLifecycleHooks(
		observability.Combine(metrics.Hooks(), observability.LogHooks(logger)),
	))
*/
package observability
