package stats

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the aggregator's Prometheus collectors.
type Metrics struct {
	Users           prometheus.Gauge
	Subscriptions   prometheus.Gauge
	Recomputes      prometheus.Counter
	RecomputeErrors prometheus.Counter
	FeedReconnects  prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Users: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coursesell_stats_users",
			Help: "Total number of accounts at the last recompute",
		}),
		Subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coursesell_stats_subscriptions",
			Help: "Accounts with an active subscription at the last recompute",
		}),
		Recomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coursesell_stats_recomputes_total",
			Help: "Successful statistics recomputes",
		}),
		RecomputeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coursesell_stats_recompute_errors_total",
			Help: "Failed statistics recomputes",
		}),
		FeedReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coursesell_stats_feed_reconnects_total",
			Help: "Change feed subscription attempts after a failure or disconnect",
		}),
	}
}

// Register adds the collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(m.Users, m.Subscriptions, m.Recomputes, m.RecomputeErrors, m.FeedReconnects)
}
