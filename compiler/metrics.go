package compiler

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dianpeng/sql2plan/opt"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sql2plan"

type metrics struct {
	compiles *prometheus.CounterVec
	duration prometheus.Histogram
	passes   prometheus.Histogram
	members  prometheus.Histogram
}

// newMetrics registers the collectors on reg, a nil reg gives metrics that
// record nothing
func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &metrics{
		compiles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compile_total",
				Help:      "Compiled queries by optimizer mode and outcome.",
			},
			[]string{"mode", "outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "compile_duration_seconds",
				Help:      "Time spent compiling a query.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),
		passes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "optimizer_passes",
				Help:      "Optimizer passes run per query.",
				Buckets:   prometheus.LinearBuckets(1, 1, opt.DefaultMaxIterations),
			},
		),
		members: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "memo_members",
				Help:      "Memo members created per query.",
				Buckets:   prometheus.ExponentialBuckets(8, 2, 10),
			},
		),
	}

	for _, c := range []prometheus.Collector{m.compiles, m.duration, m.passes, m.members} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "compiler: register metrics")
		}
	}
	return m, nil
}

func (self *metrics) observe(mode opt.Mode, c *Compilation, err error, d time.Duration) {
	if self == nil {
		return
	}
	self.compiles.WithLabelValues(mode.String(), outcome(err)).Inc()
	self.duration.Observe(d.Seconds())
	if c != nil && c.Result != nil {
		self.passes.Observe(float64(c.Result.Stats.Passes))
		self.members.Observe(float64(c.Result.Stats.Members))
	}
}
