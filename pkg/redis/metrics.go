package redis

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	goredis "github.com/redis/go-redis/v9"
)

var (
	redisRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redis_requests_total",
		Help: "Redis commands issued, labeled by command name",
	}, []string{"method"})

	redisErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redis_errors_total",
		Help: "Redis commands that failed, not counting missing keys",
	}, []string{"method"})

	redisRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "redis_request_duration_seconds",
		Help:    "Redis round-trip latency",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5},
	}, []string{"method"})
)

// metricsHook measures every command, pipeline and dial made through a client.
type metricsHook struct{}

func (metricsHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		start := time.Now()
		conn, err := next(ctx, network, addr)
		observe("dial", start, err)
		return conn, err
	}
}

func (metricsHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		observe(strings.ToLower(cmd.Name()), start, err)
		return err
	}
}

func (metricsHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		observe("pipeline", start, err)
		return err
	}
}

func observe(method string, start time.Time, err error) {
	redisRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	redisRequestsTotal.WithLabelValues(method).Inc()
	if err != nil && !IsNil(err) {
		redisErrorsTotal.WithLabelValues(method).Inc()
	}
}

// PoolCollector exports connection pool statistics of one client.
type PoolCollector struct {
	client *Client
	conns  *prometheus.Desc
	idle   *prometheus.Desc
	hits   *prometheus.Desc
	misses *prometheus.Desc
	waits  *prometheus.Desc
}

// NewPoolCollector returns a collector for c; register it once per client.
func NewPoolCollector(c *Client) *PoolCollector {
	return &PoolCollector{
		client: c,
		conns:  prometheus.NewDesc("redis_pool_connections", "Connections currently in the pool", nil, nil),
		idle:   prometheus.NewDesc("redis_pool_idle_connections", "Idle connections in the pool", nil, nil),
		hits:   prometheus.NewDesc("redis_pool_hits_total", "Times a free connection was found in the pool", nil, nil),
		misses: prometheus.NewDesc("redis_pool_misses_total", "Times a new connection had to be dialed", nil, nil),
		waits:  prometheus.NewDesc("redis_pool_timeouts_total", "Times waiting for a connection timed out", nil, nil),
	}
}

func (p *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- p.conns
	ch <- p.idle
	ch <- p.hits
	ch <- p.misses
	ch <- p.waits
}

func (p *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := p.client.rdb.PoolStats()
	ch <- prometheus.MustNewConstMetric(p.conns, prometheus.GaugeValue, float64(s.TotalConns))
	ch <- prometheus.MustNewConstMetric(p.idle, prometheus.GaugeValue, float64(s.IdleConns))
	ch <- prometheus.MustNewConstMetric(p.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(p.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(p.waits, prometheus.CounterValue, float64(s.Timeouts))
}
