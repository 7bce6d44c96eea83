package redis

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"vcanchor/internal/platform/config"
)

// Client wraps the go-redis client with health checking and pool metrics.
type Client struct {
	*redis.Client
}

// New connects to Redis. It returns nil, nil when no URL is configured.
func New(ctx context.Context, cfg config.Redis) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{Client: client}, nil
}

func (c *Client) Name() string {
	return "redis"
}

// Check implements health.Checker.
func (c *Client) Check(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

var (
	poolHitsDesc     = prometheus.NewDesc("vcanchor_redis_pool_hits_total", "Connections found in the pool", nil, nil)
	poolMissesDesc   = prometheus.NewDesc("vcanchor_redis_pool_misses_total", "Connections not found in the pool", nil, nil)
	poolTimeoutsDesc = prometheus.NewDesc("vcanchor_redis_pool_timeouts_total", "Waits for a pooled connection that timed out", nil, nil)
	poolTotalDesc    = prometheus.NewDesc("vcanchor_redis_pool_total_conns", "Connections in the pool", nil, nil)
	poolIdleDesc     = prometheus.NewDesc("vcanchor_redis_pool_idle_conns", "Idle connections in the pool", nil, nil)
	poolStaleDesc    = prometheus.NewDesc("vcanchor_redis_pool_stale_conns_total", "Stale connections removed from the pool", nil, nil)
)

// PoolCollector exports go-redis pool statistics at scrape time.
type PoolCollector struct {
	client *redis.Client
}

func NewPoolCollector(c *Client) *PoolCollector {
	return &PoolCollector{client: c.Client}
}

func (p *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- poolHitsDesc
	ch <- poolMissesDesc
	ch <- poolTimeoutsDesc
	ch <- poolTotalDesc
	ch <- poolIdleDesc
	ch <- poolStaleDesc
}

func (p *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	stats := p.client.PoolStats()
	ch <- prometheus.MustNewConstMetric(poolHitsDesc, prometheus.CounterValue, float64(stats.Hits))
	ch <- prometheus.MustNewConstMetric(poolMissesDesc, prometheus.CounterValue, float64(stats.Misses))
	ch <- prometheus.MustNewConstMetric(poolTimeoutsDesc, prometheus.CounterValue, float64(stats.Timeouts))
	ch <- prometheus.MustNewConstMetric(poolTotalDesc, prometheus.GaugeValue, float64(stats.TotalConns))
	ch <- prometheus.MustNewConstMetric(poolIdleDesc, prometheus.GaugeValue, float64(stats.IdleConns))
	ch <- prometheus.MustNewConstMetric(poolStaleDesc, prometheus.CounterValue, float64(stats.StaleConns))
}
