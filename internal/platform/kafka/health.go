package kafka

import (
	"context"
	"fmt"
	"time"
)

// Pinger is satisfied by producer.Producer.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports Kafka broker reachability for readiness checks.
type HealthChecker struct {
	pinger  Pinger
	timeout time.Duration
}

func NewHealthChecker(p Pinger) *HealthChecker {
	return &HealthChecker{pinger: p, timeout: 3 * time.Second}
}

func (h *HealthChecker) Name() string {
	return "kafka"
}

func (h *HealthChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	if err := h.pinger.Ping(ctx); err != nil {
		return fmt.Errorf("kafka unreachable: %w", err)
	}
	return nil
}
