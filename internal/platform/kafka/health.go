package kafka

import (
	"context"
	"fmt"
	"net"
	"time"
)

// HealthChecker checks Kafka broker connectivity with a TCP dial.
type HealthChecker struct {
	brokers []string
	timeout time.Duration
}

// NewHealthChecker creates a new Kafka health checker.
func NewHealthChecker(brokers []string) *HealthChecker {
	return &HealthChecker{brokers: brokers, timeout: 5 * time.Second}
}

// Check returns nil if at least one broker accepts a connection.
func (h *HealthChecker) Check(ctx context.Context) error {
	if len(h.brokers) == 0 {
		return fmt.Errorf("kafka brokers not configured")
	}

	var lastErr error
	dialer := net.Dialer{Timeout: h.timeout}
	for _, broker := range h.brokers {
		conn, err := dialer.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		conn.Close() //nolint:errcheck // probe connection only
		return nil
	}
	return fmt.Errorf("no kafka brokers reachable: %w", lastErr)
}

// Name returns the check name for health reporting.
func (h *HealthChecker) Name() string {
	return "kafka"
}
