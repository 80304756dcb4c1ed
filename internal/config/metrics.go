package config

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "echo-backend/config"

var (
	configMetricsOnce sync.Once
	configCounter     metric.Int64Counter
)

func configEventsCounter() metric.Int64Counter {
	configMetricsOnce.Do(func() {
		counter, err := otel.Meter(meterName).Int64Counter("config.validation.events")
		if err == nil {
			configCounter = counter
		}
	})
	return configCounter
}

func recordConfigValidationEvent(ctx context.Context, profile, outcome, errorClass string) {
	counter := configEventsCounter()
	if counter == nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("profile", normalizeConfigProfile(profile)),
		attribute.String("outcome", outcome),
		attribute.String("error_class", errorClass),
	))
}

func normalizeConfigProfile(profile string) string {
	v := strings.TrimSpace(strings.ToLower(profile))
	if v == "" {
		return "unknown"
	}
	return v
}

// classifyConfigLoadError buckets load failures by the prefix load() wraps
// them with.
func classifyConfigLoadError(err error) string {
	if err == nil {
		return "none"
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.HasPrefix(msg, "validate config:"):
		return "validation"
	case strings.HasPrefix(msg, "parse "):
		return "parse"
	case strings.HasPrefix(msg, "load config:"):
		return "decode"
	default:
		return "load"
	}
}
