// internal/gateway/instrument.go
package gateway

import (
	"context"
	"time"

	"cloudwise/internal/common/metrics"
	"cloudwise/internal/common/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Observe runs one provider call inside a span and records its outcome and
// latency.
func Observe(ctx context.Context, platform, operation string, fn func(ctx context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, "gateway."+operation,
		attribute.String("cloud.platform", platform),
		attribute.String("cloud.operation", operation),
	)
	start := time.Now()

	err := fn(ctx)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ProviderOperations.WithLabelValues(platform, operation, status).Inc()
	metrics.ProviderOperationDuration.WithLabelValues(platform, operation).Observe(time.Since(start).Seconds())
	observability.EndSpan(span, err)
	return err
}
