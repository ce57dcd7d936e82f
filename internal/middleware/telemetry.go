// Package middleware provides HTTP middleware for telemetry and other
// cross-cutting concerns.
package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/retenio/churnguard-go/internal/telemetry"
)

// TelemetryMiddleware enriches the request's server span with response
// attributes. It expects otelgin (or another tracing middleware) to have
// started the span; when none did, it starts its own so traces still appear.
func TelemetryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		span := trace.SpanFromContext(ctx)
		if !span.SpanContext().IsValid() {
			ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(c.Request.Header))
			ctx, span = telemetry.GetHTTPTracer().Start(
				ctx,
				fmt.Sprintf("HTTP %s %s", c.Request.Method, c.Request.URL.Path),
				trace.WithSpanKind(trace.SpanKindServer),
			)
			defer span.End()
			c.Request = c.Request.WithContext(ctx)
		}

		attrs := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.host", c.Request.Host),
			attribute.String("http.client_ip", c.ClientIP()),
		}
		if routePath := c.FullPath(); routePath != "" {
			attrs = append(attrs, attribute.String("http.route", routePath))
		}
		span.SetAttributes(attrs...)

		start := time.Now()
		c.Next()

		statusCode := c.Writer.Status()
		span.SetAttributes(
			attribute.Int("http.status_code", statusCode),
			attribute.Int64("http.response.time_ms", time.Since(start).Milliseconds()),
		)
		if statusCode >= 400 {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", statusCode))
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}
