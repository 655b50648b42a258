package httpx

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"rental-backend/internal/platform/apierr"
	"rental-backend/internal/platform/logging"
)

const HeaderRequestID = "X-Request-ID"

// RequestContext attaches a request id and a request-scoped logger, then writes one access log line.
func RequestContext(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderRequestID)
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}
		c.Header(HeaderRequestID, rid)

		fields := []zap.Field{zap.String("request_id", rid)}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.IsValid() {
			fields = append(fields,
				zap.String("trace_id", sc.TraceID().String()),
				zap.String("span_id", sc.SpanID().String()),
			)
		}
		ctx := logging.WithLogger(c.Request.Context(), base.With(fields...))
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		logging.FromContext(c.Request.Context()).Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// Recovery turns a panic into a logged 500 with the uniform envelope.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logging.FromContext(c.Request.Context()).Error("panic recovered",
					zap.String("panic", fmt.Sprint(rec)),
					zap.Stack("stack"),
				)
				if !c.Writer.Written() {
					Abort(c, apierr.Internal("panic"))
					return
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}
