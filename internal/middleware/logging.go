package middleware

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yukikurage/tasktide/internal/constants"
	apierrors "github.com/yukikurage/tasktide/internal/errors"
	"github.com/yukikurage/tasktide/internal/metrics"
)

// ContextKeyRequestID holds the id assigned to each dispatched call.
const ContextKeyRequestID = "request_id"

// unknownMethod labels calls that matched no route, keeping metric label
// cardinality bounded.
const unknownMethod = "unknown"

// MethodName returns the operation a request was routed to.
func MethodName(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return strings.TrimPrefix(path, "/")
	}
	return unknownMethod
}

// RequestLogger logs one structured line per call and records it in rec.
// The level follows the outcome: storage and internal failures are errors,
// other failures warnings.
func RequestLogger(logger *slog.Logger, rec metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()
		c.Set(ContextKeyRequestID, requestID)

		c.Next()

		duration := time.Since(start)
		method := MethodName(c)
		code := c.GetString(apierrors.ContextKeyCode)
		if code == "" {
			code = "OK"
		}
		rec.RecordRequest(method, code, duration)

		attrs := []any{
			slog.String("request_id", requestID),
			slog.String("method", method),
			slog.String("code", code),
			slog.Int("status", c.Writer.Status()),
			slog.Float64("duration_ms", float64(duration.Nanoseconds())/float64(time.Millisecond)),
		}
		if username := c.GetString(constants.ContextKeyUsername); username != "" {
			attrs = append(attrs, slog.String("username", username))
		}

		level := slog.LevelWarn
		switch code {
		case "OK":
			level = slog.LevelInfo
		case apierrors.ErrCodeStorageFailure, apierrors.ErrCodeInternalError:
			level = slog.LevelError
		}

		logger.Log(c.Request.Context(), level, "rpc_call", attrs...)
	}
}
