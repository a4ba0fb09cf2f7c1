package middleware

import (
	"io"
	"log/slog"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/tasktide/internal/errors"
)

// Recovery turns a panicking handler into an INTERNAL_ERROR response.
// gin's own stack dump is discarded; the panic is logged through slog.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		logger.Error("panic recovered",
			slog.Any("panic", rec),
			slog.String("method", MethodName(c)),
			slog.String("stack", string(debug.Stack())),
		)
		apierrors.Respond(c, apierrors.InternalError(""))
	})
}
