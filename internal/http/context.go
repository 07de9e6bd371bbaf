package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/City-of-Helsinki/hauki-sub000/internal/logging"
)

// ContextWithLogger returns a derived context carrying the request logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts the request logger, or nil.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

func resourceIDFromRequest(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}

// handlerLogger scopes the request logger, or fallback outside a request,
// to one handler operation.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handler, operation string, attrs ...any) *slog.Logger {
	logger := LoggerFromContext(ctx)
	if logger == nil {
		logger = fallback
	}
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(append([]any{"handler", handler, "operation", operation}, attrs...)...)
}
