package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/secret-nick/internal/domain"
	"github.com/example/secret-nick/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps failures to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrConflict) {
		return "conflict"
	}
	var f *domain.Failure
	if errors.As(err, &f) {
		if f.Kind == domain.KindBadRequest && len(f.Errors) > 1 {
			return "validation"
		}
		return f.Kind.String()
	}
	return "unexpected"
}
