package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/secret-nick/internal/domain"
)

const (
	problemType  = "https://tools.ietf.org/html/rfc9110#section-15.5.1"
	problemTitle = "One or more validation errors occurred."
)

// problem is the error payload shared by every endpoint.
type problem struct {
	Type   string              `json:"type"`
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Errors map[string][]string `json:"errors"`
}

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeProblem renders field messages in the order they were produced.
func (r responder) writeProblem(ctx context.Context, w http.ResponseWriter, status int, errs []domain.FieldError) {
	body := problem{
		Type:   problemType,
		Title:  problemTitle,
		Status: status,
		Errors: make(map[string][]string, len(errs)),
	}
	for _, fe := range errs {
		body.Errors[fe.Field] = append(body.Errors[fe.Field], fe.Message)
	}
	w.Header().Set("Content-Type", "application/problem+json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode problem", "error", err)
	}
}

func (r responder) badRequest(ctx context.Context, w http.ResponseWriter, field, message string) {
	r.writeProblem(ctx, w, http.StatusBadRequest, []domain.FieldError{{Field: field, Message: message}})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	failure := domain.AsFailure(err)
	if failure == nil {
		failure = domain.Internal(nil)
	}
	status := statusForKind(failure.Kind)
	if status == http.StatusInternalServerError {
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
		r.writeProblem(ctx, w, status, domain.Internal(nil).Errors)
		return
	}
	errs := failure.Errors
	if len(errs) == 0 {
		errs = []domain.FieldError{{Message: http.StatusText(status)}}
	}
	r.writeProblem(ctx, w, status, errs)
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func statusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindBadRequest:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
