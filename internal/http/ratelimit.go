package http

import (
	"log/slog"
	"net/http"

	"github.com/ulule/limiter/v3"
	stdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/example/secret-nick/internal/domain"
)

// NewIPRateLimiter returns middleware limiting requests per client IP using an
// in-memory store. rateFormatted follows limiter's "<limit>-<period>" format,
// e.g. "20-M". An empty rate disables limiting.
func NewIPRateLimiter(rateFormatted string, logger *slog.Logger) (func(next http.Handler) http.Handler, error) {
	if rateFormatted == "" {
		return noopMiddleware, nil
	}
	rate, err := limiter.NewRateFromFormatted(rateFormatted)
	if err != nil {
		return nil, err
	}
	instance := limiter.New(memory.NewStore(), rate)
	res := newResponder(defaultLogger(logger))
	reached := func(w http.ResponseWriter, r *http.Request) {
		res.loggerFor(r.Context()).WarnContext(r.Context(), "rate limit reached", "remote_addr", r.RemoteAddr)
		res.writeProblem(r.Context(), w, http.StatusTooManyRequests, []domain.FieldError{{Message: "Too many requests. Try again later."}})
	}
	return stdlib.NewMiddleware(instance, stdlib.WithLimitReachedHandler(reached)).Handler, nil
}

func noopMiddleware(next http.Handler) http.Handler {
	return next
}
