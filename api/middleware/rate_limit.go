package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/aryasetiadi/lokapasar-backend/api/responses"
	pkgerrors "github.com/aryasetiadi/lokapasar-backend/pkg/errors"
	"github.com/aryasetiadi/lokapasar-backend/pkg/logger"
)

const (
	defaultRateLimit  = 120
	defaultRateWindow = time.Minute
)

type rateLimitStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit applies a per-user fixed window across authenticated routes.
func RateLimit(store rateLimitStore, limit int64, window time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = defaultRateLimit
	}
	if window <= 0 {
		window = defaultRateWindow
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil {
				next.ServeHTTP(w, r)
				return
			}
			scope := "api:" + UserIDFromContext(r.Context())
			allowed, _, err := store.FixedWindowAllow(r.Context(), scope, limit, window)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limit check"))
				return
			}
			if !allowed {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
