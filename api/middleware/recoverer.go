package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/AmielDylan/sendbox-sub002/api/responses"
	pkgerrors "github.com/AmielDylan/sendbox-sub002/pkg/errors"
	"github.com/AmielDylan/sendbox-sub002/pkg/logger"
)

func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					err := pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("panic: %v", rec))
					if logg != nil {
						ctx := logg.WithField(r.Context(), "stack", string(debug.Stack()))
						logg.Error(ctx, "http.panic", err)
					}
					responses.WriteError(r.Context(), logg, w, err)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
