package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// APIKeyHeader carries the administrator API key.
const APIKeyHeader = "api_key"

// RequireScope rejects requests whose API key is unknown or lacks scope.
func (h *Handler) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			info, err := h.Auth.Authenticate(ctx, r.Header.Get(APIKeyHeader), scope)
			if err != nil {
				zctx.From(ctx).Debug("API key rejected", zap.Error(err))
				writeError(w, r, err)
				return
			}
			ctx = zctx.With(ctx, zap.String("api_key", info.Name))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
