package httpmiddleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session identification on the wire.
const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "sid"
)

type sessionKey struct{}

// SessionFromContext returns the shopper session id of the request, or "".
func SessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// WithSession returns a copy of ctx carrying session id.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionConfig controls the session cookie.
type SessionConfig struct {
	CookieMaxAge time.Duration
	CookieSecure bool
}

// Session resolves the shopper session from the X-Session-ID header, then
// the sid cookie, issuing a new UUID when neither holds a valid id. The id
// is echoed in the response header and cookie and attached to the request
// logger.
func Session(cfg SessionConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(SessionHeader)
			if !isValidSessionID(id) {
				id = ""
				if c, err := r.Cookie(SessionCookie); err == nil && isValidSessionID(c.Value) {
					id = c.Value
				}
			}
			if id == "" {
				id = uuid.New().String()
			}

			w.Header().Set(SessionHeader, id)
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int(cfg.CookieMaxAge.Seconds()),
				HttpOnly: true,
				Secure:   cfg.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			})

			ctx := WithSession(r.Context(), id)
			ctx = zctx.With(ctx, zap.String("session", id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// isValidSessionID accepts 8 to 128 characters from [A-Za-z0-9_-]. The id
// becomes part of storage slot names, so nothing else is allowed.
func isValidSessionID(id string) bool {
	if len(id) < 8 || len(id) > 128 {
		return false
	}
	for i := range len(id) {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}
