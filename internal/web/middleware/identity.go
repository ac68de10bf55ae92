package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/catchcert/internal/core"
	"github.com/JonMunkholm/catchcert/internal/landing"
	"github.com/JonMunkholm/catchcert/internal/logging"
)

// Identity headers set by the upstream auth gateway.
const (
	HeaderUserID    = "X-User-Id"
	HeaderContactID = "X-Contact-Id"
)

// Identity puts the caller's principal on the request context. Requests
// without a user id are rejected with 401.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if userID == "" {
			slog.Warn("identity: missing user id",
				"path", r.URL.Path,
				"method", r.Method,
				"remote_addr", r.RemoteAddr,
			)
			http.Error(w, `{"error":"missing user identity","code":"AUTH001"}`, http.StatusUnauthorized)
			return
		}

		p := landing.Principal{
			UserID:    userID,
			ContactID: strings.TrimSpace(r.Header.Get(HeaderContactID)),
		}
		ctx := core.ContextWithPrincipal(r.Context(), p)
		ctx = logging.ContextWithFields(ctx, "user_id", p.UserID, "contact_id", p.ContactID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
