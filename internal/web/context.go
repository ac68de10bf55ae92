package web

import (
	"net/http"

	"github.com/JonMunkholm/catchcert/internal/core"
	"github.com/JonMunkholm/catchcert/internal/landing"
)

// principal returns the caller set by the Identity middleware.
func principal(r *http.Request) landing.Principal {
	p, _ := core.PrincipalFromContext(r.Context())
	return p
}
