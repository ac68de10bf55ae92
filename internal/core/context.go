package core

import (
	"context"

	"github.com/JonMunkholm/catchcert/internal/landing"
)

type contextKey string

const ctxKeyPrincipal contextKey = "principal"

// ContextWithPrincipal attaches the acting exporter to ctx.
func ContextWithPrincipal(ctx context.Context, p landing.Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

// PrincipalFromContext extracts the acting exporter from ctx.
func PrincipalFromContext(ctx context.Context) (landing.Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(landing.Principal)
	return p, ok && p.UserID != ""
}
