package middleware

import (
	"context"
	"slices"
)

type contextKey string

const (
	ContextKeySubject contextKey = "subject"
	ContextKeyScopes  contextKey = "scopes"
)

// WithPrincipal stores the authenticated subject and its scopes.
func WithPrincipal(ctx context.Context, subject string, scopes []string) context.Context {
	ctx = context.WithValue(ctx, ContextKeySubject, subject)
	return context.WithValue(ctx, ContextKeyScopes, slices.Clone(scopes))
}

func SubjectFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeySubject).(string)
	return v, ok && v != ""
}

func ScopesFromContext(ctx context.Context) ([]string, bool) {
	v, ok := ctx.Value(ContextKeyScopes).([]string)
	return v, ok
}
