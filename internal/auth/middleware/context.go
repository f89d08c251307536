package auth

import (
	"context"

	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

type ctxKey string

const ctxKeySub ctxKey = "sub"

func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, ctxKeySub, sub)
}

// SubjectFromContext returns the authenticated user id; for students this is the student id.
func SubjectFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxKeySub); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Principal is the caller as seen by handlers.
type Principal struct {
	Subject string
	Role    string
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p := Principal{Subject: SubjectFromContext(ctx), Role: rbac.RoleFromContext(ctx)}
	return p, p.Subject != ""
}
