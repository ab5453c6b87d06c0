package auth

import "context"

// subjectKey is unexported so only this package can write the value.
type subjectKey struct{}

// WithSubject stores the authenticated token subject on the context.
// JWTMiddleware is the only writer.
func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, subjectKey{}, sub)
}

// SubjectFromContext returns the authenticated subject, or "" when the
// request never passed through JWTMiddleware.
func SubjectFromContext(ctx context.Context) string {
	sub, _ := ctx.Value(subjectKey{}).(string)
	return sub
}
