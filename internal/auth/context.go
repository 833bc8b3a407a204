package auth

import "context"

type externalIDKey struct{}

func ContextWithExternalID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, externalIDKey{}, id)
}

func ExternalIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(externalIDKey{}).(string)
	return id, ok
}
