package tools

import "context"

type ownerKey struct{}

// DefaultOwner is used when the execution context carries no owner.
const DefaultOwner = "default"

// WithOwner tags the context with the id of the user the tools act for.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFrom returns the owner id carried by the context, or
// DefaultOwner when unset.
func OwnerFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ownerKey{}).(string); ok && v != "" {
		return v
	}
	return DefaultOwner
}
