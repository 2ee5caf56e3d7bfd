package middleware

import "context"

type contextKey string

const (
	// ContextKeyIdentity holds the raw identity asserted by the external
	// identity provider (email or subject). Display/audit use only.
	ContextKeyIdentity contextKey = "identity"

	// ContextKeyActorKey holds the normalized storage key derived from
	// the identity. Everything touching the backing stores uses this.
	ContextKeyActorKey contextKey = "actor_key"
)

func IdentityFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyIdentity).(string)
	return v, ok
}

func ActorKeyFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyActorKey).(string)
	return v, ok
}
