package auth

import "context"

type contextKey struct{}

// AuthContext is the authenticated principal attached to a request.
// ChurchID is nil for cross-tenant accounts.
type AuthContext struct {
	UserID   int64
	Email    string
	Role     Role
	ChurchID *int64
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

// ChurchID returns the principal's church id, or 0 when the principal has
// none (cross-tenant accounts, or an unauthenticated context).
func ChurchID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok || ac.ChurchID == nil {
		return 0
	}
	return *ac.ChurchID
}

// IsCrossTenant reports whether the context principal may act across
// churches.
func IsCrossTenant(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.Role.CrossTenant
}
