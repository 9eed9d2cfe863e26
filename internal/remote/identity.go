package remote

import (
	"context"

	"github.com/dukerupert/lifeos/internal/auth"
)

// SessionIdentity resolves the current user from the verified session that the
// HTTP layer attaches to the request context.
func SessionIdentity(ctx context.Context) (Identity, error) {
	s, ok := auth.FromContext(ctx)
	if !ok {
		return Identity{}, ErrNoSession
	}
	return Identity{UserID: s.UserID, Email: s.Email}, nil
}
