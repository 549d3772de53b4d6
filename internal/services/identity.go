package services

import (
	"context"

	"github.com/doubtsolve/backend/internal/middleware"
)

// CurrentUser returns the authenticated caller's profile id.
func CurrentUser(ctx context.Context) (string, error) {
	userID := middleware.UserIDFromContext(ctx)
	if userID == "" {
		return "", unauthenticated()
	}
	return userID, nil
}
