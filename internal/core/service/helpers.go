package service

import (
	"context"
	"errors"

	"github.com/ocandle/marketplace/internal/core/domain"
)

const maxSaveAttempts = 3

// retryOnConflict reruns fn while a versioned save loses a race.
// fn must reload the entity it mutates on every call.
func retryOnConflict(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		if err = fn(); !errors.Is(err, domain.ErrConcurrentUpdate) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return err
}

// normalizePage applies defaults and caps to 1-based pagination parameters.
func normalizePage(page, limit, defaultLimit, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// uniqueIDs returns ids without empties or duplicates, preserving order.
func uniqueIDs(ids ...string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func summaryOf(users map[string]*domain.User, id string) *domain.UserSummary {
	if u, ok := users[id]; ok {
		return u.Summary()
	}
	return nil
}
