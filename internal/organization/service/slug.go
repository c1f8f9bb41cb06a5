package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/loopwork/loopwork/internal/apperror"
	"github.com/loopwork/loopwork/internal/organization/domain"
)

// reservedSlugs are application route paths that can never be used as
// organization slugs.
var reservedSlugs = map[string]struct{}{
	// App routes
	"dashboard": {}, "documents": {}, "projects": {}, "issues": {},
	"settings": {}, "time-tracking": {}, "timetracking": {},
	// Auth routes
	"onboarding": {}, "invite": {}, "login": {}, "signin": {},
	"signup": {}, "register": {}, "logout": {}, "signout": {},
	// System routes
	"api": {}, "admin": {}, "app": {}, "auth": {}, "oauth": {},
	"callback": {}, "webhooks": {}, "health": {}, "status": {},
	// Reserved terms
	"www": {}, "mail": {}, "email": {}, "support": {}, "help": {},
	"about": {}, "contact": {}, "legal": {}, "privacy": {}, "terms": {},
	"blog": {}, "docs": {}, "pricing": {}, "enterprise": {},
}

func isReservedSlug(s string) bool {
	_, ok := reservedSlugs[s]
	return ok
}

// uniqueSlug generates a slug from name and appends -1, -2, ... until
// it no longer collides. Reserved slugs are rejected outright.
func (s *service) uniqueSlug(ctx context.Context, repo domain.Repository, name string, excludeID snowflake.ID) (string, error) {
	base := slug.Make(name)
	if isReservedSlug(base) {
		return "", apperror.Validation("name", fmt.Sprintf(
			"The name %q cannot be used because %q is a reserved URL path. Please choose a different name.",
			name, base,
		))
	}

	candidate := base
	for counter := 1; ; counter++ {
		exists, err := repo.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, counter)
	}
}
