package authz

import (
	"strings"

	"github.com/justsurfingit/jobtracker/internal/apierrors"
)

// AdminPolicy grants admin-gated operations to an explicit allow-list of user ids.
type AdminPolicy struct {
	ids map[string]struct{}
}

func NewAdminPolicy(userIDs []string) *AdminPolicy {
	ids := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id = strings.TrimSpace(id); id != "" && id != AnonymousUserID {
			ids[id] = struct{}{}
		}
	}
	return &AdminPolicy{ids: ids}
}

// Empty reports whether no admin is configured.
func (p *AdminPolicy) Empty() bool {
	return p == nil || len(p.ids) == 0
}

// IsAdmin is false for everyone when the allow-list is empty.
// SECURITY: never fail open here; an unset ADMIN_USER_IDS must not make every
// signed-in user an admin.
func (p *AdminPolicy) IsAdmin(userID string) bool {
	if p.Empty() || userID == "" || userID == AnonymousUserID {
		return false
	}
	_, ok := p.ids[userID]
	return ok
}

// Check returns UNAUTHORIZED for anonymous callers and FORBIDDEN for
// authenticated callers missing from the allow-list.
func (p *AdminPolicy) Check(caller Caller) error {
	if !caller.Authenticated() {
		return apierrors.Unauthorized("")
	}
	if !p.IsAdmin(caller.UserID) {
		return apierrors.Forbidden("admin access required")
	}
	return nil
}
