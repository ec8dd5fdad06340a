package ctxutil

import "github.com/ashita-ai/kasane/internal/model"

// Caller is who a request acts for. With auth disabled every request is
// the anonymous caller at the configured tier.
type Caller struct {
	ID            string
	Tier          model.Tier
	Authenticated bool
}

// Anonymous is the caller used when auth is disabled.
func Anonymous(tier model.Tier) Caller {
	return Caller{ID: "anonymous", Tier: tier}
}
