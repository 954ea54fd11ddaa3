package lib

import (
	"context"

	"github.com/fiffu/stockwatch/lib/backend"
)

// ListSubscriptions returns the backend's list for the session's user as-is.
// Soft-deleted entries are not filtered here.
func (p *proxy) ListSubscriptions(ctx context.Context) (*backend.Response, error) {
	email, cred, err := p.authorize(ctx)
	if err != nil {
		return nil, err
	}

	res, err := p.backend.ListSubscriptions(ctx, cred, email)
	return p.relay(res, err, "Failed to fetch subscriptions")
}
