package lib

import (
	"context"
	"strconv"
	"strings"

	"github.com/fiffu/stockwatch/lib/backend"
)

// DeleteCheck forwards a delete for the given subscription id. Ownership is
// enforced by the backend, not here.
func (p *proxy) DeleteCheck(ctx context.Context, rawID string) (*backend.Response, error) {
	email, cred, err := p.authorize(ctx)
	if err != nil {
		return nil, err
	}

	id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil || id <= 0 {
		return nil, validation("Invalid subscription id")
	}

	res, err := p.backend.DeleteCheck(ctx, cred, id)
	res, err = p.relay(res, err, "Failed to delete subscription")
	if err == nil {
		p.log.Sugar().Infow("Deleted check", "email", email, "subscription_id", id)
	}
	return res, err
}
