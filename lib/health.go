package lib

import (
	"context"
	"net/http"

	"github.com/fiffu/stockwatch/lib/backend"
)

// Health probes the backend. It needs no session but still refuses to run
// without a backend credential.
func (p *proxy) Health(ctx context.Context) (*backend.Response, error) {
	cred, err := p.credential()
	if err != nil {
		return nil, err
	}

	res, err := p.backend.Health(ctx, cred)
	if err != nil {
		p.log.Sugar().Errorw("Error checking health", "err", err)
		return nil, &Error{KindInternal, http.StatusInternalServerError, "Failed to connect to backend", err}
	}
	if !res.OK() {
		return nil, &Error{KindBackend, res.Status, "Backend health check failed", nil}
	}
	return res, nil
}
