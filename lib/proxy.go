package lib

import (
	"context"

	"github.com/fiffu/stockwatch/config"
	"github.com/fiffu/stockwatch/lib/backend"
	"github.com/fiffu/stockwatch/lib/session"
	"go.uber.org/zap"
)

// proxy forwards the subscription operations to the backend. Every
// operation checks, in order: session, configuration, input. Nothing is
// sent to the backend until all three pass.
type proxy struct {
	cfg     *config.Config
	log     *zap.Logger
	backend *backend.Client
}

func (p *proxy) authorize(ctx context.Context) (string, config.Credential, error) {
	email, err := session.Email(ctx)
	if err != nil {
		return "", config.Credential{}, unauthorized(err)
	}
	cred, err := p.credential()
	if err != nil {
		return "", config.Credential{}, err
	}
	return email, cred, nil
}

func (p *proxy) credential() (config.Credential, error) {
	cred, err := p.cfg.BackendCredential()
	if err != nil {
		p.log.Sugar().Errorw("Missing required environment variables", "err", err)
		return config.Credential{}, misconfigured(err)
	}
	return cred, nil
}

// relay passes a successful backend response through untouched, and turns
// a failed one into an *Error carrying the backend's status.
func (p *proxy) relay(res *backend.Response, err error, failure string) (*backend.Response, error) {
	if err != nil {
		p.log.Sugar().Errorw(failure, "err", err)
		return nil, internal(err)
	}
	if !res.OK() {
		msg := res.ErrorMessage()
		if msg == "" {
			msg = failure
		}
		return nil, &Error{KindBackend, res.Status, msg, nil}
	}
	return res, nil
}
