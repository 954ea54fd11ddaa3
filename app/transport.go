package app

import (
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewTransport is shared by every outbound client: backend, geocoders,
// product pages and Google.
func NewTransport(lc fx.Lifecycle, log *zap.Logger) http.RoundTripper {
	return &transport{http.DefaultTransport, log}
}

type transport struct {
	base http.RoundTripper
	log  *zap.Logger
}

func (tpt *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	res, err := tpt.base.RoundTrip(req)

	// Never log the query string: it can carry emails and API keys.
	fields := []any{"method", req.Method, "host", req.URL.Host, "path", req.URL.Path, "elapsed_msecs", time.Since(start).Milliseconds()}
	if err != nil {
		tpt.log.Sugar().Infow("Outbound request failed", append(fields, "err", err)...)
		return nil, err
	}
	tpt.log.Sugar().Debugw("Outbound request", append(fields, "status", res.StatusCode)...)
	return res, nil
}
