package lib

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/carlmjohnson/requests"
	"github.com/fiffu/stockwatch/config"
	"github.com/fiffu/stockwatch/lib/models"
	"github.com/fiffu/stockwatch/lib/session"
	"go.uber.org/zap"
)

type products struct {
	cfg       *config.Config
	log       *zap.Logger
	transport http.RoundTripper
}

// PreviewProduct fetches a product page so the user can confirm what they
// are about to subscribe to. Only hosts in PRODUCT_HOSTS are fetched.
func (p *products) PreviewProduct(ctx context.Context, rawURL string) (*models.ProductPreview, error) {
	if _, err := session.Email(ctx); err != nil {
		return nil, unauthorized(err)
	}

	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, validation("Invalid product URL")
	}
	if !p.allowedHost(u.Hostname()) {
		return nil, validation("Unsupported product site")
	}

	var page string
	err = requests.URL(u.String()).
		Transport(p.transport).
		UserAgent(userAgent).
		ToString(&page).
		Fetch(ctx)
	if err != nil {
		p.log.Sugar().Infow("Failed to fetch product page", "url", u.String(), "err", err)
		return nil, &Error{KindUpstream, http.StatusBadGateway, "Failed to fetch product page", err}
	}

	doc, err := htmlquery.Parse(strings.NewReader(page))
	if err != nil {
		return nil, &Error{KindUpstream, http.StatusBadGateway, "Failed to read product page", err}
	}
	return &models.ProductPreview{
		URL:         u.String(),
		ProductName: ExtractProductName(doc),
		ImageURL:    ExtractImageURL(doc),
	}, nil
}

func (p *products) allowedHost(host string) bool {
	host = strings.ToLower(host)
	for _, allowed := range p.cfg.ProductHosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed == "" {
			continue
		}
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}
