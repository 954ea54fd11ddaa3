package lib

import (
	"net/http"

	"github.com/fiffu/stockwatch/config"
	"github.com/fiffu/stockwatch/lib/backend"
	"github.com/fiffu/stockwatch/lib/geo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const userAgent = "stockwatch/1.0 (+https://github.com/fiffu/stockwatch)"

type Service struct {
	cfg *config.Config
	log *zap.Logger

	*proxy
	*pincodes
	*products
	*users
}

func NewService(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, db *gorm.DB, client *backend.Client, resolver *geo.Resolver, transport http.RoundTripper) *Service {
	return &Service{
		cfg, log,
		&proxy{cfg, log, client},
		&pincodes{log, resolver},
		&products{cfg, log, transport},
		&users{log, db},
	}
}

func NewResolver(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, transport http.RoundTripper) *geo.Resolver {
	primary := &geo.Nominatim{
		URL:       cfg.Geocoding.PrimaryURL,
		UserAgent: userAgent,
		Transport: transport,
	}

	var fallback geo.Geocoder
	if cfg.Geocoding.FallbackAPIKey != "" {
		fallback = &geo.OpenCage{
			URL:       cfg.Geocoding.FallbackURL,
			APIKey:    cfg.Geocoding.FallbackAPIKey,
			Transport: transport,
		}
	} else {
		log.Sugar().Info("Fallback geocoding is disabled since GEOCODING_FALLBACK_API_KEY is not defined")
	}
	return geo.NewResolver(log, primary, fallback, geo.DefaultPositionOptions)
}
