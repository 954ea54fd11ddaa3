package lib

import (
	"context"
	"errors"
	"net/http"

	"github.com/fiffu/stockwatch/lib/geo"
	"github.com/fiffu/stockwatch/lib/session"
	"go.uber.org/zap"
)

type pincodes struct {
	log      *zap.Logger
	resolver *geo.Resolver
}

// ResolvePincode looks up the pincode for coordinates reported by the
// signed-in user's device.
func (p *pincodes) ResolvePincode(ctx context.Context, pos geo.Position) (string, error) {
	if _, err := session.Email(ctx); err != nil {
		return "", unauthorized(err)
	}
	if !pos.Valid() {
		return "", validation("Invalid coordinates")
	}

	code, err := p.resolver.Resolve(ctx, geo.Fixed(pos))
	if err != nil {
		var perr *geo.PositionError
		if !errors.Is(err, geo.ErrManualEntry) && !errors.As(err, &perr) {
			return "", internal(err)
		}
		return "", &Error{KindUnprocessable, http.StatusUnprocessableEntity, geo.Message(err), err}
	}
	return code, nil
}
