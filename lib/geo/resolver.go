package geo

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// PincodeLength is the length of an Indian postal code.
const PincodeLength = 6

var ErrManualEntry = errors.New("could not determine pincode from location")

// Resolver turns the device position into a pincode: acquire a fix, ask the
// primary geocoder, then the fallback if one is configured.
type Resolver struct {
	log      *zap.Logger
	primary  Geocoder
	fallback Geocoder
	opts     PositionOptions
}

func NewResolver(log *zap.Logger, primary, fallback Geocoder, opts PositionOptions) *Resolver {
	return &Resolver{log, primary, fallback, opts}
}

func (r *Resolver) Resolve(ctx context.Context, src PositionSource) (string, error) {
	pos, err := r.acquire(ctx, src)
	if err != nil {
		return "", err
	}
	return r.ResolveAt(ctx, pos)
}

func (r *Resolver) acquire(ctx context.Context, src PositionSource) (Position, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	pos, err := src.CurrentPosition(ctx, r.opts)
	if err == nil {
		return pos, nil
	}

	var perr *PositionError
	switch {
	case errors.As(err, &perr):
		return Position{}, perr
	case errors.Is(err, context.DeadlineExceeded):
		return Position{}, &PositionError{Code: Timeout, Err: err}
	default:
		return Position{}, &PositionError{Code: PositionUnavailable, Err: err}
	}
}

// ResolveAt runs both geocoding stages for a known position. Neither stage
// is retried.
func (r *Resolver) ResolveAt(ctx context.Context, pos Position) (string, error) {
	if r.primary != nil {
		code, err := r.primary.Postcode(ctx, pos.Latitude, pos.Longitude)
		if code = NormalizePincode(code); err == nil && code != "" {
			return code, nil
		}
		r.log.Sugar().Infow("Primary geocoder failed, trying fallback", "err", err)
	}

	if r.fallback == nil {
		return "", ErrManualEntry
	}
	code, err := r.fallback.Postcode(ctx, pos.Latitude, pos.Longitude)
	if code = NormalizePincode(code); err != nil || code == "" {
		r.log.Sugar().Infow("Fallback geocoder failed", "err", err)
		return "", ErrManualEntry
	}
	return code, nil
}

// NormalizePincode strips whitespace and truncates to PincodeLength.
func NormalizePincode(code string) string {
	code = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, code)
	if runes := []rune(code); len(runes) > PincodeLength {
		code = string(runes[:PincodeLength])
	}
	return code
}

// Message is the text to show a user for a resolution failure.
func Message(err error) string {
	var perr *PositionError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &perr):
		switch perr.Code {
		case PermissionDenied:
			return "Location access denied. Please enable location permissions or enter your pincode manually."
		case Timeout:
			return "Location request timed out. Please try again or enter your pincode manually."
		default:
			return "Location information is unavailable. Please enter your pincode manually."
		}
	case errors.Is(err, ErrManualEntry):
		return "Could not detect pincode from your location. Please enter it manually."
	default:
		return "Failed to detect location. Please enter your pincode manually."
	}
}
