package geo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type Position struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64 // metres
	Timestamp time.Time
}

func (p Position) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180 &&
		p.Accuracy >= 0
}

type PositionOptions struct {
	HighAccuracy bool
	Timeout      time.Duration // bound on a single acquisition
	MaximumAge   time.Duration // a cached fix younger than this is reused
}

var DefaultPositionOptions = PositionOptions{
	HighAccuracy: true,
	Timeout:      10 * time.Second,
	MaximumAge:   5 * time.Minute,
}

// PositionSource is anything that can produce the device's coordinates.
type PositionSource interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (Position, error)
}

type PositionErrorCode int

const (
	PermissionDenied    PositionErrorCode = 1
	PositionUnavailable PositionErrorCode = 2
	Timeout             PositionErrorCode = 3
)

func (c PositionErrorCode) String() string {
	switch c {
	case PermissionDenied:
		return "permission denied"
	case PositionUnavailable:
		return "position unavailable"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("code %d", int(c))
	}
}

type PositionError struct {
	Code PositionErrorCode
	Err  error
}

func (e *PositionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geolocation %s: %v", e.Code, e.Err)
	}
	return "geolocation " + e.Code.String()
}

func (e *PositionError) Unwrap() error {
	return e.Err
}

// Fixed is a PositionSource for coordinates that were obtained elsewhere,
// e.g. submitted by a browser or passed on the command line.
type Fixed Position

func (f Fixed) CurrentPosition(ctx context.Context, opts PositionOptions) (Position, error) {
	pos := Position(f)
	if !pos.Valid() {
		return Position{}, &PositionError{Code: PositionUnavailable, Err: errors.New("coordinates out of range")}
	}
	if pos.Timestamp.IsZero() {
		pos.Timestamp = time.Now()
	}
	return pos, nil
}

// CachedSource reuses the last fix while it is younger than MaximumAge.
type CachedSource struct {
	Source PositionSource

	mu   sync.Mutex
	last *Position
	now  func() time.Time
}

func NewCachedSource(src PositionSource) *CachedSource {
	return &CachedSource{Source: src, now: time.Now}
}

func (c *CachedSource) CurrentPosition(ctx context.Context, opts PositionOptions) (Position, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.last != nil && opts.MaximumAge > 0 && c.now().Sub(c.last.Timestamp) <= opts.MaximumAge {
		return *c.last, nil
	}

	pos, err := c.Source.CurrentPosition(ctx, opts)
	if err != nil {
		return Position{}, err
	}
	if pos.Timestamp.IsZero() {
		pos.Timestamp = c.now()
	}
	c.last = &pos
	return pos, nil
}
