package geolocate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skycast/internal/types"

	"go.uber.org/zap"
)

// FallbackLabel names a resolved position when reverse geocoding fails.
const FallbackLabel = "Current Location"

// Code classifies a position failure, mirroring the three standard
// geolocation error codes.
type Code int

const (
	CodePermissionDenied    Code = 1
	CodePositionUnavailable Code = 2
	CodeTimeout             Code = 3
)

// Error is a classified position failure.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("geolocation failed (code %d): %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage maps the failure onto text suitable for inline display.
func (e *Error) UserMessage() string {
	switch e.Code {
	case CodePermissionDenied:
		return "Location access was denied. Please allow location access and try again."
	case CodePositionUnavailable:
		return "Your location could not be determined."
	case CodeTimeout:
		return "Locating you took too long. Please try again."
	default:
		return "Unable to determine your location."
	}
}

// Fix is a resolved device position.
type Fix struct {
	Lat      float64
	Lon      float64
	Accuracy float64
	At       time.Time
}

// Options configure one position attempt.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// Provider produces a position honoring the given options. The context
// passed to Position already carries the attempt's timeout.
type Provider interface {
	Position(ctx context.Context, opts Options) (Fix, error)
}

// attempts is the fixed fallback sequence: a fast low-accuracy try that may
// serve a cached fix up to five minutes old, then a slow high-accuracy try
// with no cache.
var attempts = []Options{
	{HighAccuracy: false, Timeout: 10 * time.Second, MaximumAge: 5 * time.Minute},
	{HighAccuracy: true, Timeout: 20 * time.Second, MaximumAge: 0},
}

// ReverseGeocoder names a coordinate; failures are non-fatal for resolution.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (types.Location, error)
}

// Resolver obtains the user's location, stopping at the first successful
// attempt, then best-effort names it.
type Resolver struct {
	provider Provider
	geocoder ReverseGeocoder
	logger   *zap.SugaredLogger
}

func NewResolver(provider Provider, geocoder ReverseGeocoder, logger *zap.SugaredLogger) *Resolver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Resolver{provider: provider, geocoder: geocoder, logger: logger}
}

// Resolve runs the attempt sequence and returns the located place. The
// returned location falls back to the generic FallbackLabel name when
// reverse geocoding fails; that failure is logged, not propagated.
func (r *Resolver) Resolve(ctx context.Context) (types.Location, error) {
	var fix Fix
	var lastErr error
	located := false

	for _, opts := range attempts {
		attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		f, err := r.provider.Position(attemptCtx, opts)
		cancel()
		if err != nil {
			r.logger.Warnw("position attempt failed",
				"highAccuracy", opts.HighAccuracy, "error", err.Error())
			lastErr = err
			continue
		}
		fix = f
		located = true
		break
	}

	if !located {
		if lastErr != nil {
			return types.Location{}, lastErr
		}
		return types.Location{}, errors.New("unable to determine location after multiple attempts")
	}

	loc := types.Location{Lat: fix.Lat, Lon: fix.Lon, Name: FallbackLabel}
	if r.geocoder != nil {
		named, err := r.geocoder.ReverseGeocode(ctx, fix.Lat, fix.Lon)
		if err != nil {
			r.logger.Warnf("reverse geocoding (%v,%v) failed: %v", fix.Lat, fix.Lon, err.Error())
		} else {
			loc = named
		}
	}
	return loc, nil
}
