package geolocate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// IPProvider resolves a coarse position from an IP-geolocation endpoint. It
// keeps its last fix and serves it again when an attempt accepts a cached
// position that is recent enough.
type IPProvider struct {
	baseUrl string
	hc      *http.Client

	mu   sync.Mutex
	last Fix
	has  bool
}

func NewIPProvider(baseUrl string) *IPProvider {
	return &IPProvider{
		baseUrl: baseUrl,
		hc:      &http.Client{},
	}
}

func (p *IPProvider) Position(ctx context.Context, opts Options) (Fix, error) {
	if opts.MaximumAge > 0 {
		p.mu.Lock()
		if p.has && time.Since(p.last.At) <= opts.MaximumAge {
			fix := p.last
			p.mu.Unlock()
			return fix, nil
		}
		p.mu.Unlock()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseUrl, nil)
	if err != nil {
		return Fix{}, &Error{Code: CodePositionUnavailable, Err: err}
	}

	resp, err := p.hc.Do(req)
	if err != nil {
		return Fix{}, classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return Fix{}, &Error{Code: CodePermissionDenied, Err: fmt.Errorf("lookup returned %d", resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Fix{}, &Error{Code: CodePositionUnavailable, Err: fmt.Errorf("lookup returned %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Fix{}, &Error{Code: CodePositionUnavailable, Err: err}
	}

	var payload struct {
		Lat      float64 `json:"lat"`
		Lon      float64 `json:"lon"`
		Accuracy float64 `json:"accuracy"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Fix{}, &Error{Code: CodePositionUnavailable, Err: err}
	}

	fix := Fix{Lat: payload.Lat, Lon: payload.Lon, Accuracy: payload.Accuracy, At: time.Now()}

	p.mu.Lock()
	p.last = fix
	p.has = true
	p.mu.Unlock()

	return fix, nil
}

func classifyTransport(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: CodeTimeout, Err: err}
	}
	return &Error{Code: CodePositionUnavailable, Err: err}
}
