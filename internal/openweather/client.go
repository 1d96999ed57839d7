package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"skycast/internal/httpx"
	"skycast/internal/metrics"
	"skycast/internal/types"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultGeoBaseUrl     = "https://api.openweathermap.org/geo/1.0"
	defaultWeatherBaseUrl = "https://api.openweathermap.org/data/2.5"

	// hourlyLimit caps the Hourly slice of a merged record.
	hourlyLimit = 24
)

var (
	ErrMissingAPIKey = errors.New("openweather api key not configured")
	ErrAuthRejected  = errors.New("openweather rejected api key")
	ErrCityNotFound  = errors.New("city not found")
)

// StatusError is a non-success vendor response that is neither an
// authentication rejection nor a transport failure.
type StatusError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error: %d - %s", e.Endpoint, e.Status, e.Message)
}

type ClientOption func(*Client)

func ApiKeyOption(apiKey string) ClientOption {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

func GeoBaseUrlOption(baseUrl string) ClientOption {
	return func(c *Client) {
		c.geoBaseUrl = baseUrl
	}
}

func WeatherBaseUrlOption(baseUrl string) ClientOption {
	return func(c *Client) {
		c.weatherBaseUrl = baseUrl
	}
}

func HTTPOption(hc *httpx.Client) ClientOption {
	return func(c *Client) {
		c.httpc = hc
	}
}

func LoggerOption(logger *zap.SugaredLogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client wraps the vendor's geocoding and weather endpoints behind a
// normalized interface. Every operation except SearchCities fails fast with
// ErrMissingAPIKey when no credential is configured.
type Client struct {
	apiKey         string
	geoBaseUrl     string
	weatherBaseUrl string
	httpc          *httpx.Client
	logger         *zap.SugaredLogger
}

func New(opts ...ClientOption) *Client {
	c := &Client{
		geoBaseUrl:     defaultGeoBaseUrl,
		weatherBaseUrl: defaultWeatherBaseUrl,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpc == nil {
		c.httpc = httpx.New("openweather")
	}
	if c.logger == nil {
		c.logger = zap.NewNop().Sugar()
	}
	return c
}

// SearchCities returns suggestions for a partial city name. Failures are
// swallowed and reported as an empty list; for a live-typing suggestion list
// "no results" is an acceptable degraded state.
func (c *Client) SearchCities(ctx context.Context, query string, limit int) []types.Location {
	locs, err := c.searchCities(ctx, query, limit)
	if err != nil {
		c.logger.Warnw("city suggestion lookup failed",
			"query", query, "error", err.Error())
		return nil
	}
	return locs
}

// searchCities is the typed inner lookup; an error here means the lookup
// failed, as opposed to a genuinely empty result.
func (c *Client) searchCities(ctx context.Context, query string, limit int) ([]types.Location, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	var locs []types.Location
	if err := c.getJSON(ctx, "geocoding", c.geoURL("direct", q), &locs); err != nil {
		return nil, err
	}
	return locs, nil
}

// CoordinatesFromCity resolves a city name to its first geocoding match.
func (c *Client) CoordinatesFromCity(ctx context.Context, name string) (types.Location, error) {
	if c.apiKey == "" {
		return types.Location{}, ErrMissingAPIKey
	}
	q := url.Values{}
	q.Set("q", name)
	q.Set("limit", "1")
	var locs []types.Location
	if err := c.getJSON(ctx, "geocoding", c.geoURL("direct", q), &locs); err != nil {
		return types.Location{}, err
	}
	if len(locs) == 0 {
		return types.Location{}, fmt.Errorf("%w: %v", ErrCityNotFound, name)
	}
	return locs[0], nil
}

// ReverseGeocode names the place at the given coordinate. The returned
// location keeps the queried coordinates, not the vendor's.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (types.Location, error) {
	if c.apiKey == "" {
		return types.Location{}, ErrMissingAPIKey
	}
	q := url.Values{}
	q.Set("lat", formatCoord(lat))
	q.Set("lon", formatCoord(lon))
	q.Set("limit", "1")
	var locs []types.Location
	if err := c.getJSON(ctx, "reverse geocoding", c.geoURL("reverse", q), &locs); err != nil {
		return types.Location{}, err
	}
	if len(locs) == 0 {
		return types.Location{}, fmt.Errorf("%w: (%v, %v)", ErrCityNotFound, lat, lon)
	}
	loc := locs[0]
	loc.Lat, loc.Lon = lat, lon
	return loc, nil
}

// WeatherData fetches current conditions and the 3-hour forecast list
// concurrently and merges them into one record. Either request failing fails
// the whole operation; there is no partial result.
func (c *Client) WeatherData(ctx context.Context, lat, lon float64) (*types.WeatherRecord, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	var cur currentResponse
	var fc forecastResponse

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.getJSON(gctx, "weather", c.weatherURL("weather", lat, lon), &cur)
	})
	g.Go(func() error {
		return c.getJSON(gctx, "forecast", c.weatherURL("forecast", lat, lon), &fc)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return merge(cur, fc), nil
}

// WeatherByCity resolves a city name and fetches its weather.
func (c *Client) WeatherByCity(ctx context.Context, name string) (*types.Snapshot, error) {
	loc, err := c.CoordinatesFromCity(ctx, name)
	if err != nil {
		return nil, err
	}
	rec, err := c.WeatherData(ctx, loc.Lat, loc.Lon)
	if err != nil {
		return nil, err
	}
	return &types.Snapshot{Location: loc, Weather: *rec}, nil
}

// WeatherByCoordinates fetches weather for an already-resolved location.
func (c *Client) WeatherByCoordinates(ctx context.Context, loc types.Location) (*types.Snapshot, error) {
	rec, err := c.WeatherData(ctx, loc.Lat, loc.Lon)
	if err != nil {
		return nil, err
	}
	return &types.Snapshot{Location: loc, Weather: *rec}, nil
}

type currentResponse struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Pressure  float64 `json:"pressure"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   int     `json:"deg"`
	} `json:"wind"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
	Visibility int                `json:"visibility"`
	Weather    []types.Conditions `json:"weather"`
	Rain       *types.Rain        `json:"rain"`
	Sys        struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
}

type forecastResponse struct {
	List []types.ForecastEntry `json:"list"`
}

func merge(cur currentResponse, fc forecastResponse) *types.WeatherRecord {
	rec := &types.WeatherRecord{
		Current: types.CurrentConditions{
			Time:       cur.Dt,
			Temp:       cur.Main.Temp,
			FeelsLike:  cur.Main.FeelsLike,
			Pressure:   cur.Main.Pressure,
			Humidity:   cur.Main.Humidity,
			DewPoint:   dewPoint(cur.Main.Temp, cur.Main.Humidity),
			UVI:        0, // not supplied by this endpoint
			Clouds:     cur.Clouds.All,
			Visibility: cur.Visibility,
			WindSpeed:  cur.Wind.Speed,
			WindDeg:    cur.Wind.Deg,
			Conditions: cur.Weather,
			Rain:       cur.Rain,
			Sunrise:    cur.Sys.Sunrise,
			Sunset:     cur.Sys.Sunset,
		},
		Daily: fc.List,
	}
	hourly := fc.List
	if len(hourly) > hourlyLimit {
		hourly = hourly[:hourlyLimit]
	}
	rec.Hourly = hourly
	return rec
}

// dewPoint approximates the dew point from temperature and relative humidity
// with the Magnus formula; the current-conditions endpoint does not report
// it directly.
func dewPoint(temp, humidity float64) float64 {
	if humidity <= 0 {
		return temp
	}
	const a, b = 17.27, 237.7
	alpha := (a*temp)/(b+temp) + math.Log(humidity/100)
	return (b * alpha) / (a - alpha)
}

func (c *Client) geoURL(path string, q url.Values) string {
	q.Set("appid", c.apiKey)
	return fmt.Sprintf("%v/%v?%v", c.geoBaseUrl, path, q.Encode())
}

func (c *Client) weatherURL(path string, lat, lon float64) string {
	q := url.Values{}
	q.Set("lat", formatCoord(lat))
	q.Set("lon", formatCoord(lon))
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")
	return fmt.Sprintf("%v/%v?%v", c.weatherBaseUrl, path, q.Encode())
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (c *Client) getJSON(ctx context.Context, endpoint, rawURL string, out interface{}) error {
	start := time.Now()
	err := c.doGetJSON(ctx, endpoint, rawURL, out)
	metrics.RecordVendorRequest(endpoint, time.Since(start), err)
	return err
}

func (c *Client) doGetJSON(ctx context.Context, endpoint, rawURL string, out interface{}) error {
	resp, err := c.httpc.Do(ctx, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, rawURL, nil)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %v response body: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := errorMessage(body)
		if resp.StatusCode == http.StatusUnauthorized {
			if msg == "" {
				return ErrAuthRejected
			}
			return fmt.Errorf("%w: %v", ErrAuthRejected, msg)
		}
		return &StatusError{Endpoint: endpoint, Status: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshalling %v response: %w", endpoint, err)
	}
	return nil
}

// errorMessage pulls the vendor's message from an error body, tolerating an
// unparsable body as empty.
func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	return e.Message
}
