package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"skycast/internal/httpx"
)

func testClient(srvURL string, opts ...ClientOption) *Client {
	base := []ClientOption{
		ApiKeyOption("test-key"),
		GeoBaseUrlOption(srvURL),
		WeatherBaseUrlOption(srvURL),
		HTTPOption(httpx.New("test", httpx.BackoffOption(httpx.Backoff{
			MaxRetries:      0,
			InitialInterval: time.Millisecond,
		}))),
	}
	return New(append(base, opts...)...)
}

func TestSearchCities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/direct" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "London" {
			t.Errorf("query = %q, want London", got)
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("limit = %q, want 5", got)
		}
		if got := r.URL.Query().Get("appid"); got != "test-key" {
			t.Errorf("appid = %q, want test-key", got)
		}
		fmt.Fprint(w, `[{"name":"London","lat":51.5073,"lon":-0.1277,"country":"GB"},
			{"name":"London","lat":42.9836,"lon":-81.2496,"country":"CA","state":"Ontario"}]`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	locs := c.SearchCities(context.Background(), "London", 5)
	if len(locs) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(locs))
	}
	if locs[0].Country != "GB" || locs[1].State != "Ontario" {
		t.Errorf("unexpected suggestions: %+v", locs)
	}
}

func TestSearchCitiesSwallowsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	if locs := c.SearchCities(context.Background(), "London", 5); locs != nil {
		t.Errorf("expected empty suggestions on failure, got %+v", locs)
	}
}

func TestSearchCitiesMissingKey(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	c := testClient(srv.URL, ApiKeyOption(""))
	if locs := c.SearchCities(context.Background(), "London", 5); locs != nil {
		t.Errorf("expected empty suggestions, got %+v", locs)
	}
	if hits != 0 {
		t.Errorf("expected no network call without credential, got %d", hits)
	}
}

func TestCoordinatesFromCityNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.CoordinatesFromCity(context.Background(), "Nowheresville")
	if !errors.Is(err, ErrCityNotFound) {
		t.Errorf("expected ErrCityNotFound, got %v", err)
	}
}

func weatherTestServer(t *testing.T, forecastEntries int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/weather", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("units"); got != "metric" {
			t.Errorf("units = %q, want metric", got)
		}
		fmt.Fprint(w, `{
			"dt": 1700000000,
			"main": {"temp": 20, "feels_like": 19.4, "pressure": 1012, "humidity": 50},
			"wind": {"speed": 3.6, "deg": 220},
			"clouds": {"all": 40},
			"visibility": 10000,
			"weather": [{"id": 802, "main": "Clouds", "description": "scattered clouds", "icon": "03d"}],
			"sys": {"sunrise": 1699990000, "sunset": 1700025000}
		}`)
	})
	mux.HandleFunc("/forecast", func(w http.ResponseWriter, r *http.Request) {
		list := make([]map[string]interface{}, 0, forecastEntries)
		for i := 0; i < forecastEntries; i++ {
			list = append(list, map[string]interface{}{
				"dt":      1700000000 + i*10800,
				"main":    map[string]float64{"temp": 15, "temp_min": 14, "temp_max": 16},
				"weather": []map[string]interface{}{{"main": "Clouds", "icon": "04d"}},
				"pop":     0.25,
			})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"list": list})
	})
	return httptest.NewServer(mux)
}

func TestWeatherDataMerge(t *testing.T) {
	srv := weatherTestServer(t, 30)
	defer srv.Close()

	c := testClient(srv.URL)
	rec, err := c.WeatherData(context.Background(), 51.5, -0.12)
	if err != nil {
		t.Fatalf("WeatherData: %v", err)
	}

	if rec.Current.Temp != 20 || rec.Current.Humidity != 50 {
		t.Errorf("current conditions not copied: %+v", rec.Current)
	}
	if rec.Current.UVI != 0 {
		t.Errorf("uvi = %v, want default 0", rec.Current.UVI)
	}
	// Magnus approximation for 20C at 50% humidity lands near 9.3C.
	if rec.Current.DewPoint < 9 || rec.Current.DewPoint > 10 {
		t.Errorf("dew point = %v, want ~9.3", rec.Current.DewPoint)
	}
	if len(rec.Daily) != 30 {
		t.Errorf("daily length = %d, want full list of 30", len(rec.Daily))
	}
	if len(rec.Hourly) != 24 {
		t.Errorf("hourly length = %d, want truncated 24", len(rec.Hourly))
	}
	if rec.Daily[0].Pop == nil || *rec.Daily[0].Pop != 0.25 {
		t.Errorf("pop not decoded: %+v", rec.Daily[0])
	}
	if rec.Current.Rain != nil {
		t.Errorf("rain should be absent, got %+v", rec.Current.Rain)
	}
}

func TestWeatherDataAuthRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"cod":401,"message":"Invalid API key"}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.WeatherData(context.Background(), 51.5, -0.12)
	if !errors.Is(err, ErrAuthRejected) {
		t.Errorf("expected ErrAuthRejected, got %v", err)
	}
}

func TestWeatherDataFailsWholeOnPartialFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/weather", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"dt": 1700000000, "main": {"temp": 20, "humidity": 50}}`)
	})
	mux.HandleFunc("/forecast", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `not json at all`, http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.WeatherData(context.Background(), 51.5, -0.12)
	if err == nil {
		t.Fatal("expected error when forecast endpoint fails")
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Status != http.StatusNotFound || statusErr.Message != "" {
		t.Errorf("unexpected status error: %+v", statusErr)
	}
}

func TestWeatherDataMissingKey(t *testing.T) {
	c := New()
	if _, err := c.WeatherData(context.Background(), 0, 0); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}
