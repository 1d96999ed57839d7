package skycast

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"skycast/internal/config"
	"skycast/internal/forecast"
	"skycast/internal/geolocate"
	"skycast/internal/httpx"
	"skycast/internal/icon"
	"skycast/internal/metrics"
	"skycast/internal/openweather"
	"skycast/internal/store"
	"skycast/internal/types"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// WeatherAPI is the slice of the vendor client the service needs.
type WeatherAPI interface {
	SearchCities(ctx context.Context, query string, limit int) []types.Location
	WeatherByCity(ctx context.Context, name string) (*types.Snapshot, error)
	WeatherByCoordinates(ctx context.Context, loc types.Location) (*types.Snapshot, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) (types.Location, error)
}

type CodeError struct {
	code int
	msg  string
}

func (c CodeError) Error() string {
	return c.msg
}

// WeatherView is everything the weather page renders for one location.
type WeatherView struct {
	Location   types.Location          `json:"location"`
	Current    types.CurrentConditions `json:"current"`
	Icon       string                  `json:"icon"`
	RainChance int                     `json:"rainChance"`
	Hourly     []forecast.HourlyEntry  `json:"hourly"`
	FiveDay    []forecast.Day          `json:"fiveDay"`
}

// StationCard is one favorite city on the stations grid. Weather is nil and
// Available false when the city's fetch failed and no cached view exists.
type StationCard struct {
	City      types.FavoriteCity `json:"city"`
	Weather   *WeatherView       `json:"weather,omitempty"`
	Available bool               `json:"available"`
}

type Service struct {
	ow    WeatherAPI
	store store.Store
	geo   *geolocate.Resolver
	tz    *time.Location
	addr  string

	cardMu sync.RWMutex
	cards  map[string]WeatherView

	Logger *zap.SugaredLogger
}

func New(cfg *config.Config) *Service {
	baseLogger, _ := zap.NewProduction()
	logger := baseLogger.Sugar()

	owOpts := []openweather.ClientOption{
		openweather.ApiKeyOption(cfg.APIKey),
		openweather.LoggerOption(logger),
		openweather.HTTPOption(httpx.New("openweather", httpx.RateLimitOption(10, 5))),
	}
	if cfg.GeoBaseUrl != "" {
		owOpts = append(owOpts, openweather.GeoBaseUrlOption(cfg.GeoBaseUrl))
	}
	if cfg.WeatherBaseUrl != "" {
		owOpts = append(owOpts, openweather.WeatherBaseUrlOption(cfg.WeatherBaseUrl))
	}
	ow := openweather.New(owOpts...)

	var st store.Store
	if cfg.DisableRedis {
		st = store.NewMemoryStore()
	} else {
		st = store.NewRedisStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), logger)
	}

	geo := geolocate.NewResolver(geolocate.NewIPProvider(cfg.GeoIPBaseUrl), ow, logger)

	s := newService(ow, st, geo, cfg.Timezone, logger)
	s.addr = cfg.Addr
	return s
}

func newService(ow WeatherAPI, st store.Store, geo *geolocate.Resolver, tz *time.Location, logger *zap.SugaredLogger) *Service {
	if tz == nil {
		tz = time.Local
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		ow:     ow,
		store:  st,
		geo:    geo,
		tz:     tz,
		cards:  make(map[string]WeatherView),
		Logger: logger,
	}
}

// Start serves the dashboard API until ctx is canceled, then shuts down
// gracefully.
func (s *Service) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", s.instrument("/search", s.SearchHandler))
	mux.HandleFunc("/weather", s.instrument("/weather", s.WeatherHandler))
	mux.HandleFunc("/snapshot", s.instrument("/snapshot", s.SnapshotHandler))
	mux.HandleFunc("/favorites", s.instrument("/favorites", s.FavoritesHandler))
	mux.HandleFunc("/history", s.instrument("/history", s.HistoryHandler))
	mux.HandleFunc("/locate", s.instrument("/locate", s.LocateHandler))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: s.addr, Handler: mux}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// view assembles the page model for a fetched snapshot.
func (s *Service) view(snap types.Snapshot, now time.Time) WeatherView {
	var iconCode string
	if len(snap.Weather.Current.Conditions) > 0 {
		iconCode = snap.Weather.Current.Conditions[0].Icon
	}
	return WeatherView{
		Location:   snap.Location,
		Current:    snap.Weather.Current,
		Icon:       icon.Path(iconCode),
		RainChance: forecast.RainChance(snap.Weather, now),
		Hourly:     forecast.Hourly(snap.Weather, now, s.tz),
		FiveDay:    forecast.FiveDay(snap.Weather, now, s.tz),
	}
}

// persist saves the snapshot and, for city searches, records the history
// entry. Both are advisory caches; failures are logged, never surfaced.
func (s *Service) persist(ctx context.Context, snap types.Snapshot, addHistory bool) {
	if err := s.store.SaveSnapshot(ctx, snap); err != nil {
		s.Logger.Errorw("persisting weather snapshot failed", "error", err.Error())
	}
	if addHistory {
		if err := s.store.PushHistory(ctx, snap.Location.Label()); err != nil {
			s.Logger.Errorw("recording search history failed", "error", err.Error())
		}
	}
}

func (s *Service) cachedCard(id string) (WeatherView, bool) {
	s.cardMu.RLock()
	defer s.cardMu.RUnlock()
	v, ok := s.cards[id]
	return v, ok
}

func (s *Service) cacheCard(id string, v WeatherView) {
	s.cardMu.Lock()
	s.cards[id] = v
	s.cardMu.Unlock()
}

func (s *Service) dropCard(id string) {
	s.cardMu.Lock()
	delete(s.cards, id)
	s.cardMu.Unlock()
}

// stationCards fetches live weather for every favorite concurrently. One
// city failing degrades its own card to the last cached view, or to
// unavailable, never the whole grid.
func (s *Service) stationCards(ctx context.Context, favs []types.FavoriteCity) []StationCard {
	cards := make([]StationCard, len(favs))

	wg := new(sync.WaitGroup)
	wg.Add(len(favs))
	for i, f := range favs {
		i, f := i, f
		go func() {
			defer wg.Done()
			snap, err := s.ow.WeatherByCoordinates(ctx, types.Location{
				Lat: f.Lat, Lon: f.Lon, Name: f.Name, Country: f.Country, State: f.State,
			})
			if err != nil {
				s.Logger.Warnf("station weather fetch failed for %v (%v,%v): %v",
					f.Name, f.Lat, f.Lon, err.Error())
				if cached, ok := s.cachedCard(f.Id); ok {
					cards[i] = StationCard{City: f, Weather: &cached, Available: true}
				} else {
					cards[i] = StationCard{City: f, Available: false}
				}
				return
			}
			v := s.view(*snap, time.Now())
			s.cacheCard(f.Id, v)
			cards[i] = StationCard{City: f, Weather: &v, Available: true}
		}()
	}
	wg.Wait()
	return cards
}

// RefreshStations re-fetches every favorite's weather into the in-memory
// card cache. Run on an interval by the refresher.
func (s *Service) RefreshStations(ctx context.Context) {
	favs, err := s.store.Favorites(ctx)
	if err != nil {
		s.Logger.Errorw("loading favorites for refresh failed", "error", err.Error())
		return
	}
	s.stationCards(ctx, favs)
	s.Logger.Infow("refreshed station weather", "stations", len(favs))
}

// instrument records request counts per path and terminal status.
func (s *Service) instrument(path string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		metrics.HTTPRequestsTotal.WithLabelValues(path, strconv.Itoa(rec.status)).Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
