package skycast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"skycast/internal/geolocate"
	"skycast/internal/openweather"
	"skycast/internal/search"
	"skycast/internal/store"
	"skycast/internal/types"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

const suggestionLimit = 5

type SearchResponse struct {
	Suggestions []types.Location `json:"suggestions"`
}

type HistoryResponse struct {
	History []string `json:"history"`
}

type StationsResponse struct {
	Stations []StationCard `json:"stations"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Service) SearchHandler(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	resp := &SearchResponse{Suggestions: []types.Location{}}
	if len(query) >= search.MinQueryLen {
		if locs := s.ow.SearchCities(r.Context(), query, suggestionLimit); locs != nil {
			resp.Suggestions = locs
		}
	}
	s.writeResponse(w, resp)
}

func (s *Service) WeatherHandler(w http.ResponseWriter, r *http.Request) {
	resp, err := s.weather(r.Context(), r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, resp)
}

type coordsQuery struct {
	Lat float64 `validate:"min=-90,max=90"`
	Lon float64 `validate:"min=-180,max=180"`
}

func (s *Service) weather(ctx context.Context, r *http.Request) (*WeatherView, error) {
	q := r.URL.Query()

	if city := strings.TrimSpace(q.Get("city")); city != "" {
		snap, err := s.ow.WeatherByCity(ctx, city)
		if err != nil {
			return nil, s.weatherError(err, city)
		}
		s.persist(ctx, *snap, true)
		v := s.view(*snap, time.Now())
		return &v, nil
	}

	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(q.Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		return nil, CodeError{code: 400, msg: "Provide either a 'city' or a 'lat'/'lon' pair."}
	}
	coords := coordsQuery{Lat: lat, Lon: lon}
	if err := validate.Struct(coords); err != nil {
		return nil, CodeError{code: 400, msg: "Coordinates out of range."}
	}

	loc := types.Location{
		Lat:     lat,
		Lon:     lon,
		Name:    q.Get("name"),
		Country: q.Get("country"),
		State:   q.Get("state"),
	}
	snap, err := s.ow.WeatherByCoordinates(ctx, loc)
	if err != nil {
		return nil, s.weatherError(err, "")
	}
	s.persist(ctx, *snap, false)
	v := s.view(*snap, time.Now())
	return &v, nil
}

func (s *Service) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Snapshot(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, CodeError{code: 404, msg: "No saved weather yet."})
		return
	}
	if err != nil {
		s.Logger.Errorw("reading snapshot failed", "error", err.Error())
		s.writeError(w, CodeError{code: 500, msg: "Internal error reading saved weather."})
		return
	}
	v := s.view(snap, time.Now())
	s.writeResponse(w, &v)
}

func (s *Service) FavoritesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listStations(w, r)
	case http.MethodPost:
		s.addFavorite(w, r)
	case http.MethodDelete:
		s.removeFavorite(w, r)
	default:
		s.writeError(w, CodeError{code: 405, msg: "Method not allowed."})
	}
}

func (s *Service) listStations(w http.ResponseWriter, r *http.Request) {
	favs, err := s.store.Favorites(r.Context())
	if err != nil {
		s.Logger.Errorw("loading favorites failed", "error", err.Error())
		s.writeError(w, CodeError{code: 500, msg: "Internal error loading favorites."})
		return
	}
	s.writeResponse(w, &StationsResponse{Stations: s.stationCards(r.Context(), favs)})
}

type addFavoriteRequest struct {
	Lat     float64 `json:"lat" validate:"min=-90,max=90"`
	Lon     float64 `json:"lon" validate:"min=-180,max=180"`
	Name    string  `json:"name" validate:"required"`
	Country string  `json:"country" validate:"required"`
	State   string  `json:"state"`
}

func (s *Service) addFavorite(w http.ResponseWriter, r *http.Request) {
	var req addFavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, CodeError{code: 400, msg: "Invalid request body."})
		return
	}
	if err := validate.Struct(req); err != nil {
		s.writeError(w, CodeError{code: 400, msg: "A favorite needs a name, country and valid coordinates."})
		return
	}

	now := time.Now()
	fav := types.FavoriteCity{
		Id:      store.NewFavoriteID(now),
		Lat:     req.Lat,
		Lon:     req.Lon,
		Name:    req.Name,
		Country: req.Country,
		State:   req.State,
		AddedAt: now.Unix(),
	}
	if err := s.store.AddFavorite(r.Context(), fav); err != nil {
		if errors.Is(err, store.ErrDuplicateFavorite) {
			s.writeError(w, CodeError{code: 409, msg: fmt.Sprintf("'%v' is already in favorites.", req.Name)})
			return
		}
		s.Logger.Errorw("adding favorite failed", "city", req.Name, "error", err.Error())
		s.writeError(w, CodeError{code: 500, msg: "Internal error saving favorite."})
		return
	}
	s.writeResponse(w, &fav)
}

func (s *Service) removeFavorite(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		s.writeError(w, CodeError{code: 400, msg: "Missing 'id' query parameter in request"})
		return
	}
	if err := s.store.RemoveFavorite(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, CodeError{code: 404, msg: "Favorite not found."})
			return
		}
		s.Logger.Errorw("removing favorite failed", "id", id, "error", err.Error())
		s.writeError(w, CodeError{code: 500, msg: "Internal error removing favorite."})
		return
	}
	s.dropCard(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	history, err := s.store.History(r.Context())
	if err != nil {
		s.Logger.Errorw("loading search history failed", "error", err.Error())
		s.writeError(w, CodeError{code: 500, msg: "Internal error loading search history."})
		return
	}
	if history == nil {
		history = []string{}
	}
	s.writeResponse(w, &HistoryResponse{History: history})
}

func (s *Service) LocateHandler(w http.ResponseWriter, r *http.Request) {
	loc, err := s.geo.Resolve(r.Context())
	if err != nil {
		s.writeError(w, locateError(err))
		return
	}
	snap, err := s.ow.WeatherByCoordinates(r.Context(), loc)
	if err != nil {
		s.writeError(w, s.weatherError(err, ""))
		return
	}
	s.persist(r.Context(), *snap, false)
	v := s.view(*snap, time.Now())
	s.writeResponse(w, &v)
}

// weatherError maps client failures onto status-coded errors for the view
// layer; the underlying cause is logged here.
func (s *Service) weatherError(err error, city string) error {
	switch {
	case errors.Is(err, openweather.ErrCityNotFound):
		return CodeError{code: 400, msg: fmt.Sprintf("Unrecognized city '%v'. Check spelling or be more specific.", city)}
	case errors.Is(err, openweather.ErrMissingAPIKey):
		s.Logger.Errorw(err.Error(), "action", "weather")
		return CodeError{code: 500, msg: "Weather service is not configured."}
	case errors.Is(err, openweather.ErrAuthRejected):
		s.Logger.Errorw(err.Error(), "action", "weather")
		return CodeError{code: 502, msg: "Weather service rejected the request."}
	default:
		s.Logger.Errorw(err.Error(), "action", "weather")
		return CodeError{code: 500, msg: "Internal error retrieving weather."}
	}
}

func locateError(err error) error {
	var posErr *geolocate.Error
	if !errors.As(err, &posErr) {
		return CodeError{code: 500, msg: "Unable to determine your location."}
	}
	code := 503
	switch posErr.Code {
	case geolocate.CodePermissionDenied:
		code = 403
	case geolocate.CodeTimeout:
		code = 504
	}
	return CodeError{code: code, msg: posErr.UserMessage()}
}

func (s *Service) writeError(w http.ResponseWriter, err error) {
	codeErr, ok := err.(CodeError)
	if ok {
		bodyBytes, _ := json.Marshal(errorResponse{Error: codeErr.Error()})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(codeErr.code)
		io.WriteString(w, string(bodyBytes))
	} else {
		w.WriteHeader(500)
		io.WriteString(w, "Internal server error")
	}
}

func (s *Service) writeResponse(w http.ResponseWriter, resp interface{}) {
	bodyBytes, _ := json.Marshal(resp)
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, string(bodyBytes))
}
