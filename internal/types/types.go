package types

// Location identifies a queryable point. State is optional depending on
// country. Immutable once resolved for a given weather fetch.
type Location struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Name    string  `json:"name"`
	Country string  `json:"country"`
	State   string  `json:"state,omitempty"`
}

// Label renders the location the way it appears in search history:
// "Name, Country" or "Name, State, Country".
func (l Location) Label() string {
	if l.State != "" {
		return l.Name + ", " + l.State + ", " + l.Country
	}
	return l.Name + ", " + l.Country
}

type Conditions struct {
	Id          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Rain is the vendor's precipitation volume object. Its mere presence on
// current conditions is meaningful even when both fields are zero.
type Rain struct {
	OneH   float64 `json:"1h,omitempty"`
	ThreeH float64 `json:"3h,omitempty"`
}

type CurrentConditions struct {
	Time       int64        `json:"dt"`
	Temp       float64      `json:"temp"`
	FeelsLike  float64      `json:"feels_like"`
	Pressure   float64      `json:"pressure"`
	Humidity   float64      `json:"humidity"`
	DewPoint   float64      `json:"dew_point"`
	UVI        float64      `json:"uvi"`
	Clouds     int          `json:"clouds"`
	Visibility int          `json:"visibility"`
	WindSpeed  float64      `json:"wind_speed"`
	WindDeg    int          `json:"wind_deg"`
	Conditions []Conditions `json:"weather"`
	Rain       *Rain        `json:"rain,omitempty"`
	Sunrise    int64        `json:"sunrise,omitempty"`
	Sunset     int64        `json:"sunset,omitempty"`
}

type ForecastMain struct {
	Temp     float64 `json:"temp"`
	TempMin  float64 `json:"temp_min"`
	TempMax  float64 `json:"temp_max"`
	Humidity float64 `json:"humidity"`
}

// ForecastEntry is one vendor forecast-list item at 3-hour resolution.
// Pop is a pointer so a missing field is distinguishable from 0.
type ForecastEntry struct {
	Time       int64        `json:"dt"`
	Main       ForecastMain `json:"main"`
	Conditions []Conditions `json:"weather"`
	Pop        *float64     `json:"pop,omitempty"`
}

// WeatherRecord merges the current-conditions and forecast-list endpoints.
// Daily carries the raw 3-hour-step list, not one entry per day; the name
// reflects the vendor's source endpoint. Hourly is the same list truncated.
type WeatherRecord struct {
	Current CurrentConditions `json:"current"`
	Daily   []ForecastEntry   `json:"daily"`
	Hourly  []ForecastEntry   `json:"hourly"`
}

// FavoriteCity is a user-saved station. Uniqueness is enforced on the
// (Lat, Lon) pair, not on Id.
type FavoriteCity struct {
	Id      string  `json:"id"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Name    string  `json:"name"`
	Country string  `json:"country"`
	State   string  `json:"state,omitempty"`
	AddedAt int64   `json:"addedAt"`
}

// Snapshot is the last successfully fetched weather together with its
// location. Advisory cache only, never authoritative over a fresh fetch.
type Snapshot struct {
	Location Location      `json:"location"`
	Weather  WeatherRecord `json:"weather"`
}
