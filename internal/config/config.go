package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the service reads from the environment, loaded
// once at startup so no component touches os.Getenv itself.
type Config struct {
	APIKey         string
	GeoBaseUrl     string
	WeatherBaseUrl string
	GeoIPBaseUrl   string

	RedisAddr    string
	DisableRedis bool

	Addr            string
	RefreshInterval time.Duration
	Timezone        *time.Location
}

// Load reads configuration from the environment, with a best-effort .env
// file on top.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		APIKey:         os.Getenv("OPENWEATHER_API_KEY"),
		GeoBaseUrl:     os.Getenv("OPENWEATHER_GEO_BASEURL"),
		WeatherBaseUrl: os.Getenv("OPENWEATHER_BASEURL"),
		GeoIPBaseUrl:   getenvDefault("GEOIP_BASEURL", "http://ip-api.com/json"),
		RedisAddr:      getenvDefault("REDIS_ADDRESS", "localhost:6379"),
		Addr:           ":" + getenvDefault("PORT", "8080"),
	}

	if v, err := strconv.ParseBool(os.Getenv("DISABLE_REDIS")); err == nil {
		cfg.DisableRedis = v
	}

	intervalStr := getenvDefault("REFRESH_INTERVAL", "15m")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	cfg.RefreshInterval = interval

	tzName := getenvDefault("TZ_NAME", "Local")
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TZ_NAME: %w", err)
	}
	cfg.Timezone = tz

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
