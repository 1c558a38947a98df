package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"navigate-map/internal/format"
	"navigate-map/internal/navigation"
	"navigate-map/internal/routing"
)

type Env string

const (
	EnvProd Env = "prod"
	EnvDev  Env = "dev"
)

func (e Env) IsValid() bool {
	switch e {
	case EnvProd, EnvDev:
		return true
	}
	return false
}

type Config struct {
	APIServerHost         string        `env:"API_SERVER_HOST"`
	APIServerPort         string        `env:"API_SERVER_PORT" envDefault:"8081"`
	RedisHost             string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort             string        `env:"REDIS_PORT" envDefault:"6379"`
	RedisLocationsChannel string        `env:"REDIS_LOCATIONS_CHANNEL" envDefault:"navigation:locations"`
	RoutingBaseURL        string        `env:"ROUTING_BASE_URL" envDefault:"http://localhost:8080"`
	RoutingTimeout        time.Duration `env:"ROUTING_TIMEOUT" envDefault:"7s"`
	RouteCacheSize        int           `env:"ROUTE_CACHE_SIZE" envDefault:"256"`
	RouteCacheTTL         time.Duration `env:"ROUTE_CACHE_TTL" envDefault:"15m"`
	RouteLanguage         string        `env:"ROUTE_LANGUAGE"`
	RouteUseHighways      float64       `env:"ROUTE_USE_HIGHWAYS" envDefault:"1"`
	RouteUseTolls         float64       `env:"ROUTE_USE_TOLLS" envDefault:"0.5"`
	RouteUseTracks        float64       `env:"ROUTE_USE_TRACKS" envDefault:"0"`
	RouteRetryInterval    time.Duration `env:"ROUTE_RETRY_INTERVAL" envDefault:"10s"`
	FixTTL                time.Duration `env:"FIX_TTL" envDefault:"30m"`
	// MapArea and CautionArea are "minLat,minLon,maxLat,maxLon". Unset
	// disables the matching view flag.
	MapArea     navigation.Bounds  `env:"MAP_AREA"`
	CautionArea navigation.Bounds  `env:"CAUTION_AREA"`
	Variant     navigation.Variant `env:"NAVIGATION_VARIANT" envDefault:"two_point"`
	Units       format.Units       `env:"UNITS" envDefault:"metric"`
	Locale      string             `env:"LOCALE" envDefault:"en"`
	LogFile     string             `env:"LOG_FILE"`
	Env         Env                `env:"ENV" envDefault:"prod"`
}

// New loads the optional dotenv files (".env" when none are given) and then
// parses the environment.
func New(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if !c.Env.IsValid() {
		return fmt.Errorf("invalid env variable (must be 'prod' or 'dev')")
	}
	if !c.Variant.IsValid() {
		return fmt.Errorf("invalid navigation variant %q (must be 'two_point' or 'current_location')", c.Variant)
	}
	if !c.Units.IsValid() {
		return fmt.Errorf("invalid units %q (must be 'metric' or 'imperial')", c.Units)
	}
	if c.RouteCacheSize <= 0 {
		return fmt.Errorf("route cache size must be positive, got %d", c.RouteCacheSize)
	}
	if c.RouteRetryInterval <= 0 {
		return fmt.Errorf("route retry interval must be positive, got %s", c.RouteRetryInterval)
	}
	for name, area := range map[string]navigation.Bounds{"map area": c.MapArea, "caution area": c.CautionArea} {
		if area.IsZero() {
			continue
		}
		if err := area.Validate(); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if err := c.CostingOptions().Validate(); err != nil {
		return fmt.Errorf("invalid route preferences: %w", err)
	}
	return nil
}

// CostingOptions are the car routing preferences.
func (c *Config) CostingOptions() *routing.CostingOptions {
	highways := routing.Ratio(c.RouteUseHighways)
	tolls := routing.Ratio(c.RouteUseTolls)
	tracks := routing.Ratio(c.RouteUseTracks)
	return &routing.CostingOptions{UseHighways: &highways, UseTolls: &tolls, UseTracks: &tracks}
}
