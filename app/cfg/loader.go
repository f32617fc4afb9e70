package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"autos.db" description:"Path to the SQLite database file"`

	// HTTP server configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Kleinanzeigen search defaults
	AreaSlug string `long:"area-slug" env:"KA_AREA_SLUG" default:"bayern" description:"Region path segment for search URLs"`
	AreaCode string `long:"area-code" env:"KA_AREA_CODE" default:"l5510" description:"Region code for the c216 location block"`
	RadiusKM int    `long:"radius" env:"KA_RADIUS" default:"100" description:"Search radius in kilometers"`
	PriceMin string `long:"price-min" env:"KA_PRICE_MIN" description:"Lower price bound for the crawl search (optional)"`
	PriceMax string `long:"price-max" env:"KA_PRICE_MAX" description:"Upper price bound for the crawl search (optional)"`
	KmMax    string `long:"km-max" env:"KA_KM_MAX" description:"Mileage ceiling for the crawl search (optional)"`

	// Sync configuration
	SyncInterval int `long:"sync-interval" env:"SYNC_INTERVAL" default:"1800" description:"Scheduled sync interval in seconds"`
	SyncCooldown int `long:"sync-cooldown" env:"SYNC_COOLDOWN" default:"8" description:"Minimum seconds between sync runs"`
	FetchTimeout int `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"HTTP fetch timeout in seconds"`

	// Optional search profile overrides
	ProfilesFile string `long:"profiles-file" env:"PROFILES_FILE" description:"YAML file with named search profiles (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Berlin)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:       raw.DBPath,
		Port:         raw.Port,
		APIAccessKey: raw.APIAccessKey,
		AreaSlug:     raw.AreaSlug,
		AreaCode:     raw.AreaCode,
		RadiusKM:     raw.RadiusKM,
		PriceMin:     raw.PriceMin,
		PriceMax:     raw.PriceMax,
		KmMax:        raw.KmMax,
		SyncInterval: raw.SyncInterval,
		SyncCooldown: raw.SyncCooldown,
		FetchTimeout: raw.FetchTimeout,
		ProfilesFile: raw.ProfilesFile,
		UserAgent:    raw.UserAgent,
		Timezone:     raw.Timezone,
		Debug:        raw.Debug,
		Version:      GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
