package cfg

type Cfg struct {
	// Storage configuration
	DBPath string

	// HTTP server configuration
	Port         string
	APIAccessKey string

	// Kleinanzeigen search defaults
	AreaSlug string
	AreaCode string
	RadiusKM int
	PriceMin string
	PriceMax string
	KmMax    string

	// Sync configuration
	SyncInterval int // seconds between scheduled sync runs
	SyncCooldown int // seconds below which a trigger is a no-op
	FetchTimeout int // seconds per HTTP fetch

	// Optional search profile overrides
	ProfilesFile string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
