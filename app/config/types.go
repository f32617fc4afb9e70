package config

// Profile describes one crawl search configuration. The sync orchestrator
// builds one search-result URL per page for every enabled profile.
type Profile struct {
	Name     string `yaml:"name"`
	Enabled  *bool  `yaml:"enabled"`
	AreaSlug string `yaml:"area_slug"`
	AreaCode string `yaml:"area_code"`
	RadiusKM int    `yaml:"radius_km"`
	PriceMin string `yaml:"price_min"`
	PriceMax string `yaml:"price_max"`
	KmMax    string `yaml:"km_max"`
	Pages    int    `yaml:"pages"`
}

// ProfilesFile is the on-disk YAML shape.
type ProfilesFile struct {
	Profiles []Profile `yaml:"profiles"`
}

func (p *Profile) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}
