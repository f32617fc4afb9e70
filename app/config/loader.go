package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/WebsitesPages/Autoscan/app/cfg"
)

// Loader resolves crawl search profiles. Without a profiles file it falls
// back to a single profile assembled from the application configuration.
type Loader struct {
	path   string
	appCfg *cfg.Cfg
}

func NewLoader(path string, appCfg *cfg.Cfg) *Loader {
	return &Loader{path: path, appCfg: appCfg}
}

func (l *Loader) Load() ([]Profile, error) {
	if l.path == "" {
		return []Profile{defaultProfile(l.appCfg)}, nil
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("Profiles file not found, using defaults", "path", l.path)
			return []Profile{defaultProfile(l.appCfg)}, nil
		}
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}

	var file ProfilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse profiles file: %w", err)
	}

	profiles := make([]Profile, 0, len(file.Profiles))
	for i, p := range file.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("profile %d: name is required", i)
		}
		setDefaults(&p, l.appCfg)
		if !p.IsEnabled() {
			slog.Debug("Profile disabled, skipping", "profile", p.Name)
			continue
		}
		profiles = append(profiles, p)
	}

	if len(profiles) == 0 {
		return []Profile{defaultProfile(l.appCfg)}, nil
	}

	return profiles, nil
}

func defaultProfile(appCfg *cfg.Cfg) Profile {
	return Profile{
		Name:     "default",
		AreaSlug: appCfg.AreaSlug,
		AreaCode: appCfg.AreaCode,
		RadiusKM: appCfg.RadiusKM,
		PriceMin: appCfg.PriceMin,
		PriceMax: appCfg.PriceMax,
		KmMax:    appCfg.KmMax,
		Pages:    2,
	}
}

func setDefaults(p *Profile, appCfg *cfg.Cfg) {
	if p.AreaSlug == "" {
		p.AreaSlug = appCfg.AreaSlug
	}
	if p.AreaCode == "" {
		p.AreaCode = appCfg.AreaCode
	}
	if p.RadiusKM == 0 {
		p.RadiusKM = appCfg.RadiusKM
	}
	if p.Pages == 0 {
		p.Pages = 2
	}
}
