package config

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"time"

	"mxshs/oddsranker/src/domain"

	"gopkg.in/yaml.v3"
)

//go:embed site.yaml
var defaultSite []byte

// Selector holds the CSS selectors the crawler relies on. They describe one
// site's fixed markup and are the first thing to update when it changes.
type Selector struct {
	LoginUsername string `yaml:"login_username"`
	LoginPassword string `yaml:"login_password"`
	LoginRemember string `yaml:"login_remember"`
	LoginSubmit   string `yaml:"login_submit"`

	SettingsForm     string `yaml:"settings_form"`
	SettingsCheckbox string `yaml:"settings_checkbox"`
	SettingsSubmit   string `yaml:"settings_submit"`

	Pagination     string `yaml:"pagination"`
	PaginationLink string `yaml:"pagination_link"`

	MatchBlock  string `yaml:"match_block"`
	MatchTime   string `yaml:"match_time"`
	Participant string `yaml:"participant"`
	ReturnRate  string `yaml:"return_rate"`
	Odd         string `yaml:"odd"`
}

type Site struct {
	BaseURL      string `yaml:"base_url"`
	LoginPath    string `yaml:"login_path"`
	SettingsPath string `yaml:"settings_path"`
	// LoginMarker is looked for in the URL after submitting credentials.
	LoginMarker string `yaml:"login_marker"`
	RememberMe  bool   `yaml:"remember_me"`
	PageParam   string `yaml:"page_param"`

	Listings map[domain.Sport]string `yaml:"listings"`

	Selector   Selector           `yaml:"selectors"`
	Bookmakers []domain.Bookmaker `yaml:"bookmakers"`

	Browser BrowserConfig `yaml:"browser"`
}

type BrowserConfig struct {
	Headless    bool          `yaml:"headless"`
	UserAgent   string        `yaml:"user_agent"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	// NavigationsPerSecond paces page loads; zero disables pacing.
	NavigationsPerSecond float64 `yaml:"navigations_per_second"`
}

func DefaultSite() (*Site, error) {
	return parseSite(defaultSite)
}

// LoadSite reads a YAML site description. Fields the file leaves out keep
// their embedded defaults.
func LoadSite(path string) (*Site, error) {
	if path == "" {
		return DefaultSite()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read site config: %w", err)
	}

	site, err := DefaultSite()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, site); err != nil {
		return nil, fmt.Errorf("parse site config %s: %w", path, err)
	}

	return site, site.validate()
}

func parseSite(data []byte) (*Site, error) {
	site := &Site{}
	if err := yaml.Unmarshal(data, site); err != nil {
		return nil, fmt.Errorf("parse site config: %w", err)
	}

	return site, site.validate()
}

func (s *Site) validate() error {
	if _, err := url.Parse(s.BaseURL); err != nil || s.BaseURL == "" {
		return fmt.Errorf("site config: invalid base_url %q", s.BaseURL)
	}
	if len(s.Bookmakers) == 0 {
		return fmt.Errorf("site config: empty bookmaker catalog")
	}
	seen := map[string]bool{}
	for _, b := range s.Bookmakers {
		if b.ID == "" || seen[b.ID] {
			return fmt.Errorf("site config: bad or duplicate bookmaker id %q", b.ID)
		}
		seen[b.ID] = true
	}
	for sport := range s.Listings {
		if _, err := domain.ParseSport(string(sport)); err != nil {
			return fmt.Errorf("site config: %w", err)
		}
	}
	if s.PageParam == "" {
		s.PageParam = "page"
	}

	return nil
}

func (s *Site) resolve(path string) string {
	base, _ := url.Parse(s.BaseURL)
	ref, err := url.Parse(path)
	if err != nil {
		return s.BaseURL + path
	}

	return base.ResolveReference(ref).String()
}

func (s *Site) LoginURL() string {
	return s.resolve(s.LoginPath)
}

func (s *Site) SettingsURL() string {
	return s.resolve(s.SettingsPath)
}

func (s *Site) ListingURL(sport domain.Sport) (string, bool) {
	path, ok := s.Listings[sport]
	if !ok {
		return "", false
	}

	return s.resolve(path), true
}

func (s *Site) Bookmaker(id string) (domain.Bookmaker, bool) {
	for _, b := range s.Bookmakers {
		if b.ID == id {
			return b, true
		}
	}

	return domain.Bookmaker{}, false
}
