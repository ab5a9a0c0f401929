// Package config handles watchdog configuration loading, saving, and
// validation. The monitoring core only ever reads it.
package config

// DetectionMode selects how default routes are discovered.
type DetectionMode string

const (
	ModeAuto        DetectionMode = "auto"
	ModePerformance DetectionMode = "performance"
	ModePrecision   DetectionMode = "precision"
)

// Strategy selects how the public identity is judged against home.
type Strategy string

const (
	StrategyCountry  Strategy = "country"
	StrategyISP      Strategy = "isp"
	StrategyCombined Strategy = "combined"
	StrategyIPMatch  Strategy = "ip_match"
)

// Config represents the main configuration structure.
type Config struct {
	Version       int          `yaml:"version"`
	LogLevel      string       `yaml:"log_level"`
	CheckInterval int          `yaml:"check_interval"` // orchestrator tick, seconds
	Home          Home         `yaml:"home"`
	Routing       RoutingCheck `yaml:"routing"`
	Public        PublicCheck  `yaml:"public"`
	DNS           DNSCheck     `yaml:"dns"`
}

// Home describes the identity the traffic must NOT show up as.
type Home struct {
	Country string `yaml:"country,omitempty"` // ISO code, e.g. "DE"
	ISP     string `yaml:"isp,omitempty"`     // substring, e.g. "Telekom"
	DynDNS  string `yaml:"dyndns,omitempty"`  // hostname or static IP
}

// RoutingCheck configures the default-route guard.
type RoutingCheck struct {
	Enabled           bool          `yaml:"enabled"`
	AllowedInterfaces []string      `yaml:"allowed_interfaces"`
	DetectionMode     DetectionMode `yaml:"detection_mode"`
}

// PublicCheck configures the public identity guard.
type PublicCheck struct {
	Enabled  bool     `yaml:"enabled"`
	Interval int      `yaml:"interval"` // seconds
	Provider string   `yaml:"provider"` // smart, iponly, ipwhois, ipapi, custom
	Strategy Strategy `yaml:"strategy"`

	// Custom provider settings.
	CustomURL        string `yaml:"custom_url,omitempty"`
	CustomURLv6      string `yaml:"custom_url_v6,omitempty"`
	CustomKeyIP      string `yaml:"custom_key_ip,omitempty"`
	CustomKeyCountry string `yaml:"custom_key_country,omitempty"`
	CustomKeyISP     string `yaml:"custom_key_isp,omitempty"`
}

// DNSCheck configures the DNS leak guard.
type DNSCheck struct {
	Enabled        bool `yaml:"enabled"`
	Interval       int  `yaml:"interval"` // seconds, API intensive
	AlertOnHomeISP bool `yaml:"alert_on_home_isp"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version:       1,
		LogLevel:      "info",
		CheckInterval: 5,
		Routing: RoutingCheck{
			Enabled:           true,
			AllowedInterfaces: []string{},
			DetectionMode:     ModeAuto,
		},
		Public: PublicCheck{
			Enabled:          false,
			Interval:         60,
			Provider:         "smart",
			Strategy:         StrategyCombined,
			CustomKeyIP:      "ip",
			CustomKeyCountry: "country",
			CustomKeyISP:     "isp",
		},
		DNS: DNSCheck{
			Enabled:        false,
			Interval:       120,
			AlertOnHomeISP: true,
		},
	}
}
