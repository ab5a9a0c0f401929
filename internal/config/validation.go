package config

import "fmt"

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Version < 1 {
		return fmt.Errorf("invalid config version")
	}
	if c.CheckInterval < 1 {
		return fmt.Errorf("check_interval must be at least 1 second")
	}

	if err := c.Routing.Validate(); err != nil {
		return fmt.Errorf("routing config: %w", err)
	}
	if err := c.Public.Validate(); err != nil {
		return fmt.Errorf("public config: %w", err)
	}
	if err := c.DNS.Validate(); err != nil {
		return fmt.Errorf("dns config: %w", err)
	}

	return nil
}

// Validate validates routing guard configuration.
func (r *RoutingCheck) Validate() error {
	switch r.DetectionMode {
	case ModeAuto, ModePerformance, ModePrecision:
	default:
		return fmt.Errorf("unknown detection_mode: %s", r.DetectionMode)
	}
	return nil
}

// Validate validates public identity guard configuration.
func (p *PublicCheck) Validate() error {
	if p.Interval < 1 {
		return fmt.Errorf("interval must be at least 1 second")
	}

	switch p.Strategy {
	case StrategyCountry, StrategyISP, StrategyCombined, StrategyIPMatch:
	default:
		return fmt.Errorf("unknown strategy: %s", p.Strategy)
	}

	switch p.Provider {
	case "smart", "iponly", "ipwhois", "ipapi", "custom":
	default:
		return fmt.Errorf("unknown provider: %s", p.Provider)
	}

	if p.Provider == "custom" && p.CustomURL == "" {
		return fmt.Errorf("custom provider requires custom_url")
	}

	return nil
}

// Validate validates DNS leak guard configuration.
func (d *DNSCheck) Validate() error {
	if d.Interval < 1 {
		return fmt.Errorf("interval must be at least 1 second")
	}
	return nil
}
