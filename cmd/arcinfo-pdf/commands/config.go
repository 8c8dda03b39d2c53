package commands

import (
	"time"

	"arcinfo-pdf/internal/components/configutil"
	"arcinfo-pdf/internal/components/telemetry"
	"arcinfo-pdf/internal/delivery"
	"arcinfo-pdf/internal/discovery"
	"arcinfo-pdf/internal/scrapers/arcinfo"
)

type DiscoveryConfig struct {
	Matcher string `json:"matcher"`
	Dedupe  bool   `json:"dedupe"`
}

type Config struct {
	BaseUrl                 string           `json:"base_url"`
	UserAgent               string           `json:"user_agent"`
	TimeoutSeconds          int              `json:"timeout_seconds"`
	DisableCloudflareBypass bool             `json:"disable_cloudflare_bypass"`
	RequireLogin            bool             `json:"require_login"`
	Discovery               DiscoveryConfig  `json:"discovery"`
	Telemetry               telemetry.Config `json:"telemetry"`
	Delivery                delivery.Config  `json:"delivery"`
}

func defaultConfig() Config {
	return Config{
		BaseUrl:   arcinfo.DefaultBaseUrl,
		UserAgent: arcinfo.DefaultUserAgent,
		Discovery: DiscoveryConfig{
			Matcher: discovery.MatcherRegex,
		},
	}
}

// loadConfig reads the config file if there is one, a missing file leaves
// the defaults in place.
func loadConfig(path string) (Config, error) {
	return configutil.ReadOrDefault(path, defaultConfig())
}

func (c Config) clientOptions() arcinfo.ClientOptions {
	return arcinfo.ClientOptions{
		BaseUrl:                 c.BaseUrl,
		UserAgent:               c.UserAgent,
		Timeout:                 time.Duration(c.TimeoutSeconds) * time.Second,
		DisableCloudflareBypass: c.DisableCloudflareBypass,
	}
}
