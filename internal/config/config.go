// Copyright © 2025 Attestant Limited.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/namada-exporter/namada-exporter/internal/namada"
)

const (
	DefaultRPCTimeout    = 10 * time.Second
	DefaultScrapeTimeout = 30 * time.Second
	DefaultPingRate      = 60 * time.Second
	DefaultPingTimeout   = 10 * time.Second
	DefaultLogLevel      = "info"
)

type Config struct {
	Host               string             `mapstructure:"host"`
	ValidatorTMAddress string             `mapstructure:"validator_tm_address"`
	HTTPRPC            string             `mapstructure:"http_rpc"`
	RPCTimeout         string             `mapstructure:"rpc_timeout"`
	ScrapeTimeout      string             `mapstructure:"scrape_timeout"`
	LogLevel           string             `mapstructure:"log_level"`
	HealthCheck        *HealthCheckConfig `mapstructure:"healthcheck"`
}

type HealthCheckConfig struct {
	PingURL  string `mapstructure:"ping_url"`
	PingRate string `mapstructure:"ping_rate"`
	Timeout  string `mapstructure:"timeout"`
}

// Load decodes the configuration held by v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate reports the first problem that would prevent the exporter from
// serving. Errors read as user-facing messages.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if _, _, err := net.SplitHostPort(c.Host); err != nil {
		return fmt.Errorf("host %q is not a valid listen address: %w", c.Host, err)
	}
	if strings.TrimSpace(c.ValidatorTMAddress) == "" {
		return fmt.Errorf("validator_tm_address is required")
	}
	if err := namada.ValidateAddress(c.ValidatorTMAddress); err != nil {
		return fmt.Errorf("validator_tm_address: %w", err)
	}
	if c.HTTPRPC == "" {
		return fmt.Errorf("http_rpc is required")
	}
	if err := validateURL("http_rpc", c.HTTPRPC); err != nil {
		return err
	}
	if err := validateDuration("rpc_timeout", c.RPCTimeout); err != nil {
		return err
	}
	if err := validateDuration("scrape_timeout", c.ScrapeTimeout); err != nil {
		return err
	}
	if c.HealthCheck != nil {
		if err := c.HealthCheck.Validate(); err != nil {
			return fmt.Errorf("healthcheck: %w", err)
		}
	}
	return nil
}

func (c *Config) GetRPCTimeout() time.Duration {
	return parseDuration(c.RPCTimeout, DefaultRPCTimeout)
}

// GetScrapeTimeout bounds a whole /metrics scrape, retries included.
func (c *Config) GetScrapeTimeout() time.Duration {
	return parseDuration(c.ScrapeTimeout, DefaultScrapeTimeout)
}

// GetLogLevel returns the configured log level, defaulting to "info"
func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return DefaultLogLevel
	}
	return strings.ToLower(c.LogLevel)
}

func (hc *HealthCheckConfig) Validate() error {
	if hc.PingURL == "" {
		return fmt.Errorf("ping_url is required")
	}
	if err := validateURL("ping_url", hc.PingURL); err != nil {
		return err
	}
	if err := validateDuration("ping_rate", hc.PingRate); err != nil {
		return err
	}
	return validateDuration("timeout", hc.Timeout)
}

func (hc *HealthCheckConfig) GetPingRate() time.Duration {
	return parseDuration(hc.PingRate, DefaultPingRate)
}

func (hc *HealthCheckConfig) GetTimeout() time.Duration {
	return parseDuration(hc.Timeout, DefaultPingTimeout)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil || duration <= 0 {
		return fallback
	}
	return duration
}

func validateDuration(name, s string) error {
	if s == "" {
		return nil
	}
	duration, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%s %q is not a valid duration: %w", name, s, err)
	}
	if duration <= 0 {
		return fmt.Errorf("%s must be positive, got %q", name, s)
	}
	return nil
}

func validateURL(name, s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("%s %q is not a valid URL: %w", name, s, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s %q must use http or https", name, s)
	}
	if u.Host == "" {
		return fmt.Errorf("%s %q has no host", name, s)
	}
	return nil
}
