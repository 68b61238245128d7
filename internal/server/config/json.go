package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/sampleapp/internal/flagx"
	"github.com/dmitrijs2005/sampleapp/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept strings such
// as "2h" or integer nanoseconds. Absent fields keep their previous values.
type JsonConfig struct {
	EndpointAddrGRPC           *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                *string         `json:"database_dsn"`
	SecretKey                  *string         `json:"secret_key"`
	SessionValidityDuration    *timex.Duration `json:"session_validity_duration"`
	ResetTokenValidityDuration *timex.Duration `json:"reset_token_validity_duration"`
	BcryptCost                 *int            `json:"bcrypt_cost"`
	BaseURL                    *string         `json:"base_url"`
	RedisAddr                  *string         `json:"redis_addr"`
	ThrottleLimit              *int            `json:"throttle_limit"`
	ThrottleWindow             *timex.Duration `json:"throttle_window"`
	MetricsAddr                *string         `json:"metrics_addr"`
	PageSize                   *int            `json:"page_size"`
}

// parseJSON overlays the JSON file named by -c/-config onto config. Without
// the flag nothing is loaded.
func parseJSON(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.BaseURL, c.BaseURL)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.MetricsAddr, c.MetricsAddr)
	setInt(&config.BcryptCost, c.BcryptCost)
	setInt(&config.ThrottleLimit, c.ThrottleLimit)
	setInt(&config.PageSize, c.PageSize)
	if c.SessionValidityDuration != nil {
		config.SessionValidityDuration = c.SessionValidityDuration.Duration
	}
	if c.ResetTokenValidityDuration != nil {
		config.ResetTokenValidityDuration = c.ResetTokenValidityDuration.Duration
	}
	if c.ThrottleWindow != nil {
		config.ThrottleWindow = c.ThrottleWindow.Duration
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
