// Package config loads client.Config from environment variables and an
// optional config file, via spf13/viper the way nabbar-golib's viper
// wrapper unmarshals a keyed section into a plain struct
// (viper.UnmarshalKey).
package config

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/mickamy/voltgo/client"
	"github.com/mickamy/voltgo/protocol"
)

// raw mirrors client.Config's scalar fields in a viper-friendly shape;
// TLSConfig, Listener, Logger and Registerer are not settable through
// config files or env vars and are layered on by the caller after Load
// returns.
type raw struct {
	Username               string        `mapstructure:"username"`
	Password               string        `mapstructure:"password"`
	HashScheme             string        `mapstructure:"hash_scheme"`
	MaxOutstandingRequests int           `mapstructure:"max_outstanding_requests"`
	EnableAbandon          bool          `mapstructure:"enable_abandon"`
	EnableQueryTimeout     bool          `mapstructure:"enable_query_timeout"`
	QueryTimeout           time.Duration `mapstructure:"query_timeout"`
	TimeoutScanInterval    time.Duration `mapstructure:"timeout_scan_interval"`
	UseSSL                 bool          `mapstructure:"use_ssl"`
	AutoReconnect          bool          `mapstructure:"auto_reconnect"`
	BackpressureThreshold  int           `mapstructure:"backpressure_threshold"`
	LogLevel               string        `mapstructure:"log_level"`
}

// Load reads voltgo's client options from env vars prefixed VOLTGO_ and,
// if filePath is non-empty, from that config file, then returns the
// resulting client.Config. filePath's extension selects the format
// (yaml, toml, json, ...), per viper's SetConfigFile convention.
func Load(filePath string) (client.Config, error) {
	v := viper.New()
	v.SetEnvPrefix("voltgo")
	v.AutomaticEnv()

	v.SetDefault("hash_scheme", "sha256")
	v.SetDefault("max_outstanding_requests", client.DefaultMaxOutstanding)
	v.SetDefault("timeout_scan_interval", time.Second)
	v.SetDefault("log_level", "info")
	// AutomaticEnv only reaches keys viper already knows about, so the
	// keys without a default are bound to their VOLTGO_* variable here.
	for _, key := range []string{"username", "password", "enable_abandon", "enable_query_timeout", "query_timeout", "use_ssl", "auto_reconnect", "backpressure_threshold"} {
		if err := v.BindEnv(key); err != nil {
			return client.Config{}, fmt.Errorf("config: bind env %s: %w", key, err)
		}
	}

	if filePath != "" {
		v.SetConfigFile(filePath)
		if err := v.ReadInConfig(); err != nil {
			return client.Config{}, fmt.Errorf("config: read %s: %w", filePath, err)
		}
	}

	var r raw
	if err := v.Unmarshal(&r); err != nil {
		return client.Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}

	scheme, err := parseHashScheme(r.HashScheme)
	if err != nil {
		return client.Config{}, err
	}

	cfg := client.DefaultConfig()
	cfg.Username = r.Username
	cfg.Password = r.Password
	cfg.HashScheme = scheme
	cfg.MaxOutstandingRequests = r.MaxOutstandingRequests
	cfg.EnableAbandon = r.EnableAbandon
	cfg.EnableQueryTimeout = r.EnableQueryTimeout
	cfg.QueryTimeout = r.QueryTimeout
	cfg.TimeoutScanInterval = r.TimeoutScanInterval
	cfg.UseSSL = r.UseSSL
	cfg.AutoReconnect = r.AutoReconnect
	cfg.BackpressureThreshold = r.BackpressureThreshold
	cfg.LogLevel = r.LogLevel
	if r.UseSSL {
		cfg.TLSConfig = &tls.Config{}
	}
	return cfg, nil
}

func parseHashScheme(s string) (protocol.HashScheme, error) {
	switch s {
	case "", "sha256":
		return protocol.HashSHA256, nil
	case "sha1":
		return protocol.HashSHA1, nil
	default:
		return 0, fmt.Errorf("config: unknown hash_scheme %q", s)
	}
}
