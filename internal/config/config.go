// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; passwords go to the OS keychain and
// AWS credentials always come from the AWS credential chain.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"opensearchsql/cli/internal/xdg"
)

// Defaults used when no config file exists or a field is left empty.
const (
	DefaultGatewayPort      = 25333
	DefaultReadyMarker      = "Gateway Server Started"
	DefaultReadyTimeout     = 30 * time.Second
	DefaultGatewayJar       = "opensearchsql-gateway.jar"
	DefaultClusterHost      = "localhost"
	DefaultClusterPort      = 9200
	DefaultClusterProtocol  = "http"
	DefaultQueryLanguage    = "ppl"
	DefaultQueryFormat      = "table"
	DefaultLogLevel         = "info"
	DefaultVerifyTimeoutSec = 10
)

// Environment overrides applied on top of the file.
const (
	EnvGatewayPort = "OPENSEARCHSQL_GATEWAY_PORT"
	EnvGatewayJar  = "OPENSEARCHSQL_GATEWAY_JAR"
)

// Config holds non-sensitive CLI settings.
type Config struct {
	LogLevel string        `json:"log_level"`
	Gateway  GatewayConfig `json:"gateway"`
	Cluster  ClusterConfig `json:"cluster"`
	Query    QueryConfig   `json:"query"`
}

// GatewayConfig describes how the local query gateway is launched.
type GatewayConfig struct {
	Port                int      `json:"port"`
	Command             []string `json:"command,omitempty"`
	Dir                 string   `json:"dir,omitempty"`
	ReadyMarker         string   `json:"ready_marker"`
	ReadyTimeoutSeconds int      `json:"ready_timeout_seconds"`
}

// ClusterConfig holds the endpoint used when none is given on the command line.
type ClusterConfig struct {
	Host                 string `json:"host"`
	Port                 int    `json:"port"`
	Protocol             string `json:"protocol"`
	Username             string `json:"username,omitempty"`
	IgnoreSSL            bool   `json:"ignore_ssl"`
	AWSAuth              bool   `json:"aws_auth"`
	VerifyTimeoutSeconds int    `json:"verify_timeout_seconds"`
}

// QueryConfig holds query defaults.
type QueryConfig struct {
	Language string `json:"language"`
	Format   string `json:"format"`
}

// ReadyTimeout returns the gateway readiness wait as a duration.
func (g GatewayConfig) ReadyTimeout() time.Duration {
	if g.ReadyTimeoutSeconds <= 0 {
		return DefaultReadyTimeout
	}
	return time.Duration(g.ReadyTimeoutSeconds) * time.Second
}

// VerifyTimeout returns the cluster verification request timeout.
func (c ClusterConfig) VerifyTimeout() time.Duration {
	if c.VerifyTimeoutSeconds <= 0 {
		return DefaultVerifyTimeoutSec * time.Second
	}
	return time.Duration(c.VerifyTimeoutSeconds) * time.Second
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		Gateway: GatewayConfig{
			Port:                DefaultGatewayPort,
			Command:             []string{"java", "-jar", DefaultGatewayJar, "Gateway"},
			ReadyMarker:         DefaultReadyMarker,
			ReadyTimeoutSeconds: int(DefaultReadyTimeout / time.Second),
		},
		Cluster: ClusterConfig{
			Host:                 DefaultClusterHost,
			Port:                 DefaultClusterPort,
			Protocol:             DefaultClusterProtocol,
			VerifyTimeoutSeconds: DefaultVerifyTimeoutSec,
		},
		Query: QueryConfig{
			Language: DefaultQueryLanguage,
			Format:   DefaultQueryFormat,
		},
	}
}

// path returns the path to the config file.
func path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration; missing file returns defaults.
func Load() (Config, error) {
	p, err := path()
	if err != nil {
		return Default(), err
	}
	return LoadFile(p)
}

// LoadFile reads configuration from p. Fields missing from the file keep
// their defaults and environment overrides are applied last.
func LoadFile(p string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(p)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return c, err
	}
	if err == nil {
		if err := json.Unmarshal(data, &c); err != nil {
			return c, err
		}
	}
	c.fillDefaults()
	c.applyEnv()
	return c, nil
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	return SaveFile(p, c)
}

// SaveFile writes configuration to p with 0600 permissions.
func SaveFile(p string, c Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Gateway.Port == 0 {
		c.Gateway.Port = d.Gateway.Port
	}
	if len(c.Gateway.Command) == 0 {
		c.Gateway.Command = d.Gateway.Command
	}
	if c.Gateway.ReadyMarker == "" {
		c.Gateway.ReadyMarker = d.Gateway.ReadyMarker
	}
	if c.Cluster.Host == "" {
		c.Cluster.Host = d.Cluster.Host
	}
	if c.Cluster.Port == 0 {
		c.Cluster.Port = d.Cluster.Port
	}
	if c.Cluster.Protocol == "" {
		c.Cluster.Protocol = d.Cluster.Protocol
	}
	if c.Query.Language == "" {
		c.Query.Language = d.Query.Language
	}
	if c.Query.Format == "" {
		c.Query.Format = d.Query.Format
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvGatewayPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 && port < 65536 {
			c.Gateway.Port = port
		}
	}
	if jar := os.Getenv(EnvGatewayJar); jar != "" {
		c.Gateway.Command = []string{"java", "-jar", jar, "Gateway"}
	}
}
