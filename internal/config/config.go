// Copyright 2025 Arion Yau
//
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

// Package config loads the YAML configuration file used by the broker
// command, covering the broker and its admin API.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document.
type Config struct {
	Broker BrokerConfig `yaml:"broker"`
	Admin  AdminConfig  `yaml:"admin"`
}

// BrokerConfig controls the routing engine's ROUTER socket and liveness
// sweep timing.
type BrokerConfig struct {
	Bind              string        `yaml:"bind"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	HeartbeatLiveness int           `yaml:"heartbeat_liveness"`
	LogLevel          string        `yaml:"log_level"`
}

// AdminConfig controls the read-only introspection HTTP API.
type AdminConfig struct {
	Bind           string `yaml:"bind"`
	JWTSecret      string `yaml:"jwt_secret"`
	AdminUser      string `yaml:"admin_user"`
	AdminPassHash  string `yaml:"admin_pass_hash"`
	StatsDBPath    string `yaml:"stats_db_path"`
	SnapshotPeriod time.Duration `yaml:"snapshot_period"`
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := NewDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks required fields. It fills in nothing; defaults come
// from NewDefaultConfig before the YAML is merged over them.
func (c *Config) Validate() error {
	if c.Broker.Bind == "" {
		return fmt.Errorf("broker.bind is required")
	}
	if c.Broker.HeartbeatInterval <= 0 {
		return fmt.Errorf("broker.heartbeat_interval must be positive")
	}
	if c.Broker.HeartbeatLiveness <= 0 {
		return fmt.Errorf("broker.heartbeat_liveness must be positive")
	}
	if c.Admin.Bind != "" && c.Admin.JWTSecret == "" {
		return fmt.Errorf("admin.jwt_secret is required when admin.bind is set")
	}
	return nil
}

// Save writes the configuration back out as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// NewDefaultConfig returns a configuration with sane defaults for local
// development: a wildcard bind, RFC-7-recommended heartbeat timing, and
// the admin API disabled (empty Bind) until explicitly configured.
func NewDefaultConfig() *Config {
	return &Config{
		Broker: BrokerConfig{
			Bind:              "tcp://*:5555",
			HeartbeatInterval: 1000 * time.Millisecond,
			HeartbeatLiveness: 5,
			LogLevel:          "info",
		},
		Admin: AdminConfig{
			StatsDBPath:    "majordomo-stats.db",
			SnapshotPeriod: 10 * time.Second,
		},
	}
}
