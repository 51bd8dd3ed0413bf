// Copyright 2026 fanjia1024
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

package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration tree.
type Config struct {
	API             APIConfig             `mapstructure:"api"`
	State           StateConfig           `mapstructure:"state"`
	EventStore      EventStoreConfig      `mapstructure:"event_store"`
	CheckpointStore CheckpointStoreConfig `mapstructure:"checkpoint_store"`
	Approval        ApprovalConfig        `mapstructure:"approval"`
	ScopeDefaults   ScopeDefaultsConfig   `mapstructure:"scope_defaults"`
	Redaction       RedactionConfig       `mapstructure:"redaction"`
	RateLimits      RateLimitsConfig      `mapstructure:"rate_limits"`
	Memory          MemoryConfig          `mapstructure:"memory"`
	Log             LogConfig             `mapstructure:"log"`
	Metrics         MetricsConfig         `mapstructure:"metrics"`
	Tracing         TracingConfig         `mapstructure:"tracing"`
}

// StateConfig locates the per-workspace state directory holding the
// active-task pointer (and, with the file event-store backend, the
// events.jsonl log).
type StateConfig struct {
	Dir string `mapstructure:"dir"`
}

// EventStoreConfig selects and configures the event log backend.
type EventStoreConfig struct {
	Type string `mapstructure:"type"` // memory | file | postgres
	Path string `mapstructure:"path"` // events.jsonl location when type=file; defaults under state.dir
	DSN  string `mapstructure:"dsn"`  // required when type=postgres
}

// CheckpointStoreConfig selects and configures the checkpoint backend.
type CheckpointStoreConfig struct {
	Type string `mapstructure:"type"` // memory | postgres
	DSN  string `mapstructure:"dsn"`  // required when type=postgres
}

// ApprovalConfig configures the approval rendezvous manager.
type ApprovalConfig struct {
	DefaultTimeout string `mapstructure:"default_timeout"` // e.g. "15m"; empty defaults to "15m". Not read by approval.Manager: approvals do not expire
}

// ScopeDefaultsConfig configures the budgets a fresh scope contract starts
// with, before any expansion is granted.
type ScopeDefaultsConfig struct {
	MaxFiles      int `mapstructure:"max_files"`
	MaxLines      int `mapstructure:"max_lines"`
	MaxIterations int `mapstructure:"max_iterations"`
	MaxToolCalls  int `mapstructure:"max_tool_calls"`
	MaxTimeMs     int `mapstructure:"max_time_ms"`
}

// RedactionConfig configures the field-masking engine applied to a tool's
// inputs before they're recorded on a tool_start event. Mirrors
// redaction.PolicyConfig so this package doesn't import redaction.
type RedactionConfig struct {
	Enable   bool                    `mapstructure:"enable"`
	Policies []RedactionPolicyConfig `mapstructure:"policies"`
}

// RedactionPolicyConfig is the redaction policy for inputs to a single tool.
type RedactionPolicyConfig struct {
	Tool   string                 `mapstructure:"tool"`
	Fields []RedactionFieldConfig `mapstructure:"fields"`
}

// RedactionFieldConfig is one field-path mask within a policy.
type RedactionFieldConfig struct {
	Path string `mapstructure:"path"`
	Mode string `mapstructure:"mode"` // redact | hash | encrypt | remove
	Salt string `mapstructure:"salt"` // used by the hash mode only
}

// RateLimitsConfig configures token-bucket limits on tool execution.
type RateLimitsConfig struct {
	ToolCalls ToolCallRateLimitConfig `mapstructure:"tool_calls"`
}

// ToolCallRateLimitConfig is the QPS/burst pair for tool invocations.
type ToolCallRateLimitConfig struct {
	QPS   float64 `mapstructure:"qps"`
	Burst int     `mapstructure:"burst"`
}

// MemoryConfig configures the memory and solution retrieval subsystem.
type MemoryConfig struct {
	SolutionStore SolutionStoreConfig `mapstructure:"solution_store"`
	TopK          int                 `mapstructure:"top_k"`
	// RecencyDecayHours is the window a solution's recency bonus decays
	// linearly to zero over; a solution captured this many hours ago or
	// longer contributes no recency bonus to queryRelevantSolutions.
	RecencyDecayHours float64 `mapstructure:"recency_decay_hours"`
}

// SolutionStoreConfig selects the backend for captured solutions.
type SolutionStoreConfig struct {
	Type string `mapstructure:"type"` // memory | redis
	Addr string `mapstructure:"addr"`
	DB   int    `mapstructure:"db"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	Endpoint    string `mapstructure:"endpoint"`
	Insecure    bool   `mapstructure:"insecure"`
}

// APIConfig configures the HTTP ingress/egress surface.
type APIConfig struct {
	Port    int        `mapstructure:"port"`
	Host    string     `mapstructure:"host"`
	Timeout string     `mapstructure:"timeout"`
	CORS    CORSConfig `mapstructure:"cors"`
}

// CORSConfig configures cross-origin access to the API.
type CORSConfig struct {
	Enable       bool     `mapstructure:"enable"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// LoadConfig reads and parses a YAML config file, applying environment
// variable overrides (dots become underscores, e.g. API_PORT overrides
// api.port).
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(&config)
	return &config, nil
}

// applyDefaults fills in the zero-value defaults that keep a minimal
// config file usable.
func applyDefaults(c *Config) {
	if c.State.Dir == "" {
		c.State.Dir = ".agentcore"
	}
	if c.EventStore.Type == "" {
		c.EventStore.Type = "memory"
	}
	if c.EventStore.Type == "file" && c.EventStore.Path == "" {
		c.EventStore.Path = c.State.Dir + "/events.jsonl"
	}
	if c.CheckpointStore.Type == "" {
		c.CheckpointStore.Type = "memory"
	}
	if c.Approval.DefaultTimeout == "" {
		c.Approval.DefaultTimeout = "15m"
	}
	if c.ScopeDefaults.MaxFiles == 0 {
		c.ScopeDefaults.MaxFiles = 10
	}
	if c.ScopeDefaults.MaxLines == 0 {
		c.ScopeDefaults.MaxLines = 500
	}
	if c.ScopeDefaults.MaxIterations == 0 {
		c.ScopeDefaults.MaxIterations = 20
	}
	if c.ScopeDefaults.MaxToolCalls == 0 {
		c.ScopeDefaults.MaxToolCalls = 50
	}
	if c.RateLimits.ToolCalls.QPS == 0 {
		c.RateLimits.ToolCalls.QPS = 5
	}
	if c.RateLimits.ToolCalls.Burst == 0 {
		c.RateLimits.ToolCalls.Burst = 10
	}
	if c.Memory.TopK == 0 {
		c.Memory.TopK = 3
	}
	if c.Memory.RecencyDecayHours == 0 {
		c.Memory.RecencyDecayHours = 720 // 30 days
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.API.Host == "" {
		c.API.Host = "0.0.0.0"
	}
}

// Load reads the config file at path, defaulting to "configs/agentcore.yaml".
func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/agentcore.yaml"
	}
	return LoadConfig(path)
}
