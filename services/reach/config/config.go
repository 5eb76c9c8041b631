// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads reach configuration with priority
// env > file > defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianReach/pkg/logging"
	"github.com/AleutianAI/AleutianReach/services/reach/algorithms/catalog"
	"github.com/AleutianAI/AleutianReach/services/reach/algorithms/linear"
	"github.com/AleutianAI/AleutianReach/services/reach/algorithms/pb"
	"github.com/AleutianAI/AleutianReach/services/reach/algorithms/search"
	"github.com/AleutianAI/AleutianReach/services/reach/telemetry"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the top-level configuration.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after creation.
type Config struct {
	Solver    SolverConfig     `json:"solver" yaml:"solver"`
	Driver    DriverConfig     `json:"driver" yaml:"driver"`
	Server    ServerConfig     `json:"server" yaml:"server"`
	Telemetry telemetry.Config `json:"telemetry" yaml:"telemetry"`
	Logging   LoggingConfig    `json:"logging" yaml:"logging"`
}

// SolverConfig holds per-family algorithm limits.
type SolverConfig struct {
	BFS    BFSConfig    `json:"bfs" yaml:"bfs"`
	Linear LinearConfig `json:"linear" yaml:"linear"`
	PB     PBConfig     `json:"pseudo_boolean" yaml:"pseudo_boolean"`
}

// BFSConfig limits the breadth-first solvers.
type BFSConfig struct {
	MaxStates     int           `json:"max_states" yaml:"max_states" validate:"gte=0"`
	CheckInterval int           `json:"check_interval" yaml:"check_interval" validate:"gte=1"`
	Timeout       time.Duration `json:"timeout" yaml:"timeout" validate:"gte=0"`
}

// LinearConfig limits the elimination solvers.
type LinearConfig struct {
	MaxFreeVariables int           `json:"max_free_variables" yaml:"max_free_variables" validate:"gte=0,lte=62"`
	MaxAssignments   int           `json:"max_assignments" yaml:"max_assignments" validate:"gte=1"`
	Timeout          time.Duration `json:"timeout" yaml:"timeout" validate:"gte=0"`
}

// PBConfig limits the pseudo-boolean solver.
type PBConfig struct {
	MaxVariables  int           `json:"max_variables" yaml:"max_variables" validate:"gte=1"`
	Timeout       time.Duration `json:"timeout" yaml:"timeout" validate:"gte=0"`
	MaxConcurrent int           `json:"max_concurrent" yaml:"max_concurrent" validate:"gte=0"`
}

// DriverConfig selects the algorithm per variant and the fan-out.
type DriverConfig struct {
	LightsStrategy  string `json:"lights_strategy" yaml:"lights_strategy" validate:"oneof=bitmask_bfs gf2_elimination pseudo_boolean"`
	JoltageStrategy string `json:"joltage_strategy" yaml:"joltage_strategy" validate:"oneof=packed_bfs vector_bfs integer_elimination pseudo_boolean"`
	JoltageFallback string `json:"joltage_fallback" yaml:"joltage_fallback" validate:"omitempty,oneof=packed_bfs vector_bfs integer_elimination pseudo_boolean"`
	Parallelism     int    `json:"parallelism" yaml:"parallelism" validate:"gte=1,lte=256"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port         int           `json:"port" yaml:"port" validate:"gte=1,lte=65535"`
	MaxBodyBytes int64         `json:"max_body_bytes" yaml:"max_body_bytes" validate:"gte=1"`
	SolveTimeout time.Duration `json:"solve_timeout" yaml:"solve_timeout" validate:"gt=0"`
	RateLimit    float64       `json:"rate_limit" yaml:"rate_limit" validate:"gte=0"`
	RateBurst    int           `json:"rate_burst" yaml:"rate_burst" validate:"gte=0"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `json:"format" yaml:"format" validate:"oneof=auto text json"`
	LogDir string `json:"log_dir" yaml:"log_dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	bfs := search.DefaultBFSConfig()
	lin := linear.DefaultConfig()
	pbc := pb.DefaultConfig()
	return Config{
		Solver: SolverConfig{
			BFS: BFSConfig{
				MaxStates:     bfs.MaxStates,
				CheckInterval: bfs.CheckInterval,
				Timeout:       bfs.Timeout,
			},
			Linear: LinearConfig{
				MaxFreeVariables: lin.MaxFreeVariables,
				MaxAssignments:   lin.MaxAssignments,
				Timeout:          lin.Timeout,
			},
			PB: PBConfig{
				MaxVariables:  pbc.MaxVariables,
				Timeout:       pbc.Timeout,
				MaxConcurrent: pbc.MaxConcurrent,
			},
		},
		Driver: DriverConfig{
			LightsStrategy:  catalog.DefaultLightsStrategy,
			JoltageStrategy: catalog.DefaultJoltageStrategy,
			JoltageFallback: catalog.DefaultJoltageFallback,
			Parallelism:     1,
		},
		Server: ServerConfig{
			Port:         12230,
			MaxBodyBytes: 1 << 20,
			SolveTimeout: time.Minute,
			RateBurst:    8,
		},
		Telemetry: telemetry.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads configuration with priority: env > file > defaults.
//
// Inputs:
//   - path: YAML or JSON file. Empty or missing means defaults.
//
// Outputs:
//   - Config: Merged configuration.
//   - error: Non-nil if the file is unreadable or the result is invalid.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	loadEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	// JSON documents are valid YAML, so one decoder covers both.
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if len(root.Content) == 0 {
		return nil
	}
	doc := root.Content[0]
	if doc.Kind == yaml.ScalarNode && doc.ShortTag() == "!!null" {
		return nil
	}
	if doc.Kind != yaml.MappingNode {
		return fmt.Errorf("parse config: %w: document root must be a mapping", ErrInvalidConfig)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func loadEnv(cfg *Config) {
	envInt("REACH_MAX_STATES", &cfg.Solver.BFS.MaxStates)
	envInt("REACH_MAX_FREE_VARIABLES", &cfg.Solver.Linear.MaxFreeVariables)
	envInt("REACH_MAX_ASSIGNMENTS", &cfg.Solver.Linear.MaxAssignments)
	envInt("REACH_PB_MAX_VARIABLES", &cfg.Solver.PB.MaxVariables)
	if v := os.Getenv("REACH_SOLVE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Solver.BFS.Timeout = d
			cfg.Solver.Linear.Timeout = d
			cfg.Solver.PB.Timeout = d
		}
	}

	envString("REACH_LIGHTS_STRATEGY", &cfg.Driver.LightsStrategy)
	envString("REACH_JOLTAGE_STRATEGY", &cfg.Driver.JoltageStrategy)
	envString("REACH_JOLTAGE_FALLBACK", &cfg.Driver.JoltageFallback)
	envInt("REACH_PARALLELISM", &cfg.Driver.Parallelism)

	envInt("REACH_PORT", &cfg.Server.Port)
	if v := os.Getenv("REACH_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Server.RateLimit = f
		}
	}

	envString("REACH_TRACE_EXPORTER", &cfg.Telemetry.TraceExporter)
	envString("REACH_METRIC_EXPORTER", &cfg.Telemetry.MetricExporter)

	envString("REACH_LOG_LEVEL", &cfg.Logging.Level)
	envString("REACH_LOG_FORMAT", &cfg.Logging.Format)
	envString("REACH_LOG_DIR", &cfg.Logging.LogDir)
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and cross-field rules.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q (value %v)", ErrInvalidConfig, fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Solver.BFS.MaxStates > 0 && c.Solver.BFS.MaxStates < c.Solver.BFS.CheckInterval {
		return fmt.Errorf("%w: max_states %d below check_interval %d", ErrInvalidConfig, c.Solver.BFS.MaxStates, c.Solver.BFS.CheckInterval)
	}
	return nil
}

// CatalogOptions converts the solver section for catalog.New.
func (c Config) CatalogOptions() catalog.Options {
	return catalog.Options{
		Search: &search.BFSConfig{
			MaxStates:     c.Solver.BFS.MaxStates,
			Timeout:       c.Solver.BFS.Timeout,
			CheckInterval: c.Solver.BFS.CheckInterval,
		},
		Linear: &linear.Config{
			MaxFreeVariables: c.Solver.Linear.MaxFreeVariables,
			MaxAssignments:   c.Solver.Linear.MaxAssignments,
			Timeout:          c.Solver.Linear.Timeout,
		},
		PB: &pb.Config{
			MaxVariables:  c.Solver.PB.MaxVariables,
			Timeout:       c.Solver.PB.Timeout,
			MaxConcurrent: c.Solver.PB.MaxConcurrent,
		},
	}
}

// LoggerConfig converts the logging section for logging.New.
func (c Config) LoggerConfig(service string) logging.Config {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	return logging.Config{
		Level:   level,
		Format:  logging.Format(c.Logging.Format),
		LogDir:  c.Logging.LogDir,
		Service: service,
	}
}
