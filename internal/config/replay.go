package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical replay defaults file.
const DefaultConfigPath = "config/replay.defaults.json"

// Defaults used when a field is absent from the config file.
const (
	DefaultDelay         = 50 * time.Millisecond
	DefaultPositionScale = 1.0
	DefaultBlendFactor   = 0.5
	DefaultListen        = ":8080"
	DefaultGRPCListen    = ":50051"
	DefaultDBPath        = "pose_replay.db"
)

// ReplayConfig is the server configuration. Every field is optional; the
// Get* methods return defaults for fields that are unset so partial files
// are safe.
type ReplayConfig struct {
	// Playback
	Delay         *string  `json:"delay,omitempty"` // duration string like "50ms"
	PositionScale *float64 `json:"position_scale,omitempty"`
	BlendFactor   *float64 `json:"blend_factor,omitempty"`
	MinVisibility *float64 `json:"min_visibility,omitempty"`
	Autoplay      *bool    `json:"autoplay,omitempty"`

	// Inputs
	JointMapPath *string `json:"joint_map_path,omitempty"`
	SequencePath *string `json:"sequence_path,omitempty"`

	// Serving
	Listen     *string `json:"listen,omitempty"`
	GRPCListen *string `json:"grpc_listen,omitempty"`
	DBPath     *string `json:"db_path,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }

// EmptyReplayConfig returns a ReplayConfig with every field unset.
func EmptyReplayConfig() *ReplayConfig {
	return &ReplayConfig{}
}

// DefaultReplayConfig returns a ReplayConfig with every field set to its default.
func DefaultReplayConfig() *ReplayConfig {
	return &ReplayConfig{
		Delay:         ptrString(DefaultDelay.String()),
		PositionScale: ptrFloat64(DefaultPositionScale),
		BlendFactor:   ptrFloat64(DefaultBlendFactor),
		MinVisibility: ptrFloat64(0),
		Autoplay:      ptrBool(false),
		JointMapPath:  ptrString(""),
		SequencePath:  ptrString(""),
		Listen:        ptrString(DefaultListen),
		GRPCListen:    ptrString(DefaultGRPCListen),
		DBPath:        ptrString(DefaultDBPath),
	}
}

// LoadReplayConfig loads a ReplayConfig from a JSON file. The file must have
// a .json extension and be at most 1MB.
func LoadReplayConfig(path string) (*ReplayConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyReplayConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that set fields hold usable values.
func (c *ReplayConfig) Validate() error {
	if c.Delay != nil && *c.Delay != "" {
		d, err := time.ParseDuration(*c.Delay)
		if err != nil {
			return fmt.Errorf("invalid delay '%s': %w", *c.Delay, err)
		}
		if d < 0 {
			return fmt.Errorf("delay must be non-negative, got %s", d)
		}
	}

	if c.PositionScale != nil {
		s := *c.PositionScale
		if s == 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return fmt.Errorf("position_scale must be a non-zero finite number, got %f", s)
		}
	}

	if c.BlendFactor != nil {
		if *c.BlendFactor < 0 || *c.BlendFactor > 1 || math.IsNaN(*c.BlendFactor) {
			return fmt.Errorf("blend_factor must be between 0 and 1, got %f", *c.BlendFactor)
		}
	}

	if c.MinVisibility != nil {
		if *c.MinVisibility < 0 || *c.MinVisibility > 1 || math.IsNaN(*c.MinVisibility) {
			return fmt.Errorf("min_visibility must be between 0 and 1, got %f", *c.MinVisibility)
		}
	}

	return nil
}

// GetDelay parses and returns Delay as a time.Duration.
func (c *ReplayConfig) GetDelay() time.Duration {
	if c.Delay == nil || *c.Delay == "" {
		return DefaultDelay
	}
	d, err := time.ParseDuration(*c.Delay)
	if err != nil || d < 0 {
		return DefaultDelay
	}
	return d
}

// GetPositionScale returns the position_scale value or the default.
func (c *ReplayConfig) GetPositionScale() float64 {
	if c.PositionScale == nil {
		return DefaultPositionScale
	}
	return *c.PositionScale
}

// GetBlendFactor returns the blend_factor value or the default.
func (c *ReplayConfig) GetBlendFactor() float64 {
	if c.BlendFactor == nil {
		return DefaultBlendFactor
	}
	return *c.BlendFactor
}

// GetMinVisibility returns the min_visibility value or 0 (filter disabled).
func (c *ReplayConfig) GetMinVisibility() float64 {
	if c.MinVisibility == nil {
		return 0
	}
	return *c.MinVisibility
}

// GetAutoplay returns the autoplay value or the default.
func (c *ReplayConfig) GetAutoplay() bool {
	if c.Autoplay == nil {
		return false
	}
	return *c.Autoplay
}

// GetJointMapPath returns the joint map path, or "" for the built-in table.
func (c *ReplayConfig) GetJointMapPath() string {
	if c.JointMapPath == nil {
		return ""
	}
	return *c.JointMapPath
}

// GetSequencePath returns the sequence file loaded at startup, or "".
func (c *ReplayConfig) GetSequencePath() string {
	if c.SequencePath == nil {
		return ""
	}
	return *c.SequencePath
}

// GetListen returns the HTTP listen address.
func (c *ReplayConfig) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return DefaultListen
	}
	return *c.Listen
}

// GetGRPCListen returns the gRPC listen address. An explicit empty string
// disables the gRPC server.
func (c *ReplayConfig) GetGRPCListen() string {
	if c.GRPCListen == nil {
		return DefaultGRPCListen
	}
	return *c.GRPCListen
}

// GetDBPath returns the sqlite database path.
func (c *ReplayConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return DefaultDBPath
	}
	return *c.DBPath
}
