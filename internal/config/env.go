package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "POSE_REPLAY_"

// LoadEnvFile loads variables from the given .env files (".env" when none
// are given) without overriding variables already set. Missing files are
// not an error.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// GetEnv returns the value of key, or fallback if it is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// ApplyEnv overrides fields of c from POSE_REPLAY_* variables, e.g.
// POSE_REPLAY_DELAY=100ms or POSE_REPLAY_AUTOPLAY=true. The result is
// validated.
func (c *ReplayConfig) ApplyEnv() error {
	strs := map[string]**string{
		"DELAY":          &c.Delay,
		"JOINT_MAP_PATH": &c.JointMapPath,
		"SEQUENCE_PATH":  &c.SequencePath,
		"LISTEN":         &c.Listen,
		"GRPC_LISTEN":    &c.GRPCListen,
		"DB_PATH":        &c.DBPath,
	}
	for name, field := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*field = ptrString(v)
		}
	}

	floats := map[string]**float64{
		"POSITION_SCALE": &c.PositionScale,
		"BLEND_FACTOR":   &c.BlendFactor,
		"MIN_VISIBILITY": &c.MinVisibility,
	}
	for name, field := range floats {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok || v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s%s %q: %w", EnvPrefix, name, v, err)
		}
		*field = ptrFloat64(f)
	}

	if v := os.Getenv(EnvPrefix + "AUTOPLAY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sAUTOPLAY %q: %w", EnvPrefix, v, err)
		}
		c.Autoplay = ptrBool(b)
	}

	return c.Validate()
}
