// Package config loads recorder settings from an optional TOML file with
// MCPR_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Version is the tool version reported in replay metadata.
var Version = "0.4.0"

// Config holds the settings shared by the mcpr subcommands.
type Config struct {
	ReplayFolder string `toml:"replay_folder"` // MCPR_REPLAY_FOLDER (default "replays")
	TempDir      string `toml:"temp_dir"`      // MCPR_TEMP_DIR (default os.TempDir())
	GameVersion  string `toml:"game_version"`  // MCPR_GAME_VERSION
	Generator    string `toml:"generator"`     // MCPR_GENERATOR (default "mc-replay-go")
	WorldName    string `toml:"world_name"`    // MCPR_WORLD_NAME
	Singleplayer bool   `toml:"singleplayer"`  // MCPR_SINGLEPLAYER
	Protocol     int    `toml:"protocol"`      // MCPR_PROTOCOL (default 754)

	// Post-save sinks; each is enabled when its address is set.
	NATSURL     string `toml:"nats_url"`     // MCPR_NATS_URL
	NATSSubject string `toml:"nats_subject"` // MCPR_NATS_SUBJECT (default "mcpr.replay.saved")
	S3Bucket    string `toml:"s3_bucket"`    // MCPR_S3_BUCKET
	S3Prefix    string `toml:"s3_prefix"`    // MCPR_S3_PREFIX (default "replays/")
	S3Region    string `toml:"s3_region"`    // MCPR_S3_REGION (default "us-east-1")
	S3Endpoint  string `toml:"s3_endpoint"`  // MCPR_S3_ENDPOINT (custom endpoint for MinIO)
}

func defaults() Config {
	return Config{
		ReplayFolder: "replays",
		Generator:    "mc-replay-go",
		Protocol:     754,
		NATSSubject:  "mcpr.replay.saved",
		S3Prefix:     "replays/",
		S3Region:     "us-east-1",
	}
}

// Load reads path (skipped when empty or missing) on top of the defaults and
// then applies environment overrides.
func Load(path string) (*Config, error) {
	c := defaults()
	if path != "" {
		if _, err := toml.DecodeFile(path, &c); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	c.ReplayFolder = envOrDefault("MCPR_REPLAY_FOLDER", c.ReplayFolder)
	c.TempDir = envOrDefault("MCPR_TEMP_DIR", c.TempDir)
	c.GameVersion = envOrDefault("MCPR_GAME_VERSION", c.GameVersion)
	c.Generator = envOrDefault("MCPR_GENERATOR", c.Generator)
	c.WorldName = envOrDefault("MCPR_WORLD_NAME", c.WorldName)
	c.NATSURL = envOrDefault("MCPR_NATS_URL", c.NATSURL)
	c.NATSSubject = envOrDefault("MCPR_NATS_SUBJECT", c.NATSSubject)
	c.S3Bucket = envOrDefault("MCPR_S3_BUCKET", c.S3Bucket)
	c.S3Prefix = envOrDefault("MCPR_S3_PREFIX", c.S3Prefix)
	c.S3Region = envOrDefault("MCPR_S3_REGION", c.S3Region)
	c.S3Endpoint = envOrDefault("MCPR_S3_ENDPOINT", c.S3Endpoint)

	if v := os.Getenv("MCPR_SINGLEPLAYER"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("MCPR_SINGLEPLAYER: %w", err)
		}
		c.Singleplayer = b
	}
	if v := os.Getenv("MCPR_PROTOCOL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("MCPR_PROTOCOL: %w", err)
		}
		c.Protocol = n
	}

	if c.ReplayFolder == "" {
		return nil, fmt.Errorf("replay_folder must not be empty")
	}
	return &c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
