package config

import (
	"os"
	"path/filepath"
	"testing"
)

var allEnvVars = []string{
	"MCPR_REPLAY_FOLDER", "MCPR_TEMP_DIR", "MCPR_GAME_VERSION", "MCPR_GENERATOR",
	"MCPR_WORLD_NAME", "MCPR_SINGLEPLAYER", "MCPR_PROTOCOL", "MCPR_NATS_URL",
	"MCPR_NATS_SUBJECT", "MCPR_S3_BUCKET", "MCPR_S3_PREFIX", "MCPR_S3_REGION",
	"MCPR_S3_ENDPOINT",
}

func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvVars {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mcpr.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearAllEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ReplayFolder != "replays" {
		t.Errorf("ReplayFolder = %q, want %q", cfg.ReplayFolder, "replays")
	}
	if cfg.Protocol != 754 {
		t.Errorf("Protocol = %d, want 754", cfg.Protocol)
	}
	if cfg.NATSSubject != "mcpr.replay.saved" {
		t.Errorf("NATSSubject = %q", cfg.NATSSubject)
	}
	if cfg.S3Region != "us-east-1" {
		t.Errorf("S3Region = %q", cfg.S3Region)
	}
	if cfg.NATSURL != "" || cfg.S3Bucket != "" {
		t.Errorf("sinks should be disabled by default, got nats=%q s3=%q", cfg.NATSURL, cfg.S3Bucket)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearAllEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Generator != "mc-replay-go" {
		t.Errorf("Generator = %q", cfg.Generator)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	for _, tc := range []struct {
		name             string
		file             string
		env              map[string]string
		wantErr          bool
		wantFolder       string
		wantWorld        string
		wantSingleplayer bool
		wantProtocol     int
		wantBucket       string
	}{
		{
			name: "FileOnly",
			file: `
replay_folder = "/srv/replays"
world_name = "Survival"
singleplayer = true
protocol = 47
s3_bucket = "archive"
`,
			wantFolder:       "/srv/replays",
			wantWorld:        "Survival",
			wantSingleplayer: true,
			wantProtocol:     47,
			wantBucket:       "archive",
		},
		{
			name: "EnvOverridesFile",
			file: `
replay_folder = "/srv/replays"
protocol = 47
`,
			env: map[string]string{
				"MCPR_REPLAY_FOLDER": "/tmp/out",
				"MCPR_PROTOCOL":      "340",
				"MCPR_SINGLEPLAYER":  "true",
				"MCPR_WORLD_NAME":    "Creative",
			},
			wantFolder:       "/tmp/out",
			wantWorld:        "Creative",
			wantSingleplayer: true,
			wantProtocol:     340,
		},
		{
			name:    "BadProtocol",
			env:     map[string]string{"MCPR_PROTOCOL": "abc"},
			wantErr: true,
		},
		{
			name:    "BadSingleplayer",
			env:     map[string]string{"MCPR_SINGLEPLAYER": "maybe"},
			wantErr: true,
		},
		{
			name:    "MalformedFile",
			file:    `replay_folder = `,
			wantErr: true,
		},
		{
			name:    "EmptyFolder",
			file:    `replay_folder = ""`,
			wantErr: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			path := ""
			if tc.file != "" {
				path = writeConfig(t, tc.file)
			}

			cfg, err := Load(path)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.ReplayFolder != tc.wantFolder {
				t.Errorf("ReplayFolder = %q, want %q", cfg.ReplayFolder, tc.wantFolder)
			}
			if cfg.WorldName != tc.wantWorld {
				t.Errorf("WorldName = %q, want %q", cfg.WorldName, tc.wantWorld)
			}
			if cfg.Singleplayer != tc.wantSingleplayer {
				t.Errorf("Singleplayer = %v, want %v", cfg.Singleplayer, tc.wantSingleplayer)
			}
			if cfg.Protocol != tc.wantProtocol {
				t.Errorf("Protocol = %d, want %d", cfg.Protocol, tc.wantProtocol)
			}
			if cfg.S3Bucket != tc.wantBucket {
				t.Errorf("S3Bucket = %q, want %q", cfg.S3Bucket, tc.wantBucket)
			}
		})
	}
}
