package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error = %v", err)
	}

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"Server.Port", cfg.Server.Port, 8080},
		{"Server.MaxUploadBytes", cfg.Server.MaxUploadBytes, int64(1 << 30)},
		{"Storage.Driver", cfg.Storage.Driver, "minio"},
		{"Storage.Bucket", cfg.Storage.Bucket, "gotube"},
		{"Encoder.Timeout", cfg.Encoder.Timeout, 2 * time.Minute},
		{"Encoder.FFprobePath", cfg.Encoder.FFprobePath, "ffprobe"},
		{"Redis.CacheTTL", cfg.Redis.CacheTTL, 5 * time.Minute},
		{"Worker.MaxRetries", cfg.Worker.MaxRetries, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %v, expected %v", tt.got, tt.expected)
			}
		})
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Error("expected error when JWT_SECRET is empty")
	}
}

func TestLoad_UnsupportedDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORAGE_DRIVER", "gcs")

	if _, err := Load(); err == nil {
		t.Error("expected error for unsupported storage driver")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("built from parts", func(t *testing.T) {
		c := DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 5432, DBName: "gotube", SSLMode: "disable"}
		want := "postgres://u:p@db:5432/gotube?sslmode=disable"
		if got := c.DSN(); got != want {
			t.Errorf("DSN() = %q, want %q", got, want)
		}
	})

	t.Run("explicit URL wins", func(t *testing.T) {
		c := DatabaseConfig{URL: "postgres://x@y/z", Host: "db"}
		if got := c.DSN(); got != "postgres://x@y/z" {
			t.Errorf("DSN() = %q", got)
		}
	})
}

func TestLoad_BlankSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "   ")

	if _, err := Load(); err == nil {
		t.Error("expected error when JWT_SECRET is blank")
	}
}
