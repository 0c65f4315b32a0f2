package postgres

import (
	"strings"
	"testing"
)

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"postgres://u:p@db:5432/gotube?sslmode=disable", "pgx5://u:p@db:5432/gotube?sslmode=disable"},
		{"postgresql://u@db/gotube", "pgx5://u@db/gotube"},
		{"pgx5://already", "pgx5://already"},
	}

	for _, tt := range tests {
		if got := migrateURL(tt.dsn); got != tt.want {
			t.Errorf("migrateURL(%q) = %q, want %q", tt.dsn, got, tt.want)
		}
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("ReadDir() unexpected error = %v", err)
	}

	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	if ups == 0 || ups != downs {
		t.Errorf("migrations: %d up, %d down", ups, downs)
	}
}
