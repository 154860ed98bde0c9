package db

import (
	"testing"

	"platecost/internal/config"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestInitializeRequiresURL(t *testing.T) {
	t.Parallel()

	db, err := Initialize(config.DatabaseConfig{URL: ""})
	if err == nil {
		t.Fatal("expected error when database URL is empty")
	}
	if db != nil {
		t.Fatal("expected returned db handle to be nil on error")
	}
}

func TestInitializeRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := Initialize(config.DatabaseConfig{URL: "mysql://x", Driver: "mysql"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestDriver(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  config.DatabaseConfig
		want string
	}{
		{"explicit driver wins", config.DatabaseConfig{URL: "postgres://x", Driver: "SQLite"}, "sqlite"},
		{"postgres url", config.DatabaseConfig{URL: "postgres://user@host/db"}, "postgres"},
		{"postgresql url", config.DatabaseConfig{URL: "postgresql://user@host/db"}, "postgres"},
		{"postgres dsn", config.DatabaseConfig{URL: "host=localhost user=app dbname=plates"}, "postgres"},
		{"file path", config.DatabaseConfig{URL: "platecost.db"}, "sqlite"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Driver(tt.cfg); got != tt.want {
				t.Fatalf("Driver(%+v) = %q, want %q", tt.cfg, got, tt.want)
			}
		})
	}
}

func TestAutoMigrateRejectsNilDatabase(t *testing.T) {
	t.Parallel()

	if err := AutoMigrate(nil); err == nil {
		t.Fatal("expected error when database handle is nil")
	}
}

func TestAutoMigrateWithSQLite(t *testing.T) {
	t.Parallel()

	sqliteDB, err := gorm.Open(sqlite.Open("file:memdb?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}

	if err := AutoMigrate(sqliteDB); err != nil {
		t.Fatalf("automigrate sqlite database: %v", err)
	}
}

func TestInitializeOpensSQLite(t *testing.T) {
	t.Parallel()

	database, err := Initialize(config.DatabaseConfig{URL: "file:initdb?mode=memory&cache=shared", MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := AutoMigrate(database); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}
}

func TestConfigurePropagatesInitializationError(t *testing.T) {
	t.Parallel()

	if _, err := Configure(config.DatabaseConfig{}); err == nil {
		t.Fatal("expected configuration error when initialize fails")
	}
}

func TestMustConfigurePanicsOnError(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic when configuration fails")
		}
	}()

	MustConfigure(config.DatabaseConfig{})
}
