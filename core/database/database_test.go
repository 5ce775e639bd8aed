package database

import "testing"

func TestNormalizeDefaults(t *testing.T) {
	cfg := Config{Driver: "PostgreSQL", Host: "db", Name: "raid"}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Driver != DriverPostgres || cfg.Port != "5432" || cfg.SSLMode != "disable" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.MigrationsDir != "migrations" || cfg.MaxConnections != 10 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestNormalizeSQLite(t *testing.T) {
	cfg := Config{Driver: "sqlite3", MaxConnections: 8}
	if err := cfg.Normalize(); err == nil {
		t.Fatalf("expected error without path")
	}
	cfg.Path = "raid.db"
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.MaxConnections != 1 || cfg.DSN() != "raid.db" {
		t.Fatalf("unexpected sqlite config: %+v", cfg)
	}
}

func TestNormalizeRejectsUnknownDriver(t *testing.T) {
	cfg := Config{Driver: "mysql"}
	if err := cfg.Normalize(); err == nil {
		t.Fatalf("expected error for mysql")
	}
}

func TestConnectSQLiteMemory(t *testing.T) {
	db, err := Connect(Config{Driver: DriverSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()
	var one int
	if err := db.Get(&one, db.Rebind("SELECT ?"), 1); err != nil {
		t.Fatalf("query: %v", err)
	}
	if one != 1 {
		t.Fatalf("got %d", one)
	}
}

func TestCountApplied(t *testing.T) {
	files := []string{"000001_init.up.sql", "000002_locks.up.sql", "000003_goals.up.sql"}
	if got := countApplied(files, 1, 3); got != 2 {
		t.Fatalf("countApplied = %d, want 2", got)
	}
	if got := countApplied(files, 3, 3); got != 0 {
		t.Fatalf("countApplied = %d, want 0", got)
	}
}
