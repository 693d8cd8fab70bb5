package db

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set; skipping postgres test")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	var exists bool
	err := db.QueryRow(`SELECT EXISTS (
		SELECT FROM information_schema.tables
		WHERE table_name = $1
	)`, table).Scan(&exists)
	if err != nil {
		t.Fatalf("failed to check table %s: %v", table, err)
	}
	return exists
}

func TestRunMigrations(t *testing.T) {
	db := openTestDB(t)
	cleanDatabase(t, context.Background(), db)

	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	for _, table := range []string{"archives", "chat_messages"} {
		if !tableExists(t, db, table) {
			t.Errorf("table %s does not exist after migration", table)
		}
	}

	version, dirty, err := GetMigrationVersion(db)
	if err != nil {
		t.Fatalf("GetMigrationVersion() error = %v", err)
	}
	if dirty {
		t.Errorf("migration version is dirty")
	}
	if version < 1 {
		t.Errorf("migration version = %d, want >= 1", version)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db := openTestDB(t)
	cleanDatabase(t, context.Background(), db)

	if err := RunMigrations(db); err != nil {
		t.Fatalf("first RunMigrations() error = %v", err)
	}
	v1, _, err := GetMigrationVersion(db)
	if err != nil {
		t.Fatal(err)
	}
	if err := RunMigrations(db); err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}
	v2, dirty, err := GetMigrationVersion(db)
	if err != nil {
		t.Fatal(err)
	}
	if v1 != v2 || dirty {
		t.Errorf("version changed %d -> %d (dirty=%v)", v1, v2, dirty)
	}
}

func TestMigrationDownAllAndReapply(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	cleanDatabase(t, ctx, db)

	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	start, _, err := GetMigrationVersion(db)
	if err != nil {
		t.Fatal(err)
	}
	for i := uint(0); i < start; i++ {
		if err := MigrateDown(db); err != nil {
			t.Fatalf("MigrateDown() iteration %d error = %v", i, err)
		}
	}
	for _, table := range []string{"archives", "chat_messages"} {
		if tableExists(t, db, table) {
			t.Errorf("table %s still exists after rolling back all migrations", table)
		}
	}
	if v, _, err := GetMigrationVersion(db); err != nil || v != 0 {
		t.Fatalf("version after down all = %d, %v; want 0", v, err)
	}

	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() after rollback error = %v", err)
	}
	if v, _, _ := GetMigrationVersion(db); v != start {
		t.Errorf("version after re-apply = %d, want %d", v, start)
	}
}

// cleanDatabase drops all tables and the schema_migrations table to start fresh.
func cleanDatabase(t *testing.T, ctx context.Context, db *sql.DB) {
	t.Helper()
	statements := []string{
		`DROP TABLE IF EXISTS chat_messages CASCADE`,
		`DROP TABLE IF EXISTS archives CASCADE`,
		`DROP TABLE IF EXISTS schema_migrations CASCADE`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Logf("warning: clean database statement failed (may be expected): %v", err)
		}
	}
}
