package db

import (
	"io/fs"
	"sort"
	"strings"
	"testing"
)

// TestEmbeddedMigrations verifies the embedded filesystem carries every
// migration as an up/down pair, since golang-migrate refuses a version
// with only one direction.
func TestEmbeddedMigrations(t *testing.T) {
	origDevMode := DevMode
	DevMode = false
	defer func() { DevMode = origDevMode }()

	migFS, err := getMigrationsFS()
	if err != nil {
		t.Fatalf("getMigrationsFS failed: %v", err)
	}

	entries, err := fs.ReadDir(migFS, ".")
	if err != nil {
		t.Fatalf("failed to read migrations root: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no migration files embedded")
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file in migrations: %s", name)
		}
	}

	var versions []string
	for v := range ups {
		versions = append(versions, v)
		if !downs[v] {
			t.Errorf("migration %s has no down file", v)
		}
	}
	for v := range downs {
		if !ups[v] {
			t.Errorf("migration %s has no up file", v)
		}
	}

	sort.Strings(versions)
	for i, v := range versions {
		t.Logf("migration %d: %s", i+1, v)
	}
}

// TestEmbeddedMigrationsCoreSchema verifies the base migration creates the
// annotation tables the stores depend on.
func TestEmbeddedMigrationsCoreSchema(t *testing.T) {
	data, err := fs.ReadFile(migrationsFS, "migrations/000001_annotation_core.up.sql")
	if err != nil {
		t.Fatalf("failed to read core migration: %v", err)
	}

	schema := string(data)
	for _, table := range []string{"items", "batches", "tasks", "annotations", "adjudications", "gold_items"} {
		if !strings.Contains(schema, table) {
			t.Errorf("core migration does not mention table %q", table)
		}
	}
}
