// Package database provides connection setup for MariaDB and Redis.
// This file validates migration SQL files to catch schema mismatches early.
package database

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"
)

// validSubmissionStates must match the ENUM values on
// submitted_contributions.state. Update this set when extending the ENUM
// via ALTER TABLE.
// Current ENUM: ENUM('pending', 'accepted', 'rejected', 'more_info_needed')
// Defined in 000005.
var validSubmissionStates = map[string]bool{
	"pending":          true,
	"accepted":         true,
	"rejected":         true,
	"more_info_needed": true,
}

// migrationsDir returns the absolute path to db/migrations/ from the project root.
func migrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	// thisFile is internal/database/migrate_test.go, project root is two dirs up.
	projectRoot := filepath.Join(filepath.Dir(thisFile), "..", "..")
	dir := filepath.Join(projectRoot, "db", "migrations")
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("migrations directory not found at %s: %v", dir, err)
	}
	return dir
}

// TestMigrations_SubmissionStateValues scans all .up.sql migration files for
// INSERT or UPDATE statements that reference the submitted_contributions
// table and validates that any state values used are valid ENUM members.
// This prevents the "Data truncated for column 'state'" crash (Error 1265)
// that occurs when an invalid ENUM value is used.
func TestMigrations_SubmissionStateValues(t *testing.T) {
	dir := migrationsDir(t)
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing migration files: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no migration files found")
	}

	// Match state = 'value' or state, ... 'value' patterns.
	statePattern := regexp.MustCompile(`state\s*[=,]\s*'([^']+)'`)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("reading %s: %v", f, err)
		}
		content := string(data)

		// Only check files that reference the submissions table.
		if !strings.Contains(content, "submitted_contributions") {
			continue
		}

		// Skip ALTER TABLE and CREATE TABLE statements (they define the
		// ENUM, not use it). We only care about INSERT/UPDATE statements.
		lines := strings.Split(content, "\n")
		inDDL := false
		for _, line := range lines {
			trimmed := strings.TrimSpace(strings.ToUpper(line))
			if strings.HasPrefix(trimmed, "ALTER TABLE") || strings.HasPrefix(trimmed, "CREATE TABLE") {
				inDDL = true
			}
			if inDDL {
				if strings.Contains(line, ";") {
					inDDL = false
				}
				continue
			}

			matches := statePattern.FindAllStringSubmatch(line, -1)
			for _, match := range matches {
				value := match[1]
				if !validSubmissionStates[value] {
					t.Errorf("%s: invalid submission state %q; valid values: pending, accepted, rejected, more_info_needed",
						filepath.Base(f), value)
				}
			}
		}
	}
}

// TestMigrations_SeededTypesAreComplete validates that every contribution
// type seeded by the migrations carries a non-empty slug and name, since the
// search mapper resolves user queries against both.
func TestMigrations_SeededTypesAreComplete(t *testing.T) {
	dir := migrationsDir(t)
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing migration files: %v", err)
	}

	rowPattern := regexp.MustCompile(`\('([^']*)',\s*'([^']*)'`)
	seen := 0
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("reading %s: %v", f, err)
		}
		content := string(data)
		if !strings.Contains(content, "INSERT INTO contribution_types") {
			continue
		}
		for _, match := range rowPattern.FindAllStringSubmatch(content, -1) {
			seen++
			if match[1] == "" || match[2] == "" {
				t.Errorf("%s: seeded contribution type with empty name or slug: %q", filepath.Base(f), match[0])
			}
		}
	}
	if seen == 0 {
		t.Fatal("no seeded contribution types found in migrations")
	}
}

// TestMigrations_UpDownPairs ensures every .up.sql has a matching .down.sql.
func TestMigrations_UpDownPairs(t *testing.T) {
	dir := migrationsDir(t)
	upFiles, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing up files: %v", err)
	}

	for _, up := range upFiles {
		down := strings.Replace(up, ".up.sql", ".down.sql", 1)
		if _, err := os.Stat(down); err != nil {
			t.Errorf("missing down migration for %s", filepath.Base(up))
		}
	}
}
