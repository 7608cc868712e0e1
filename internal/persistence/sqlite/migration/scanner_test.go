package migration

import (
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"
)

func mapFS(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{"migrations": &fstest.MapFile{Mode: fs.ModeDir | 0o755}}
	for name, content := range files {
		fsys["migrations/"+name] = &fstest.MapFile{Data: []byte(content)}
	}
	return fsys
}

func TestScanner_ScanMigrations(t *testing.T) {
	tests := []struct {
		name          string
		files         map[string]string
		expectedOrder []string
		expectedErr   error
	}{
		{
			name: "multiple files sorted numerically",
			files: map[string]string{
				"010_add_index.sql":    "CREATE INDEX idx ON rooms(name);",
				"001_create_rooms.sql": "CREATE TABLE rooms (id INTEGER PRIMARY KEY);",
				"002_create_users.sql": "CREATE TABLE users (id INTEGER PRIMARY KEY);",
			},
			expectedOrder: []string{"001", "002", "010"},
		},
		{
			name: "non sql files are ignored",
			files: map[string]string{
				"001_create_rooms.sql": "CREATE TABLE rooms (id INTEGER PRIMARY KEY);",
				"README.md":            "# notes",
			},
			expectedOrder: []string{"001"},
		},
		{
			name:          "empty directory",
			files:         map[string]string{},
			expectedOrder: nil,
		},
		{
			name: "invalid file name",
			files: map[string]string{
				"create_rooms.sql": "CREATE TABLE rooms (id INTEGER PRIMARY KEY);",
			},
			expectedErr: ErrInvalidMigrationFile,
		},
		{
			name: "duplicate version",
			files: map[string]string{
				"001_create_rooms.sql": "CREATE TABLE rooms (id INTEGER PRIMARY KEY);",
				"1_create_users.sql":   "CREATE TABLE users (id INTEGER PRIMARY KEY);",
			},
			expectedErr: ErrDuplicateVersion,
		},
		{
			name: "comments only",
			files: map[string]string{
				"001_empty.sql": "-- nothing here\n",
			},
			expectedErr: ErrInvalidMigrationFile,
		},
		{
			name: "unbalanced parentheses",
			files: map[string]string{
				"001_broken.sql": "CREATE TABLE rooms (id INTEGER PRIMARY KEY;",
			},
			expectedErr: ErrInvalidMigrationFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			migrations, err := NewScanner(mapFS(tt.files), "migrations").ScanMigrations()
			if tt.expectedErr != nil {
				if !errors.Is(err, tt.expectedErr) {
					t.Fatalf("expected %v, got %v", tt.expectedErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(migrations) != len(tt.expectedOrder) {
				t.Fatalf("expected %d migrations, got %d", len(tt.expectedOrder), len(migrations))
			}
			for i, version := range tt.expectedOrder {
				if migrations[i].Version != version {
					t.Errorf("position %d: expected version %s, got %s", i, version, migrations[i].Version)
				}
			}
		})
	}
}

func TestScanner_MissingDirectory(t *testing.T) {
	_, err := NewScanner(fstest.MapFS{}, "migrations").ScanMigrations()
	var migErr *MigrationError
	if !errors.As(err, &migErr) {
		t.Fatalf("expected MigrationError, got %v", err)
	}
}

func TestScanner_ParseMetadata(t *testing.T) {
	files := map[string]string{
		"001_create_rooms.sql": "-- Description: Create rooms table\nCREATE TABLE rooms (id INTEGER PRIMARY KEY);\n",
		"002_create_users.sql": "CREATE TABLE users (id INTEGER PRIMARY KEY);\n",
	}
	migrations, err := NewScanner(mapFS(files), "migrations").ScanMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if migrations[0].Description != "Create rooms table" {
		t.Errorf("expected description from comment, got %q", migrations[0].Description)
	}
	if migrations[1].Description != "create users" {
		t.Errorf("expected description from file name, got %q", migrations[1].Description)
	}
	if migrations[0].FilePath != "migrations/001_create_rooms.sql" {
		t.Errorf("unexpected file path %q", migrations[0].FilePath)
	}
	if len(migrations[0].Checksum) != 64 || migrations[0].Checksum == migrations[1].Checksum {
		t.Errorf("unexpected checksums %q %q", migrations[0].Checksum, migrations[1].Checksum)
	}
}

func TestScanner_ValidateFileName(t *testing.T) {
	s := NewScanner(fstest.MapFS{}, "")
	valid := []string{"001_init.sql", "42_add-index.sql"}
	invalid := []string{"init.sql", "001.sql", "001_init.txt", "abc_init.sql"}

	for _, name := range valid {
		if err := s.ValidateFileName(name); err != nil {
			t.Errorf("%s: unexpected error %v", name, err)
		}
	}
	for _, name := range invalid {
		if err := s.ValidateFileName(name); !errors.Is(err, ErrInvalidMigrationFile) {
			t.Errorf("%s: expected ErrInvalidMigrationFile, got %v", name, err)
		}
	}
}
