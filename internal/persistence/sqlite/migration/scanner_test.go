package migration

import (
	"errors"
	"testing"
	"testing/fstest"
)

func TestFSScanner_ScanMigrations(t *testing.T) {
	t.Parallel()

	files := fstest.MapFS{
		"sql/10_later.sql":         {Data: []byte("SELECT 1;")},
		"sql/2_earlier_change.sql": {Data: []byte("SELECT 2;")},
		"sql/notes.txt":            {Data: []byte("skip")},
	}
	migrations, err := NewScanner(files, "sql").ScanMigrations()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != "2" || migrations[1].Version != "10" {
		t.Fatalf("expected numeric ordering, got %s then %s", migrations[0].Version, migrations[1].Version)
	}
	if migrations[0].Description != "earlier change" || migrations[0].FilePath != "sql/2_earlier_change.sql" {
		t.Fatalf("unexpected metadata %+v", migrations[0])
	}
	if len(migrations[0].Checksum) != 64 {
		t.Fatalf("expected sha256 hex checksum, got %q", migrations[0].Checksum)
	}
}

func TestFSScanner_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		files fstest.MapFS
		want  error
	}{
		{
			name:  "bad name",
			files: fstest.MapFS{"create.sql": {Data: []byte("SELECT 1;")}},
			want:  ErrInvalidMigrationFile,
		},
		{
			name:  "zero version",
			files: fstest.MapFS{"000_init.sql": {Data: []byte("SELECT 1;")}},
			want:  ErrInvalidVersion,
		},
		{
			name: "duplicate version",
			files: fstest.MapFS{
				"001_a.sql": {Data: []byte("SELECT 1;")},
				"1_b.sql":   {Data: []byte("SELECT 1;")},
			},
			want: ErrDuplicateVersion,
		},
		{
			name:  "empty file",
			files: fstest.MapFS{"001_empty.sql": {Data: []byte("  \n")}},
			want:  ErrInvalidMigrationFile,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewScanner(tc.files, ".").ScanMigrations(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	got := splitStatements("-- header\nCREATE TABLE a (id INT);\n\n  -- note\nCREATE TABLE b (id INT);\n")
	if len(got) != 2 || got[0] != "CREATE TABLE a (id INT)" || got[1] != "CREATE TABLE b (id INT)" {
		t.Fatalf("unexpected statements %q", got)
	}
}
