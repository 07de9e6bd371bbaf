package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var migrationFileName = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

// FSScanner reads migrations from the root of an fs.FS.
type FSScanner struct {
	files fs.FS
	dir   string
}

// NewScanner returns a scanner over the given directory of files.
func NewScanner(files fs.FS, dir string) *FSScanner {
	if dir == "" {
		dir = "."
	}
	return &FSScanner{files: files, dir: dir}
}

// ScanMigrations implements FileScanner.
func (s *FSScanner) ScanMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(s.files, s.dir)
	if err != nil {
		return nil, NewMigrationError("", s.dir, "scan directory", err)
	}

	seen := make(map[int]string)
	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		m, err := s.parse(entry.Name())
		if err != nil {
			return nil, err
		}
		n, _ := strconv.Atoi(m.Version)
		if other, ok := seen[n]; ok {
			return nil, NewMigrationError(m.Version, m.FilePath, "scan directory",
				fmt.Errorf("%w: also defined by %s", ErrDuplicateVersion, other))
		}
		seen[n] = m.FilePath
		migrations = append(migrations, m)
	}

	sort.Slice(migrations, func(i, j int) bool {
		a, _ := strconv.Atoi(migrations[i].Version)
		b, _ := strconv.Atoi(migrations[j].Version)
		return a < b
	})
	return migrations, nil
}

// ValidateFileName implements FileScanner.
func (s *FSScanner) ValidateFileName(filename string) error {
	match := migrationFileName.FindStringSubmatch(filename)
	if match == nil {
		return fmt.Errorf("%w: %s does not match {version}_{description}.sql", ErrInvalidMigrationFile, filename)
	}
	if n, err := strconv.Atoi(match[1]); err != nil || n <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidVersion, match[1])
	}
	return nil
}

func (s *FSScanner) parse(name string) (Migration, error) {
	filePath := path.Join(s.dir, name)
	if err := s.ValidateFileName(name); err != nil {
		return Migration{}, NewMigrationError("", filePath, "validate file name", err)
	}
	match := migrationFileName.FindStringSubmatch(name)

	content, err := fs.ReadFile(s.files, filePath)
	if err != nil {
		return Migration{}, NewMigrationError(match[1], filePath, "read file", err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return Migration{}, NewMigrationError(match[1], filePath, "read file",
			fmt.Errorf("%w: file is empty", ErrInvalidMigrationFile))
	}

	sum := sha256.Sum256(content)
	return Migration{
		Version:     match[1],
		Description: strings.ReplaceAll(match[2], "_", " "),
		SQL:         string(content),
		FilePath:    filePath,
		Checksum:    hex.EncodeToString(sum[:]),
	}, nil
}
