package directory

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rudra1in/facultyapp-sub000/internal/models"
)

// roster is the on-disk layout of a directory file.
type roster struct {
	Entries []models.DirectoryEntry `yaml:"entries"`
}

// FileSource reads the roster from a YAML file.
type FileSource struct {
	Path string
}

func (s FileSource) Load(ctx context.Context) ([]models.DirectoryEntry, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	return ParseRoster(data)
}

// ParseRoster decodes a YAML roster document.
func ParseRoster(data []byte) ([]models.DirectoryEntry, error) {
	var r roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing roster: %w", err)
	}
	for i, e := range r.Entries {
		if e.ID == "" {
			return nil, fmt.Errorf("roster entry %d has no id", i)
		}
		if e.Role != "" && !e.Role.Valid() {
			return nil, fmt.Errorf("roster entry %s has unknown role %q", e.ID, e.Role)
		}
	}
	return r.Entries, nil
}

// PostgresSource reads the roster from the directory_entries table.
type PostgresSource struct {
	DB *sql.DB
}

func (s PostgresSource) Load(ctx context.Context) ([]models.DirectoryEntry, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, name, role FROM directory_entries ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.DirectoryEntry
	for rows.Next() {
		var e models.DirectoryEntry
		var role string
		if err := rows.Scan(&e.ID, &e.Name, &role); err != nil {
			return nil, err
		}
		e.Role = models.Role(role)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
