// Package directory resolves participant identifiers to display names.
package directory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/rudra1in/facultyapp-sub000/internal/logger"
	"github.com/rudra1in/facultyapp-sub000/internal/models"
)

var log = logger.New("directory")

const (
	facultyPrefix = "faculty-"
	unknownName   = "Unknown User"
)

// Source supplies the roster the directory serves. The directory never
// writes back to it.
type Source interface {
	Load(ctx context.Context) ([]models.DirectoryEntry, error)
}

// Directory is an in-memory snapshot of the roster.
type Directory struct {
	source Source

	mu      sync.RWMutex
	entries map[string]models.DirectoryEntry
	byName  []models.DirectoryEntry
}

// New creates an empty directory backed by source. Call Reload to fill it.
func New(source Source) *Directory {
	return &Directory{source: source, entries: make(map[string]models.DirectoryEntry)}
}

// NewStatic creates a directory serving a fixed roster.
func NewStatic(entries ...models.DirectoryEntry) *Directory {
	d := New(nil)
	d.replace(entries)
	return d
}

// Reload replaces the snapshot with a fresh read of the source.
func (d *Directory) Reload(ctx context.Context) error {
	if d.source == nil {
		return nil
	}
	entries, err := d.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading directory: %w", err)
	}
	d.replace(entries)
	log.Info("Loaded %d directory entries", len(entries))
	return nil
}

func (d *Directory) replace(entries []models.DirectoryEntry) {
	table := make(map[string]models.DirectoryEntry, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		if _, dup := table[e.ID]; dup {
			log.Warn("Duplicate directory entry %s, keeping the last one", e.ID)
		}
		table[e.ID] = e
	}

	byName := make([]models.DirectoryEntry, 0, len(table))
	for _, e := range table {
		byName = append(byName, e)
	}
	sort.Slice(byName, func(i, j int) bool {
		if byName[i].Name != byName[j].Name {
			return byName[i].Name < byName[j].Name
		}
		return byName[i].ID < byName[j].ID
	})

	d.mu.Lock()
	d.entries = table
	d.byName = byName
	d.mu.Unlock()
}

// Lookup returns the roster entry for id.
func (d *Directory) Lookup(id string) (models.DirectoryEntry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[id]
	return e, ok
}

// ResolveName returns the display name for id. It never fails: identifiers
// missing from the roster get a name from FallbackName.
func (d *Directory) ResolveName(id string) string {
	if e, ok := d.Lookup(id); ok && e.Name != "" {
		return e.Name
	}
	return FallbackName(id)
}

// Role returns the roster role of id.
func (d *Directory) Role(id string) (models.Role, bool) {
	e, ok := d.Lookup(id)
	if !ok || !e.Role.Valid() {
		return "", false
	}
	return e.Role, true
}

// Search returns the entries whose name contains query, ignoring case,
// ordered by name. An empty query matches everyone; an empty role matches
// every role.
func (d *Directory) Search(query string, role models.Role) []models.DirectoryMatch {
	needle := strings.ToLower(strings.TrimSpace(query))

	d.mu.RLock()
	defer d.mu.RUnlock()

	matches := make([]models.DirectoryMatch, 0)
	for _, e := range d.byName {
		if role != "" && e.Role != role {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(e.Name), needle) {
			continue
		}
		matches = append(matches, models.DirectoryMatch{ID: e.ID, Name: e.Name, Role: e.Role})
	}
	return matches
}

// FallbackName derives a readable label for an identifier that is not in the
// roster. "faculty-jane-doe" becomes "Faculty Jane Doe"; anything else becomes
// "User " followed by its first six characters.
func FallbackName(id string) string {
	if id == "" {
		return unknownName
	}
	if strings.HasPrefix(id, facultyPrefix) {
		words := []string{"Faculty"}
		for _, part := range strings.Split(id[len(facultyPrefix):], "-") {
			if part != "" {
				words = append(words, capitalize(part))
			}
		}
		return strings.Join(words, " ")
	}
	return "User " + firstRunes(id, 6)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func firstRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
