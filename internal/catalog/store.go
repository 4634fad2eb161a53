// Package catalog stores the media catalog and every viewer's watch-later
// list, persisted as a single JSON document.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// dataVersion is bumped when the schema changes.
	dataVersion = 1

	dataFileName = "catalog.json"
	appDirName   = "streamverse"
)

var (
	// ErrMediaNotFound is returned for an id that is not in the catalog.
	ErrMediaNotFound = errors.New("media not found")
	// ErrAlreadySaved is returned when adding an id already on the list.
	ErrAlreadySaved = errors.New("already in watch later")
	// ErrNotSaved is returned when removing an id that is not on the list.
	ErrNotSaved = errors.New("not in watch later")
)

// Media is a catalog title. The JSON shape matches what the client decodes.
type Media struct {
	ID        string   `json:"_id"`
	Title     string   `json:"title"`
	PosterRef string   `json:"posterUrl,omitempty"`
	Year      int      `json:"year"`
	Type      string   `json:"type"`
	Genres    []string `json:"genres,omitempty"`
	Plot      string   `json:"plot,omitempty"`
}

// document is the on-disk format.
type document struct {
	Version     int                 `json:"version"`
	Media       []Media             `json:"media"`
	Lists       map[string][]string `json:"lists"` // email -> media ids, newest first
	LastUpdated time.Time           `json:"lastUpdated"`
}

// Store is safe for concurrent use. Every mutation is written through to disk.
type Store struct {
	dir string

	mu    sync.RWMutex
	doc   document
	index map[string]int // media id -> position in doc.Media
}

// NewStore creates a Store that reads/writes catalog.json in dir.
// Pass an empty string to use the default XDG state path.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = defaultDataDir()
	}
	return &Store{
		dir:   dir,
		doc:   newDocument(),
		index: make(map[string]int),
	}
}

// Path returns the full path to the data file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, dataFileName)
}

// Load reads the data file. A missing file leaves the store empty.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading catalog: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing catalog: %w", err)
	}
	if doc.Lists == nil {
		doc.Lists = make(map[string][]string)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
	s.reindex()
	return nil
}

// Empty reports whether the catalog has no media.
func (s *Store) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.doc.Media) == 0
}

// Media returns every title in catalog order.
func (s *Store) Media() []Media {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Media, len(s.doc.Media))
	copy(out, s.doc.Media)
	return out
}

// Get returns one title.
func (s *Store) Get(id string) (Media, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return Media{}, false
	}
	return s.doc.Media[i], true
}

// AddMedia inserts a title, assigning an id when it has none.
func (s *Store) AddMedia(m Media) (Media, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[m.ID]; ok {
		return Media{}, fmt.Errorf("media %s already exists", m.ID)
	}
	s.doc.Media = append(s.doc.Media, m)
	s.index[m.ID] = len(s.doc.Media) - 1
	if err := s.saveLocked(); err != nil {
		return Media{}, err
	}
	return m, nil
}

// List returns the viewer's watch-later titles, newest first. Ids whose
// media vanished from the catalog are skipped.
func (s *Store) List(email string) []Media {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.doc.Lists[email]
	out := make([]Media, 0, len(ids))
	for _, id := range ids {
		if i, ok := s.index[id]; ok {
			out = append(out, s.doc.Media[i])
		}
	}
	return out
}

// Contains reports whether id is on the viewer's list.
func (s *Store) Contains(email, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, x := range s.doc.Lists[email] {
		if x == id {
			return true
		}
	}
	return false
}

// Add puts id at the front of the viewer's list.
func (s *Store) Add(email, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(email, id)
}

// Remove takes id off the viewer's list.
func (s *Store) Remove(email, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(email, id)
}

// Toggle removes id when it is saved and adds it otherwise, as one step.
// added reports which happened.
func (s *Store) Toggle(email, id string) (added bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.removeLocked(email, id); err != ErrNotSaved {
		return false, err
	}
	return true, s.addLocked(email, id)
}

func (s *Store) addLocked(email, id string) error {
	if _, ok := s.index[id]; !ok {
		return ErrMediaNotFound
	}
	for _, x := range s.doc.Lists[email] {
		if x == id {
			return ErrAlreadySaved
		}
	}
	s.doc.Lists[email] = append([]string{id}, s.doc.Lists[email]...)
	return s.saveLocked()
}

func (s *Store) removeLocked(email, id string) error {
	ids := s.doc.Lists[email]
	for i, x := range ids {
		if x == id {
			s.doc.Lists[email] = append(ids[:i:i], ids[i+1:]...)
			return s.saveLocked()
		}
	}
	return ErrNotSaved
}

// saveLocked writes the document using an atomic temp-file-then-rename
// pattern. The caller holds s.mu.
func (s *Store) saveLocked() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating catalog dir: %w", err)
	}

	s.doc.Version = dataVersion
	s.doc.LastUpdated = time.Now().UTC()

	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling catalog: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dir, ".catalog-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path()); err != nil {
		return fmt.Errorf("renaming catalog file: %w", err)
	}
	committed = true

	return nil
}

func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.doc.Media))
	for i, m := range s.doc.Media {
		s.index[m.ID] = i
	}
}

func newDocument() document {
	return document{
		Version: dataVersion,
		Lists:   make(map[string][]string),
	}
}

// defaultDataDir returns $XDG_STATE_HOME/streamverse, falling back to
// ~/.local/state/streamverse.
func defaultDataDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appDirName)
	}
	return filepath.Join(home, ".local", "state", appDirName)
}
