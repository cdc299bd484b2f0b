package presets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no preset has the requested name
	ErrNotFound = errors.New("preset not found")
	// ErrUnknownFormat is returned for files that are neither an export
	// envelope nor a bare preset list
	ErrUnknownFormat = errors.New("unknown preset file format")
)

// ImportSummary reports how an import was merged into the store
type ImportSummary struct {
	Imported      int    `json:"imported"`
	Existing      int    `json:"existing"`
	FirstImported string `json:"first_imported,omitempty"`
}

// Store keeps presets in a single JSON file. Saving a preset with an
// existing name replaces it; list order is insertion order.
type Store struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewStore returns a store backed by the file at path. The file is created
// on first write.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the backing file
func (s *Store) Path() string {
	return s.path
}

// List returns every stored preset
func (s *Store) List() ([]Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Get returns the preset with the given name
func (s *Store) Get(name string) (*Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return nil, err
	}
	if i := indexOf(list, name); i >= 0 {
		p := list[i]
		return &p, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Save stores p, replacing any preset with the same name. It reports
// whether an existing preset was replaced.
func (s *Store) Save(p Preset) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return false, err
	}

	p.SavedAt = s.now().UTC().Format(time.RFC3339)
	replaced := false
	if i := indexOf(list, p.Name); i >= 0 {
		list[i] = p
		replaced = true
	} else {
		list = append(list, p)
	}

	return replaced, s.write(list)
}

// Delete removes the preset with the given name
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return err
	}
	i := indexOf(list, name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	list = append(list[:i], list[i+1:]...)
	return s.write(list)
}

// Import decodes presets from r and merges them into the store
func (s *Store) Import(r io.Reader, format Format) (*ImportSummary, error) {
	incoming, err := Decode(r, format)
	if err != nil {
		return nil, err
	}
	return s.Merge(incoming)
}

// Merge adds presets to the store. Presets whose name is already stored
// are counted as existing and overwritten.
func (s *Store) Merge(incoming []Preset) (*ImportSummary, error) {
	for _, p := range incoming {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{}
	for _, p := range incoming {
		if p.SavedAt == "" {
			p.SavedAt = s.now().UTC().Format(time.RFC3339)
		}
		if i := indexOf(list, p.Name); i >= 0 {
			list[i] = p
			summary.Existing++
		} else {
			list = append(list, p)
			summary.Imported++
		}
		if summary.FirstImported == "" {
			summary.FirstImported = p.Name
		}
	}

	if len(incoming) == 0 {
		return summary, nil
	}
	return summary, s.write(list)
}

// Export writes the named presets, or every preset when names is empty,
// inside an export envelope. It returns the number of presets written.
func (s *Store) Export(w io.Writer, format Format, names ...string) (int, error) {
	s.mu.Lock()
	list, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}

	selected := list
	if len(names) > 0 {
		selected = make([]Preset, 0, len(names))
		for _, name := range names {
			i := indexOf(list, name)
			if i < 0 {
				return 0, fmt.Errorf("%w: %q", ErrNotFound, name)
			}
			selected = append(selected, list[i])
		}
	}

	if err := Encode(w, format, selected, s.now()); err != nil {
		return 0, fmt.Errorf("failed to export presets: %w", err)
	}
	return len(selected), nil
}

func (s *Store) load() ([]Preset, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Preset{}, nil
		}
		return nil, fmt.Errorf("failed to read presets: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []Preset{}, nil
	}

	var list []Preset
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse presets %s: %w", s.path, err)
	}
	if list == nil {
		list = []Preset{}
	}
	return list, nil
}

// write replaces the backing file via a temp file in the same directory
func (s *Store) write(list []Preset) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create presets directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".presets-*.json")
	if err != nil {
		return fmt.Errorf("failed to write presets: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write presets: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write presets: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to write presets: %w", err)
	}
	return nil
}

func indexOf(list []Preset, name string) int {
	for i, p := range list {
		if p.Name == name {
			return i
		}
	}
	return -1
}
