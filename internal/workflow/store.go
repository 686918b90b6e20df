package workflow

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v2"

	lvcfs "lvc-go/internal/fs"
)

// ErrNotFound is returned when no workflow has the requested name.
var ErrNotFound = errors.New("workflow not found")

// Store reads and writes workflow definitions in a directory.
type Store struct {
	dir string
}

// NewStore returns a Store over dir. The directory need not exist yet.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the workflows directory.
func (s *Store) Dir() string {
	return s.dir
}

// List loads every .toml, .yaml and .yml definition, sorted by name.
func (s *Store) List() ([]*Workflow, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading workflows directory: %w", err)
	}

	var workflows []*Workflow
	seen := map[string]string{}
	for _, e := range entries {
		if e.IsDir() || !isDefinition(e.Name()) {
			continue
		}
		p := filepath.Join(s.dir, e.Name())
		w, err := Load(p)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[w.Name]; ok {
			return nil, fmt.Errorf("workflow %q defined in both %s and %s", w.Name, prev, e.Name())
		}
		seen[w.Name] = e.Name()
		workflows = append(workflows, w)
	}

	sort.Slice(workflows, func(i, j int) bool { return workflows[i].Name < workflows[j].Name })
	return workflows, nil
}

// Get returns the workflow called name.
func (s *Store) Get(name string) (*Workflow, error) {
	workflows, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, w := range workflows {
		if w.Name == name {
			return w, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
}

// Save validates w and writes it as <name>.toml.
func (s *Store) Save(w *Workflow) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating workflows directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(w); err != nil {
		return fmt.Errorf("encoding workflow %s: %w", w.Name, err)
	}
	if err := lvcfs.WriteFileAtomic(filepath.Join(s.dir, w.Name+".toml"), buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing workflow %s: %w", w.Name, err)
	}
	return nil
}

// Load parses and validates one definition file. The format follows the extension.
func Load(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow: %w", err)
	}

	var w Workflow
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &w); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
		}
	case ".yaml", ".yml":
		if err := yaml.UnmarshalStrict(data, &w); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
		}
	default:
		return nil, fmt.Errorf("unsupported workflow format: %s", filepath.Base(path))
	}

	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return &w, nil
}

func isDefinition(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml", ".yaml", ".yml":
		return true
	}
	return false
}
