package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the per-repository configuration stored in .lvc/config.toml.
type Config struct {
	RepositoryID     string            `toml:"repository_id"`
	OutputFormat     string            `toml:"output_format"`
	Editor           string            `toml:"editor"`
	MaxFileSizeMB    int64             `toml:"max_file_size_mb"`
	BackupEnabled    bool              `toml:"backup_enabled"`
	UseLocalTimezone bool              `toml:"use_local_timezone"`
	GC               GCConfig          `toml:"gc"`
	Compression      CompressionConfig `toml:"compression"`
	Journal          JournalConfig     `toml:"journal"`
	Log              LogConfig         `toml:"log"`
	Tags             map[string]string `toml:"tags"`
}

// GCConfig holds retention and automatic collection settings.
// A zero KeepDays or KeepSnapshots disables that limit.
type GCConfig struct {
	KeepDays      int  `toml:"keep_days"`
	KeepSnapshots int  `toml:"keep_snapshots"`
	AutoEnabled   bool `toml:"auto_enabled"`
}

// CompressionConfig selects the codec for newly written objects.
type CompressionConfig struct {
	Codec string `toml:"codec"` // "gzip" (default) or "xz"
}

// JournalConfig represents configuration for the operation journal.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type JournalConfig struct {
	Type string `toml:"type"`           // "sqlite", "memory" or "none"
	Path string `toml:"path,omitempty"` // only used for type=sqlite; relative to the metadata directory
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"` // "debug", "info", "warn" or "error"
}

// NewConfig creates a Config with default values for a repository.
func NewConfig(repositoryID string) *Config {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	return &Config{
		RepositoryID:     repositoryID,
		OutputFormat:     "table",
		Editor:           editor,
		MaxFileSizeMB:    100,
		BackupEnabled:    true,
		UseLocalTimezone: true,
		GC: GCConfig{
			KeepDays:      30,
			KeepSnapshots: 50,
			AutoEnabled:   false,
		},
		Compression: CompressionConfig{Codec: "gzip"},
		Journal:     JournalConfig{Type: "sqlite", Path: "journal.db"},
		Log:         LogConfig{Level: "info"},
		Tags:        map[string]string{},
	}
}

// MaxFileSizeBytes returns the commit size limit in bytes, or 0 when unlimited.
func (c *Config) MaxFileSizeBytes() int64 {
	if c.MaxFileSizeMB <= 0 {
		return 0
	}
	return c.MaxFileSizeMB * 1024 * 1024
}

// Keys returns every settable key except tag entries, sorted.
func Keys() []string {
	keys := make([]string, 0, len(settable))
	for k := range settable {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type setting struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

var settable = map[string]setting{
	"output_format": {
		get: func(c *Config) string { return c.OutputFormat },
		set: func(c *Config, v string) error {
			if err := oneOf(v, "table", "json"); err != nil {
				return err
			}
			c.OutputFormat = v
			return nil
		},
	},
	"editor": {
		get: func(c *Config) string { return c.Editor },
		set: func(c *Config, v string) error { c.Editor = v; return nil },
	},
	"max_file_size_mb": {
		get: func(c *Config) string { return strconv.FormatInt(c.MaxFileSizeMB, 10) },
		set: func(c *Config, v string) error {
			n, err := parseNonNegative(v)
			if err != nil {
				return err
			}
			c.MaxFileSizeMB = int64(n)
			return nil
		},
	},
	"backup_enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.BackupEnabled) },
		set: func(c *Config, v string) error { return parseBool(v, &c.BackupEnabled) },
	},
	"use_local_timezone": {
		get: func(c *Config) string { return strconv.FormatBool(c.UseLocalTimezone) },
		set: func(c *Config, v string) error { return parseBool(v, &c.UseLocalTimezone) },
	},
	"gc.keep_days": {
		get: func(c *Config) string { return strconv.Itoa(c.GC.KeepDays) },
		set: func(c *Config, v string) error {
			n, err := parseNonNegative(v)
			if err != nil {
				return err
			}
			c.GC.KeepDays = n
			return nil
		},
	},
	"gc.keep_snapshots": {
		get: func(c *Config) string { return strconv.Itoa(c.GC.KeepSnapshots) },
		set: func(c *Config, v string) error {
			n, err := parseNonNegative(v)
			if err != nil {
				return err
			}
			c.GC.KeepSnapshots = n
			return nil
		},
	},
	"gc.auto_enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.GC.AutoEnabled) },
		set: func(c *Config, v string) error { return parseBool(v, &c.GC.AutoEnabled) },
	},
	"compression.codec": {
		get: func(c *Config) string { return c.Compression.Codec },
		set: func(c *Config, v string) error {
			if err := oneOf(v, "gzip", "xz"); err != nil {
				return err
			}
			c.Compression.Codec = v
			return nil
		},
	},
	"journal.type": {
		get: func(c *Config) string { return c.Journal.Type },
		set: func(c *Config, v string) error {
			if err := oneOf(v, "sqlite", "memory", "none"); err != nil {
				return err
			}
			c.Journal.Type = v
			return nil
		},
	},
	"log.level": {
		get: func(c *Config) string { return c.Log.Level },
		set: func(c *Config, v string) error {
			if err := oneOf(v, "debug", "info", "warn", "error"); err != nil {
				return err
			}
			c.Log.Level = v
			return nil
		},
	},
}

const tagPrefix = "tag."

// Get returns the value of key. Tag entries are addressed as "tag.<name>".
func (c *Config) Get(key string) (string, error) {
	if name, ok := strings.CutPrefix(key, tagPrefix); ok {
		id, ok := c.Tags[name]
		if !ok {
			return "", fmt.Errorf("tag not set: %s", name)
		}
		return id, nil
	}
	s, ok := settable[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %s", key)
	}
	return s.get(c), nil
}

// Set parses and assigns value to key.
func (c *Config) Set(key, value string) error {
	if name, ok := strings.CutPrefix(key, tagPrefix); ok {
		return c.SetTag(name, value)
	}
	s, ok := settable[key]
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}
	if err := s.set(c, value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

// SetTag points name at a snapshot id. An empty id removes the tag.
func (c *Config) SetTag(name, id string) error {
	if name == "" || strings.ContainsAny(name, " \t\n=") {
		return fmt.Errorf("invalid tag name: %q", name)
	}
	if c.Tags == nil {
		c.Tags = map[string]string{}
	}
	if id == "" {
		delete(c.Tags, name)
		return nil
	}
	c.Tags[name] = id
	return nil
}

// TagsFor returns the tag names pointing at id, sorted.
func (c *Config) TagsFor(id string) []string {
	var names []string
	for name, target := range c.Tags {
		if target == id {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func oneOf(v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("%q is not one of %s", v, strings.Join(allowed, ", "))
}

func parseNonNegative(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", v)
	}
	if n < 0 {
		return 0, fmt.Errorf("%d is negative", n)
	}
	return n, nil
}

func parseBool(v string, dst *bool) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%q is not a boolean", v)
	}
	*dst = b
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
// Keys missing from the input keep their default values.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	cfg := NewConfig("")
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Tags == nil {
		cfg.Tags = map[string]string{}
	}
	return cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path through a temp file and rename.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".tmp-config-*")
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	tmpPath := f.Name()
	defer os.Remove(tmpPath)

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		f.Close()
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing config file: %w", err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

// Save overwrites the config file at path.
func Save(path string, cfg *Config) error {
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}
