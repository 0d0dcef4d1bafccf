package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DefaultKeyPrefix is prepended to a table name to form its key column.
const DefaultKeyPrefix = "ID_"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// Config holds the replication settings
type Config struct {
	SourceURL        string
	DestinationURL   string
	ConfigFile       string
	EnvFile          string
	Debug            bool
	Verbose          bool
	WorkerCount      int
	Timeout          time.Duration
	KeyPrefix        string
	RowsPerStatement int
	QuoteIdentifiers bool
	Schedule         string
	Tables           []TableEntry
}

// TableEntry is one line of the table file. KeyColumn is empty unless the
// line overrides the naming convention.
type TableEntry struct {
	Name      string
	KeyColumn string
}

// IsIdentifier reports whether name can be written into SQL without quoting.
func IsIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// LoadConfig reads the ordered table list from filename. Files ending in
// .yaml or .yml hold a "tables" list of {name, key} entries; any other file
// names one table per non-empty, non-comment line, optionally followed by
// ": key_column".
func LoadConfig(cfg *Config, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	defer file.Close()

	cfg.Tables = make([]TableEntry, 0)
	seen := make(map[string]bool)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return loadYAML(cfg, file, seen)
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue // Skip empty lines and comments
		}

		// Split on first colon
		parts := strings.SplitN(line, ":", 2)
		entry := TableEntry{Name: strings.TrimSpace(parts[0])}
		if len(parts) == 2 {
			entry.KeyColumn = strings.TrimSpace(parts[1])
			if entry.KeyColumn == "" {
				return fmt.Errorf("empty key column in config line: %s", line)
			}
		}
		if err := cfg.addTable(entry, line, seen); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

func (c *Config) addTable(entry TableEntry, line string, seen map[string]bool) error {
	if entry.Name == "" {
		return fmt.Errorf("empty table name in config line: %s", line)
	}
	if !c.QuoteIdentifiers {
		if !IsIdentifier(entry.Name) {
			return fmt.Errorf("invalid table name in config line (quote identifiers to allow it): %s", line)
		}
		if entry.KeyColumn != "" && !IsIdentifier(entry.KeyColumn) {
			return fmt.Errorf("invalid key column in config line (quote identifiers to allow it): %s", line)
		}
	}
	if seen[entry.Name] {
		return fmt.Errorf("duplicate table in config: %s", entry.Name)
	}
	seen[entry.Name] = true

	c.Tables = append(c.Tables, entry)
	return nil
}

// Validate checks the settings that do not come from the table file.
func (c *Config) Validate() error {
	if c.WorkerCount < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.WorkerCount)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if c.RowsPerStatement < 1 {
		return fmt.Errorf("rows per statement must be at least 1, got %d", c.RowsPerStatement)
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
	return nil
}
