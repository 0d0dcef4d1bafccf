package config

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type tableFile struct {
	Tables []struct {
		Name string `yaml:"name"`
		Key  string `yaml:"key"`
	} `yaml:"tables"`
}

func loadYAML(cfg *Config, r io.Reader, seen map[string]bool) error {
	var doc tableFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	for i, t := range doc.Tables {
		line := fmt.Sprintf("tables[%d]", i)
		if err := cfg.addTable(TableEntry{Name: t.Name, KeyColumn: t.Key}, line, seen); err != nil {
			return err
		}
	}
	return nil
}
