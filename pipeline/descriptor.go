package pipeline

import (
	"github.com/andys/stageload/config"
)

// TableDescriptor names a table and its primary-key column.
type TableDescriptor struct {
	Name      string
	KeyColumn string
}

// NewTableDescriptor applies the key naming convention: prefix + table name.
func NewTableDescriptor(name, prefix string) TableDescriptor {
	return TableDescriptor{Name: name, KeyColumn: prefix + name}
}

// DescriptorsFromConfig builds one descriptor per configured table, keeping
// the configured order. An explicit key column overrides the convention.
func DescriptorsFromConfig(cfg *config.Config) []TableDescriptor {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = config.DefaultKeyPrefix
	}

	descriptors := make([]TableDescriptor, 0, len(cfg.Tables))
	for _, entry := range cfg.Tables {
		desc := NewTableDescriptor(entry.Name, prefix)
		if entry.KeyColumn != "" {
			desc.KeyColumn = entry.KeyColumn
		}
		descriptors = append(descriptors, desc)
	}
	return descriptors
}

// Watermark is the highest key already present at the destination.
type Watermark struct {
	Table      string
	LastSeenID int64
}
