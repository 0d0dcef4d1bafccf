package db

import "strings"

// ColumnSet is the ordered column list of a table as the source defines it
// at extraction time. Order binds positionally to Row values.
type ColumnSet []string

// Lookup finds name in the set. Bare identifiers are matched
// case-insensitively since the engine folds them.
func (cs ColumnSet) Lookup(name string, caseSensitive bool) (string, bool) {
	for _, col := range cs {
		if col == name || (!caseSensitive && strings.EqualFold(col, name)) {
			return col, true
		}
	}
	return "", false
}

// Duplicate returns the first column name that appears twice, if any.
func (cs ColumnSet) Duplicate() (string, bool) {
	seen := make(map[string]bool, len(cs))
	for _, col := range cs {
		if seen[col] {
			return col, true
		}
		seen[col] = true
	}
	return "", false
}

// Row holds one value per column of its ColumnSet.
type Row []any

// Batch is every newly extracted row of one table in one run.
type Batch struct {
	Table   string
	Columns ColumnSet
	Rows    []Row
}
