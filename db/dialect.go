package db

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/andys/stageload/config"
)

// dialect holds the vendor-specific SQL rendering rules.
type dialect struct {
	dbType DBType
	// backslashEscapes is set when the engine treats '\' inside string
	// literals as an escape character.
	backslashEscapes bool
	numericBools     bool
	timeLayout       string
	listColumns      string
}

func dialectFor(dbType DBType) dialect {
	switch dbType {
	case MySQL:
		return dialect{
			dbType:           MySQL,
			backslashEscapes: true,
			timeLayout:       "2006-01-02 15:04:05.999999",
			listColumns: `
        SELECT COLUMN_NAME
        FROM information_schema.COLUMNS
        WHERE TABLE_SCHEMA = DATABASE()
            AND TABLE_NAME = ?
        ORDER BY ORDINAL_POSITION`,
		}
	case PostgreSQL:
		return dialect{
			dbType:     PostgreSQL,
			timeLayout: "2006-01-02 15:04:05.999999-07:00",
			listColumns: `
        SELECT column_name
        FROM information_schema.columns
        WHERE table_schema = current_schema()
            AND table_name = $1
        ORDER BY ordinal_position`,
		}
	case SQLServer:
		return dialect{
			dbType:       SQLServer,
			numericBools: true,
			timeLayout:   "2006-01-02T15:04:05.9999999-07:00",
			listColumns: `
        SELECT COLUMN_NAME
        FROM INFORMATION_SCHEMA.COLUMNS
        WHERE TABLE_SCHEMA = SCHEMA_NAME()
            AND TABLE_NAME = @p1
        ORDER BY ORDINAL_POSITION`,
		}
	case Snowflake:
		return dialect{
			dbType:           Snowflake,
			backslashEscapes: true,
			timeLayout:       "2006-01-02 15:04:05.999999999 -07:00",
			listColumns: `
        SELECT COLUMN_NAME
        FROM INFORMATION_SCHEMA.COLUMNS
        WHERE TABLE_SCHEMA = CURRENT_SCHEMA()
            AND UPPER(TABLE_NAME) = UPPER(?)
        ORDER BY ORDINAL_POSITION`,
		}
	default:
		return dialect{
			dbType:       SQLite,
			numericBools: true,
			timeLayout:   "2006-01-02 15:04:05.999999999-07:00",
			listColumns:  `SELECT name FROM pragma_table_info(?) ORDER BY cid`,
		}
	}
}

// placeholder returns the bind parameter marker for the n-th argument (1-based).
func (d dialect) placeholder(n int) string {
	switch d.dbType {
	case PostgreSQL:
		return fmt.Sprintf("$%d", n)
	case SQLServer:
		return fmt.Sprintf("@p%d", n)
	default:
		return "?"
	}
}

// identifier renders a table or column name. Without quoting the name is
// written bare so the engine applies its own case folding.
func (d dialect) identifier(name string, quote bool) (string, error) {
	if !quote {
		if !config.IsIdentifier(name) {
			return "", fmt.Errorf("identifier %q needs quoting", name)
		}
		return name, nil
	}
	if name == "" {
		return "", fmt.Errorf("empty identifier")
	}
	return escapeIdentifier(name, d.dbType), nil
}

func escapeIdentifier(identifier string, dbType DBType) string {
	switch dbType {
	case MySQL:
		return "`" + strings.ReplaceAll(identifier, "`", "``") + "`"
	case SQLServer:
		return "[" + strings.ReplaceAll(identifier, "]", "]]") + "]"
	default:
		return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
	}
}

func (d dialect) identifiers(names []string, quote bool) ([]string, error) {
	escaped := make([]string, len(names))
	for i, name := range names {
		id, err := d.identifier(name, quote)
		if err != nil {
			return nil, err
		}
		escaped[i] = id
	}
	return escaped, nil
}

// quoteString renders s as a string literal, doubling embedded quotes.
func (d dialect) quoteString(s string) string {
	if d.backslashEscapes {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	quoted := "'" + strings.ReplaceAll(s, "'", "''") + "'"
	if d.dbType == SQLServer {
		// Unicode literal, otherwise non-ASCII text takes the database code page
		return "N" + quoted
	}
	return quoted
}

func (d dialect) boolLiteral(b bool) string {
	switch {
	case d.numericBools && b:
		return "1"
	case d.numericBools:
		return "0"
	case b:
		return "TRUE"
	default:
		return "FALSE"
	}
}

func (d dialect) binaryLiteral(b []byte) string {
	h := hex.EncodeToString(b)
	switch d.dbType {
	case PostgreSQL:
		return `'\x` + h + `'::bytea`
	case SQLServer:
		return "0x" + h
	case Snowflake:
		return "TO_BINARY('" + h + "', 'HEX')"
	default:
		return "X'" + h + "'"
	}
}
