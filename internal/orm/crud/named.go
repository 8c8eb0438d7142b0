package crud

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/conduit-lang/rowmap/internal/orm/ormerrors"
)

// Dialect selects the placeholder style of the target database
type Dialect int

const (
	// Postgres uses $1, $2, ... placeholders and RETURNING
	Postgres Dialect = iota
	// SQLite uses ? placeholders and LastInsertId
	SQLite
	// MySQL uses ? placeholders and LastInsertId
	MySQL
)

// String returns the name of the dialect
func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	case MySQL:
		return "mysql"
	default:
		return "unknown"
	}
}

// DialectFor maps a database/sql driver name to its dialect
func DialectFor(driverName string) (Dialect, error) {
	switch strings.ToLower(driverName) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "mysql":
		return MySQL, nil
	}
	return Postgres, fmt.Errorf("%w: unsupported driver %q", ormerrors.ErrInvalidArgument, driverName)
}

func (d Dialect) placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// supportsReturning reports whether INSERT ... RETURNING yields the new key
func (d Dialect) supportsReturning() bool { return d == Postgres }

// Rebind rewrites the :name parameters of query into the placeholders of the
// dialect and returns the matching positional arguments. Quoted strings,
// quoted identifiers and ::casts are left alone. On Postgres a repeated name
// reuses its placeholder.
func (d Dialect) Rebind(query string, params map[string]interface{}) (string, []interface{}, error) {
	var (
		b       strings.Builder
		args    []interface{}
		indexes = make(map[string]int)
	)
	b.Grow(len(query))

	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'' || c == '"':
			end := strings.IndexByte(query[i+1:], c)
			if end < 0 {
				b.WriteString(query[i:])
				i = len(query)
				continue
			}
			b.WriteString(query[i : i+end+2])
			i += end + 1
		case c == ':' && i+1 < len(query) && query[i+1] == ':':
			b.WriteString("::")
			i++
		case c == ':' && i+1 < len(query) && isNameStart(query[i+1]):
			j := i + 1
			for j < len(query) && isNamePart(query[j]) {
				j++
			}
			name := query[i+1 : j]
			value, ok := params[name]
			if !ok {
				return "", nil, fmt.Errorf("%w: missing parameter %q", ormerrors.ErrInvalidArgument, name)
			}
			if n, seen := indexes[name]; seen && d == Postgres {
				b.WriteString(d.placeholder(n))
			} else {
				args = append(args, value)
				indexes[name] = len(args)
				b.WriteString(d.placeholder(len(args)))
			}
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), args, nil
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNamePart(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}
