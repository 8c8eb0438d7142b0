package crud

import (
	"strings"

	"github.com/conduit-lang/rowmap/internal/orm/schema"
)

// Statements holds the literal SQL of one entity type, with :column parameters.
type Statements struct {
	SelectByID string
	SelectAll  string
	// Insert leaves the identifier to the database
	Insert string
	// InsertWithID binds the identifier too
	InsertWithID string
	Update       string
	Delete       string

	table    string
	idColumn string
}

// BuildStatements renders the statements of cs
func BuildStatements(cs *schema.ColumnSchema) Statements {
	table, id := cs.TableName, cs.IDColumn
	where := " WHERE " + id + " = :" + id

	var generated []string
	for _, column := range cs.InsertableColumns() {
		if column != id {
			generated = append(generated, column)
		}
	}

	return Statements{
		SelectByID:   "SELECT * FROM " + table + where,
		SelectAll:    "SELECT * FROM " + table,
		Insert:       insert(table, generated),
		InsertWithID: insert(table, cs.InsertableColumns()),
		Update:       UpdateStatement(table, id, assignments(cs.UpdatableColumns())),
		Delete:       "DELETE FROM " + table + where,
		table:        table,
		idColumn:     id,
	}
}

// Partial renders an UPDATE of the given SET fragments
func (s Statements) Partial(assignments []string) string {
	return UpdateStatement(s.table, s.idColumn, assignments)
}

// UpdateStatement renders UPDATE table SET assignments WHERE id = :id
func UpdateStatement(table, idColumn string, assignments []string) string {
	return "UPDATE " + table + " SET " + strings.Join(assignments, ", ") + " WHERE " + idColumn + " = :" + idColumn
}

func insert(table string, columns []string) string {
	if len(columns) == 0 {
		return "INSERT INTO " + table + " DEFAULT VALUES"
	}
	params := make([]string, len(columns))
	for i, column := range columns {
		params[i] = ":" + column
	}
	return "INSERT INTO " + table + " (" + strings.Join(columns, ", ") + ") VALUES (" + strings.Join(params, ", ") + ")"
}

func assignments(columns []string) []string {
	result := make([]string, len(columns))
	for i, column := range columns {
		result[i] = column + " = :" + column
	}
	return result
}
