package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"modsecdb/core"
	"modsecdb/dictionary"
)

// Fixed table names.
const (
	MainTable   = "main"
	ScoresTable = "SCORES"
	RunsTable   = "import_runs"
)

// column is one bound column of a record table.
type column struct {
	name    string
	sqlType string
	value   func(*core.Record) any
}

// recordTable is an output table with one row per record, keyed by
// UNIQUE_ID.
type recordTable struct {
	name    string
	columns []column
}

// Schema describes every output table for one category layout.
type Schema struct {
	records    []recordTable
	categories []core.CategoryTable
}

// dictionaryTables overrides the table name for categories whose table is
// not named after the category.
var dictionaryTables = map[dictionary.Category]string{
	dictionary.Category(core.FieldHost): "hosts",
}

// DictionaryTable returns the table that stores category c.
func DictionaryTable(c dictionary.Category) string {
	if name, ok := dictionaryTables[c]; ok {
		return name
	}
	return string(c)
}

// DictionaryCategories lists every dictionary-encoded category.
func DictionaryCategories() []dictionary.Category {
	fields := core.AllEncodedFields()
	out := make([]dictionary.Category, len(fields))
	for i, f := range fields {
		out[i] = dictionary.Category(f)
	}
	return out
}

// NewSchema builds the schema for the given category tables and checks that
// no two output tables share a name.
func NewSchema(categories []core.CategoryTable) (*Schema, error) {
	s := &Schema{
		records:    []recordTable{mainTable(), sectionATable(), idTable(core.SectionB), idTable(core.SectionF), sectionHTable()},
		categories: categories,
	}

	seen := make(map[string]string)
	claim := func(name, owner string) error {
		key := strings.ToLower(name)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: %q used by %s and %s", ErrTableConflict, name, prev, owner)
		}
		seen[key] = owner
		return nil
	}
	for _, t := range s.records {
		if err := claim(t.name, "record table"); err != nil {
			return nil, err
		}
	}
	for _, name := range []string{ScoresTable, RunsTable} {
		if err := claim(name, "fixed table"); err != nil {
			return nil, err
		}
	}
	for _, c := range DictionaryCategories() {
		if err := claim(DictionaryTable(c), "dictionary "+string(c)); err != nil {
			return nil, err
		}
	}
	for _, c := range categories {
		if err := claim(c.Table, "category "+c.Name); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Categories returns the category tables in layout order.
func (s *Schema) Categories() []core.CategoryTable {
	return s.categories
}

// Tables returns every table name the schema creates.
func (s *Schema) Tables() []string {
	var names []string
	for _, t := range s.records {
		names = append(names, t.name)
	}
	for _, c := range DictionaryCategories() {
		names = append(names, DictionaryTable(c))
	}
	for _, c := range s.categories {
		names = append(names, c.Table)
	}
	return append(names, ScoresTable, RunsTable)
}

// Statements returns the DDL for every table.
func (s *Schema) Statements() []string {
	var stmts []string
	for _, t := range s.records {
		defs := []string{"UNIQUE_ID TEXT PRIMARY KEY"}
		for _, c := range t.columns {
			defs = append(defs, quote(c.name)+" "+c.sqlType)
		}
		stmts = append(stmts, createTable(t.name, defs))
	}

	for _, c := range DictionaryCategories() {
		table := DictionaryTable(c)
		stmts = append(stmts, createTable(table, []string{
			quote(table+"_id") + " INTEGER PRIMARY KEY",
			quote(table) + " TEXT NOT NULL",
		}))
	}

	for _, c := range s.categories {
		defs := []string{"UNIQUE_ID TEXT PRIMARY KEY"}
		for _, rule := range c.Rules {
			defs = append(defs, quote(rule)+" INTEGER NOT NULL DEFAULT 0")
		}
		stmts = append(stmts, createTable(c.Table, defs))
	}

	scores := []string{"UNIQUE_ID TEXT PRIMARY KEY", "TOTAL_SCORE INTEGER NOT NULL DEFAULT 0"}
	for _, c := range s.categories {
		scores = append(scores, quote(c.Name)+" INTEGER NOT NULL DEFAULT 0")
	}
	stmts = append(stmts, createTable(ScoresTable, scores))

	stmts = append(stmts, createTable(RunsTable, []string{
		"run_id TEXT PRIMARY KEY",
		"log_file TEXT NOT NULL",
		"started_at DATETIME NOT NULL",
		"finished_at DATETIME",
		"records INTEGER NOT NULL DEFAULT 0",
		"skipped INTEGER NOT NULL DEFAULT 0",
		"duration_ms INTEGER NOT NULL DEFAULT 0",
		"status TEXT NOT NULL DEFAULT 'running'",
	}))
	return stmts
}

// EnsureSchema creates every missing table in one transaction. Existing
// tables are left untouched.
func (s *SQLite) EnsureSchema(ctx context.Context, schema *Schema) error {
	err := s.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, stmt := range schema.Statements() {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create table: %w\nstatement: %s", err, stmt)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Logger.Infow("Schema ready", "tables", len(schema.Statements()))
	return nil
}

func createTable(name string, defs []string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", quote(name), strings.Join(defs, ",\n\t"))
}

// quote returns name as a double-quoted SQL identifier.
func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// columnName derives the detail column for a field. The _b/_f suffixes only
// disambiguate dictionary categories; each detail table belongs to one
// section.
func columnName(f core.Field) string {
	name := strings.TrimSuffix(strings.TrimSuffix(string(f), "_b"), "_f")
	return strings.ToUpper(name)
}

func idColumn(f core.Field) column {
	return column{
		name:    columnName(f) + "_ID",
		sqlType: "INTEGER",
		value:   func(r *core.Record) any { return nullID(r.ID(f)) },
	}
}

func textColumn(name string, get func(*core.Record) string) column {
	return column{
		name:    name,
		sqlType: "TEXT",
		value:   func(r *core.Record) any { return nullText(get(r)) },
	}
}

func fieldColumn(f core.Field) column {
	return textColumn(columnName(f), func(r *core.Record) string { return r.Field(f) })
}

func mainTable() recordTable {
	cols := []column{textColumn("HEADER", func(r *core.Record) string { return r.Header })}
	for _, label := range core.DataSections {
		cols = append(cols, textColumn(label.String(), func(r *core.Record) string { return r.Sections[label] }))
	}
	for _, f := range []core.Field{
		core.FieldSourceIP, core.FieldDestinationIP, core.FieldRequestMethod,
		core.FieldURI, core.FieldHost, core.FieldHTTPStatusCode,
	} {
		cols = append(cols, idColumn(f))
	}
	return recordTable{name: MainTable, columns: cols}
}

func sectionATable() recordTable {
	cols := []column{
		fieldColumn(core.FieldTimestamp),
		{
			name:    "UNIXTIME",
			sqlType: "INTEGER",
			value: func(r *core.Record) any {
				if !r.HasUnixTime {
					return nil
				}
				return r.UnixTime
			},
		},
	}
	for _, f := range core.EncodedFields[core.SectionA] {
		cols = append(cols, idColumn(f))
	}
	return recordTable{name: core.SectionA.String(), columns: cols}
}

func idTable(label core.SectionLabel) recordTable {
	var cols []column
	for _, f := range core.EncodedFields[label] {
		cols = append(cols, idColumn(f))
	}
	return recordTable{name: label.String(), columns: cols}
}

func sectionHTable() recordTable {
	t := idTable(core.SectionH)
	t.columns = append(t.columns, fieldColumn(core.FieldStopwatch), fieldColumn(core.FieldStopwatch2))
	return t
}

// nullID maps the "no value" id to SQL NULL.
func nullID(id int) any {
	if id == 0 {
		return nil
	}
	return int64(id)
}

func nullText(s string) any {
	if s == "" {
		return nil
	}
	return s
}
