package storage

import (
	"context"
	"strings"
	"testing"

	"modsecdb/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, s *SQLite, name string) bool {
	t.Helper()
	var n int
	require.NoError(t, s.DB.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n))
	return n == 1
}

func columnNames(t *testing.T, s *SQLite, table string) []string {
	t.Helper()
	rows, err := s.DB.Query("SELECT name FROM pragma_table_info(?)", table)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestEnsureSchemaCreatesTables(t *testing.T) {
	s, schema := setupTestSchema(t)

	for _, name := range schema.Tables() {
		assert.True(t, tableExists(t, s, name), "table %s", name)
	}
	assert.True(t, tableExists(t, s, "hosts"))
	assert.False(t, tableExists(t, s, "host"))

	// Creating again is a no-op.
	require.NoError(t, s.EnsureSchema(context.Background(), schema))
}

func TestSchemaColumns(t *testing.T) {
	s, _ := setupTestSchema(t)

	assert.Equal(t, []string{"UNIQUE_ID", "TOTAL_SCORE", "sql_injection", "trojans"}, columnNames(t, s, ScoresTable))
	assert.Equal(t, []string{"UNIQUE_ID", "950110", "950921"}, columnNames(t, s, "CRS_45_TROJANS"))
	assert.Equal(t, []string{"hosts_id", "hosts"}, columnNames(t, s, "hosts"))

	a := columnNames(t, s, "A")
	assert.Equal(t, []string{"UNIQUE_ID", "TIMESTAMP", "UNIXTIME", "SOURCE_IP_ID", "SOURCE_PORT_ID", "DESTINATION_IP_ID", "DESTINATION_PORT_ID"}, a)

	f := columnNames(t, s, "F")
	assert.Contains(t, f, "HTTP_VERSION_ID")
	assert.Contains(t, f, "EXPIRES_ID")
	assert.Contains(t, f, "CACHE_CONTROL_ID")

	h := columnNames(t, s, "H")
	assert.Contains(t, h, "MESSAGES_ID")
	assert.Contains(t, h, "STOPWATCH")
	assert.Contains(t, h, "STOPWATCH2")

	mainCols := columnNames(t, s, MainTable)
	assert.Equal(t, []string{"UNIQUE_ID", "HEADER", "A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K"}, mainCols[:13])
	assert.Contains(t, mainCols, "HOST_ID")
}

func TestNewSchemaRejectsConflicts(t *testing.T) {
	tests := []struct {
		name  string
		table string
	}{
		{"dictionary table", "hosts"},
		{"scores case-insensitive", "scores"},
		{"section table", "a"},
		{"runs table", "import_runs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchema([]core.CategoryTable{{Name: "x", Table: tt.table, Rules: []string{"950001"}}})
			assert.ErrorIs(t, err, ErrTableConflict)
		})
	}
}

func TestSchemaStatementsQuoteIdentifiers(t *testing.T) {
	schema, err := NewSchema(testCategories)
	require.NoError(t, err)

	var found bool
	for _, stmt := range schema.Statements() {
		if strings.Contains(stmt, `"CRS_45_TROJANS"`) {
			found = true
			assert.Contains(t, stmt, `"950110" INTEGER NOT NULL DEFAULT 0`)
		}
	}
	assert.True(t, found)
}

func TestDictionaryTable(t *testing.T) {
	assert.Equal(t, "hosts", DictionaryTable("host"))
	assert.Equal(t, "user_agent", DictionaryTable("user_agent"))
	assert.Len(t, DictionaryCategories(), len(core.AllEncodedFields()))
}
