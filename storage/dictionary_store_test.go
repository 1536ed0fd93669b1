package storage

import (
	"context"
	"testing"

	"modsecdb/dictionary"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDictionaryFlushReseedThroughDatabase(t *testing.T) {
	s, schema := setupTestSchema(t)
	w := newTestWriter(t, s, schema)
	ctx := context.Background()
	logger := zap.NewNop().Sugar()

	first := dictionary.New(logger)
	require.NoError(t, s.SeedDictionary(ctx, first))
	keys := []string{"www.example.com", "api.example.com", "www.example.com"}
	want := make(map[string]int)
	for _, k := range keys {
		want[k] = first.Resolve("host", k)
	}
	ua := first.Resolve("user_agent", "curl/8.0")

	require.NoError(t, w.Begin(ctx))
	require.NoError(t, first.FlushAll(ctx, w))
	require.NoError(t, w.Commit(ctx))

	second := dictionary.New(logger)
	require.NoError(t, s.SeedDictionary(ctx, second))
	for k, id := range want {
		got, ok := second.Lookup("host", k)
		assert.True(t, ok)
		assert.Equal(t, id, got)
	}
	got, ok := second.Lookup("user_agent", "curl/8.0")
	assert.True(t, ok)
	assert.Equal(t, ua, got)

	// New keys continue above the persisted maximum.
	assert.Equal(t, 3, second.Resolve("host", "cdn.example.com"))
	assert.Empty(t, second.Pending("user_agent"))
}

func TestSeedDictionaryEmptyDatabase(t *testing.T) {
	s, _ := setupTestSchema(t)
	d := dictionary.New(nil)

	require.NoError(t, s.SeedDictionary(context.Background(), d))
	assert.Equal(t, 1, d.Resolve("source_ip", "10.0.0.1"))
}

func TestSeedDictionaryKeyStoredUnderSeveralIDs(t *testing.T) {
	s, _ := setupTestSchema(t)
	ctx := context.Background()

	_, err := s.DB.Exec(`INSERT INTO "hosts" ("hosts_id", "hosts") VALUES (9, 'x.example'), (7, 'x.example')`)
	require.NoError(t, err)

	pairs, maxID, err := s.LoadDictionaryPairs(ctx, "host")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"x.example": 7}, pairs)
	assert.Equal(t, 9, maxID)

	d := dictionary.New(nil)
	require.NoError(t, s.SeedDictionary(ctx, d))
	id, ok := d.Lookup("host", "x.example")
	assert.True(t, ok)
	assert.Equal(t, 7, id)

	// Neither persisted id is handed out again.
	assert.Equal(t, 10, d.Resolve("host", "y.example"))
}

func TestLoadDictionaryPairsMissingTable(t *testing.T) {
	s := setupTestDB(t)

	_, _, err := s.LoadDictionaryPairs(context.Background(), "host")
	assert.Error(t, err)
}
