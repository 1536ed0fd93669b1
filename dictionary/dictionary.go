// Package dictionary implements per-category string to integer encoding for
// high-cardinality audit-log values.
//
// Each category (source_ip, user_agent, ...) is an independent mapping. Ids
// start above the highest id already persisted for that category and are never
// reused or renumbered. The empty string always maps to 0, meaning "no value".
package dictionary

import (
	"context"
	"fmt"
	"sort"

	"modsecdb/metrics"

	"go.uber.org/zap"
)

// Category names one dictionary. Categories share names with the encoded
// fields in core.
type Category string

// Entry is a single key and id pair.
type Entry struct {
	Key string
	ID  int
}

// PairWriter persists dictionary entries. Implementations must use insert
// if absent semantics keyed by id so that repeated flushes are harmless.
type PairWriter interface {
	InsertPairs(ctx context.Context, category Category, entries []Entry) error
}

type table struct {
	ids      map[string]int
	used     map[int]struct{}
	maxID    int
	pending  []Entry
	resolved bool
}

func newTable() *table {
	return &table{
		ids:  make(map[string]int),
		used: make(map[int]struct{}),
	}
}

// Dictionary holds every category used during one import run. It is not safe
// for concurrent use; the import pipeline is single threaded.
type Dictionary struct {
	tables map[Category]*table
	logger *zap.SugaredLogger
}

// New creates an empty dictionary.
func New(logger *zap.SugaredLogger) *Dictionary {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Dictionary{
		tables: make(map[Category]*table),
		logger: logger,
	}
}

func (d *Dictionary) table(c Category) *table {
	t, ok := d.tables[c]
	if !ok {
		t = newTable()
		d.tables[c] = t
	}
	return t
}

// Seed loads persisted pairs for a category. It must run before the first
// Resolve in that category. Seeded entries are already durable and are not
// written again by Flush. Pairs with an empty key or a non-positive id, and
// pairs reusing an id already seeded, are skipped with a warning.
func (d *Dictionary) Seed(c Category, pairs map[string]int) error {
	t := d.table(c)
	if t.resolved {
		return fmt.Errorf("%w: %s", ErrSeedAfterResolve, c)
	}

	// Deterministic order so that conflicting pairs are rejected consistently.
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		id := pairs[key]
		if key == "" || id <= 0 {
			d.logger.Warnw("Skipping invalid dictionary entry", "category", c, "key", key, "id", id)
			continue
		}
		if existing, ok := t.ids[key]; ok && existing != id {
			d.logger.Warnw("Skipping conflicting dictionary entry", "category", c, "key", key, "id", id, "existing_id", existing)
			continue
		}
		if _, taken := t.used[id]; taken {
			if t.ids[key] != id {
				d.logger.Warnw("Skipping dictionary entry with duplicate id", "category", c, "key", key, "id", id)
			}
			continue
		}
		t.ids[key] = id
		t.used[id] = struct{}{}
		if id > t.maxID {
			t.maxID = id
		}
	}
	return nil
}

// Reserve raises the next id of category c above id. It covers persisted ids
// whose rows Seed could not take, such as a key stored under several ids, so
// that Resolve never hands those ids out again. It must run before the first
// Resolve in that category.
func (d *Dictionary) Reserve(c Category, id int) error {
	t := d.table(c)
	if t.resolved {
		return fmt.Errorf("%w: %s", ErrSeedAfterResolve, c)
	}
	if id > t.maxID {
		t.maxID = id
	}
	return nil
}

// Resolve returns the id for key in category c, assigning max+1 when the key
// is new. The empty key returns 0 and leaves the dictionary unchanged.
func (d *Dictionary) Resolve(c Category, key string) int {
	if key == "" {
		return 0
	}
	t := d.table(c)
	t.resolved = true
	if id, ok := t.ids[key]; ok {
		return id
	}

	// maxID tracks the largest id ever stored in the category; ids are only
	// ever added, so it always equals the maximum over all entries.
	id := t.maxID + 1
	t.ids[key] = id
	t.used[id] = struct{}{}
	t.maxID = id
	t.pending = append(t.pending, Entry{Key: key, ID: id})
	metrics.DictionaryEntries.WithLabelValues(string(c)).Inc()
	return id
}

// Lookup returns the id for key without assigning a new one.
func (d *Dictionary) Lookup(c Category, key string) (int, bool) {
	if key == "" {
		return 0, false
	}
	t, ok := d.tables[c]
	if !ok {
		return 0, false
	}
	id, ok := t.ids[key]
	return id, ok
}

// Len returns the number of entries in a category.
func (d *Dictionary) Len(c Category) int {
	if t, ok := d.tables[c]; ok {
		return len(t.ids)
	}
	return 0
}

// MaxID returns the highest id held by a category, or 0 when it is empty.
func (d *Dictionary) MaxID(c Category) int {
	if t, ok := d.tables[c]; ok {
		return t.maxID
	}
	return 0
}

// Pending returns a copy of the entries created since the last successful
// flush, in id order.
func (d *Dictionary) Pending(c Category) []Entry {
	t, ok := d.tables[c]
	if !ok || len(t.pending) == 0 {
		return nil
	}
	out := make([]Entry, len(t.pending))
	copy(out, t.pending)
	return out
}

// Pairs returns every key to id mapping in a category.
func (d *Dictionary) Pairs(c Category) map[string]int {
	t, ok := d.tables[c]
	if !ok {
		return map[string]int{}
	}
	out := make(map[string]int, len(t.ids))
	for k, v := range t.ids {
		out[k] = v
	}
	return out
}

// Categories returns every category touched by Seed or Resolve, sorted.
func (d *Dictionary) Categories() []Category {
	out := make([]Category, 0, len(d.tables))
	for c := range d.tables {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Flush writes the category's pending entries through w. Entries are marked
// durable only after w succeeds, so a failed flush can be retried. Ids are
// never changed by flushing.
func (d *Dictionary) Flush(ctx context.Context, c Category, w PairWriter) error {
	if w == nil {
		return ErrNilWriter
	}
	t, ok := d.tables[c]
	if !ok || len(t.pending) == 0 {
		return nil
	}
	if err := w.InsertPairs(ctx, c, t.pending); err != nil {
		return fmt.Errorf("failed to flush dictionary %s: %w", c, err)
	}
	d.logger.Debugw("Flushed dictionary entries", "category", c, "entries", len(t.pending))
	t.pending = nil
	return nil
}

// FlushAll flushes every category, stopping at the first error.
func (d *Dictionary) FlushAll(ctx context.Context, w PairWriter) error {
	for _, c := range d.Categories() {
		if err := d.Flush(ctx, c, w); err != nil {
			return err
		}
	}
	return nil
}
