package storage

import (
	"context"
	"fmt"

	"modsecdb/dictionary"
)

// LoadDictionaryPairs reads every persisted pair of category c together with
// the highest persisted id. A key stored under several ids keeps its lowest
// one; the others still count towards the highest id.
func (s *SQLite) LoadDictionaryPairs(ctx context.Context, c dictionary.Category) (map[string]int, int, error) {
	table := DictionaryTable(c)
	idCol := quote(table + "_id")
	query := fmt.Sprintf("SELECT %s, %s FROM %s ORDER BY %s", idCol, quote(table), quote(table), idCol)

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query dictionary %s: %w", c, err)
	}
	defer rows.Close()

	pairs := make(map[string]int)
	maxID := 0
	for rows.Next() {
		var (
			id  int
			key string
		)
		if err := rows.Scan(&id, &key); err != nil {
			return nil, 0, fmt.Errorf("failed to scan dictionary %s: %w", c, err)
		}
		if id > maxID {
			maxID = id
		}
		if existing, ok := pairs[key]; ok {
			s.Logger.Warnw("Dictionary key stored under several ids",
				"category", c,
				"key", key,
				"id", existing,
				"duplicate_id", id)
			continue
		}
		pairs[key] = id
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read dictionary %s: %w", c, err)
	}
	return pairs, maxID, nil
}

// SeedDictionary seeds d with every persisted category. It must run before
// the import transaction is opened and before any Resolve.
func (s *SQLite) SeedDictionary(ctx context.Context, d *dictionary.Dictionary) error {
	total := 0
	for _, c := range DictionaryCategories() {
		pairs, maxID, err := s.LoadDictionaryPairs(ctx, c)
		if err != nil {
			return err
		}
		if err := d.Seed(c, pairs); err != nil {
			return fmt.Errorf("failed to seed dictionary %s: %w", c, err)
		}
		if err := d.Reserve(c, maxID); err != nil {
			return fmt.Errorf("failed to seed dictionary %s: %w", c, err)
		}
		if len(pairs) > 0 {
			s.Logger.Debugw("Dictionary seeded", "category", c, "entries", d.Len(c), "max_id", d.MaxID(c))
		}
		total += len(pairs)
	}
	s.Logger.Infow("Dictionaries loaded", "categories", len(DictionaryCategories()), "entries", total)
	return nil
}
