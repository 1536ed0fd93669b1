package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"modsecdb/core"
	"modsecdb/dictionary"
	"modsecdb/metrics"

	"go.uber.org/zap"
)

// boundStatement is a prepared insert plus the function producing its
// arguments for one record.
type boundStatement struct {
	table string
	stmt  *sql.Stmt
	args  func(*core.Record) []any
}

// RecordWriter writes complete records into the output tables. Statements
// are prepared once; each transaction rebinds them with Tx.StmtContext.
//
// The pool has a single connection, so no other query may run on the
// database between Begin and Commit.
type RecordWriter struct {
	db      *sql.DB
	records []boundStatement
	dicts   map[dictionary.Category]*sql.Stmt
	logger  *zap.SugaredLogger

	tx      *sql.Tx
	txStmts []*sql.Stmt
}

// NewRecordWriter prepares every output statement for schema. Any failure is
// returned as ErrPrepareStatement and leaves nothing prepared.
func NewRecordWriter(ctx context.Context, s *SQLite, schema *Schema) (w *RecordWriter, err error) {
	w = &RecordWriter{
		db:     s.DB,
		dicts:  make(map[dictionary.Category]*sql.Stmt),
		logger: s.Logger,
	}
	defer func() {
		if err != nil {
			_ = w.Close()
			w = nil
		}
	}()

	prepare := func(table, query string) (*sql.Stmt, error) {
		stmt, err := s.DB.PrepareContext(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("%w for table %s: %v", ErrPrepareStatement, table, err)
		}
		return stmt, nil
	}

	for _, t := range schema.records {
		names := []string{"UNIQUE_ID"}
		for _, c := range t.columns {
			names = append(names, quote(c.name))
		}
		stmt, err := prepare(t.name, insertQuery(t.name, names))
		if err != nil {
			return nil, err
		}
		cols := t.columns
		w.records = append(w.records, boundStatement{
			table: t.name,
			stmt:  stmt,
			args: func(r *core.Record) []any {
				args := make([]any, 0, len(cols)+1)
				args = append(args, r.UniqueID)
				for _, c := range cols {
					args = append(args, c.value(r))
				}
				return args
			},
		})
	}

	for _, c := range schema.categories {
		names := []string{"UNIQUE_ID"}
		for _, rule := range c.Rules {
			names = append(names, quote(rule))
		}
		stmt, err := prepare(c.Table, insertQuery(c.Table, names))
		if err != nil {
			return nil, err
		}
		rules := c.Rules
		w.records = append(w.records, boundStatement{
			table: c.Table,
			stmt:  stmt,
			args: func(r *core.Record) []any {
				args := make([]any, 0, len(rules)+1)
				args = append(args, r.UniqueID)
				for _, rule := range rules {
					args = append(args, r.Scores.Matches[rule])
				}
				return args
			},
		})
	}

	scoreNames := []string{"UNIQUE_ID", "TOTAL_SCORE"}
	for _, c := range schema.categories {
		scoreNames = append(scoreNames, quote(c.Name))
	}
	stmt, err := prepare(ScoresTable, insertQuery(ScoresTable, scoreNames))
	if err != nil {
		return nil, err
	}
	categories := schema.categories
	w.records = append(w.records, boundStatement{
		table: ScoresTable,
		stmt:  stmt,
		args:  func(r *core.Record) []any { return bindScores(r, categories) },
	})

	for _, c := range DictionaryCategories() {
		table := DictionaryTable(c)
		query := fmt.Sprintf("INSERT OR IGNORE INTO %s (%s, %s) VALUES (?, ?)",
			quote(table), quote(table+"_id"), quote(table))
		stmt, err := prepare(table, query)
		if err != nil {
			return nil, err
		}
		w.dicts[c] = stmt
	}

	w.logger.Debugw("Statements prepared", "records", len(w.records), "dictionaries", len(w.dicts))
	return w, nil
}

// bindScores produces the SCORES row: total, then one score per category in
// layout order.
func bindScores(r *core.Record, categories []core.CategoryTable) []any {
	args := make([]any, 0, len(categories)+2)
	args = append(args, r.UniqueID, r.Scores.Total)
	for _, c := range categories {
		args = append(args, r.Scores.Categories[c.Name])
	}
	return args
}

func insertQuery(table string, columns []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		quote(table), strings.Join(columns, ", "), placeholders)
}

// Begin opens the import transaction.
func (w *RecordWriter) Begin(ctx context.Context) error {
	if w.tx != nil {
		return ErrTransactionOpen
	}
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	w.tx = tx
	w.txStmts = make([]*sql.Stmt, len(w.records))
	for i, b := range w.records {
		w.txStmts[i] = tx.StmtContext(ctx, b.stmt)
	}
	return nil
}

// WriteRecord executes every record statement for rec. A record without a
// unique id is rejected with core.ErrMissingUniqueID before anything is
// written. A failing statement is logged and counted; the remaining
// statements still run.
func (w *RecordWriter) WriteRecord(ctx context.Context, rec *core.Record) error {
	if w.tx == nil {
		return ErrNoTransaction
	}
	if rec.UniqueID == "" {
		return core.ErrMissingUniqueID
	}

	for i, b := range w.records {
		if _, err := w.txStmts[i].ExecContext(ctx, b.args(rec)...); err != nil {
			metrics.StatementErrors.WithLabelValues(b.table).Inc()
			w.logger.Errorw("Statement failed",
				"unique_id", rec.UniqueID,
				"table", b.table,
				"error", err)
		}
	}
	return nil
}

// InsertPairs writes dictionary entries with insert-if-absent semantics.
func (w *RecordWriter) InsertPairs(ctx context.Context, c dictionary.Category, entries []dictionary.Entry) error {
	if w.tx == nil {
		return ErrNoTransaction
	}
	stmt, ok := w.dicts[c]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, c)
	}

	txStmt := w.tx.StmtContext(ctx, stmt)
	defer txStmt.Close()
	for _, e := range entries {
		if _, err := txStmt.ExecContext(ctx, e.ID, e.Key); err != nil {
			metrics.StatementErrors.WithLabelValues(DictionaryTable(c)).Inc()
			return fmt.Errorf("failed to insert %s entry %d: %w", c, e.ID, err)
		}
	}
	return nil
}

// Commit commits the open transaction.
func (w *RecordWriter) Commit(_ context.Context) error {
	if w.tx == nil {
		return ErrNoTransaction
	}
	tx := w.tx
	w.tx, w.txStmts = nil, nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback discards the open transaction. It is a no-op without one.
func (w *RecordWriter) Rollback() error {
	if w.tx == nil {
		return nil
	}
	tx := w.tx
	w.tx, w.txStmts = nil, nil
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// Close rolls back any open transaction and releases the prepared
// statements.
func (w *RecordWriter) Close() error {
	err := w.Rollback()
	for _, b := range w.records {
		_ = b.stmt.Close()
	}
	for _, stmt := range w.dicts {
		_ = stmt.Close()
	}
	w.records, w.dicts = nil, nil
	return err
}
