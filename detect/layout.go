package detect

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"modsecdb/core"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed layout_schema.json
var layoutSchema []byte

// DefaultTablePrefix prefixes derived per-category table names.
const DefaultTablePrefix = "rules_"

// Layout lists the per-category output tables. Its category order is the
// score column order.
type Layout struct {
	Categories []core.CategoryTable `yaml:"categories" validate:"dive"`
}

// LoadLayout reads a YAML layout file, validating it against the embedded
// JSON schema before decoding.
func LoadLayout(filename string, logger *zap.SugaredLogger) (*Layout, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}
	layout, err := ParseLayout(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	logger.Infow("Loaded category layout", "file", filename, "categories", len(layout.Categories))
	return layout, nil
}

// ParseLayout decodes and validates YAML layout data.
func ParseLayout(data []byte) (*Layout, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(layoutSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to validate layout against schema: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidLayout, strings.Join(msgs, "; "))
	}

	var layout Layout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	for i := range layout.Categories {
		if layout.Categories[i].Table == "" {
			layout.Categories[i].Table = DefaultTablePrefix + layout.Categories[i].Name
		}
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return &layout, nil
}

// DeriveLayout builds a layout with one table per catalog category whose
// columns are that category's rule ids.
func DeriveLayout(c *Catalog) *Layout {
	layout := &Layout{}
	for _, name := range c.Categories() {
		layout.Categories = append(layout.Categories, core.CategoryTable{
			Name:  name,
			Table: DefaultTablePrefix + name,
			Rules: c.RulesFor(name),
		})
	}
	return layout
}

// Complete appends derived entries for catalog categories that the layout
// does not mention, and appends catalog rule ids missing from a mentioned
// category's columns, so that every rule the catalog can score has a match
// column.
func (l *Layout) Complete(c *Catalog, logger *zap.SugaredLogger) {
	index := make(map[string]int, len(l.Categories))
	for i, ct := range l.Categories {
		index[ct.Name] = i
	}
	for _, ct := range DeriveLayout(c).Categories {
		i, ok := index[ct.Name]
		if !ok {
			if logger != nil {
				logger.Infow("Category missing from layout, using derived table",
					"category", ct.Name,
					"table", ct.Table,
					"rules", len(ct.Rules))
			}
			l.Categories = append(l.Categories, ct)
			continue
		}

		existing := l.Categories[i]
		has := make(map[string]bool, len(existing.Rules))
		for _, id := range existing.Rules {
			has[id] = true
		}
		var added []string
		for _, id := range ct.Rules {
			if !has[id] {
				added = append(added, id)
			}
		}
		if len(added) == 0 {
			continue
		}
		if logger != nil {
			logger.Infow("Rules missing from layout table, adding columns",
				"category", existing.Name,
				"table", existing.Table,
				"rules", added)
		}
		l.Categories[i].Rules = append(existing.Rules, added...)
	}
}

// Validate checks struct constraints and rejects duplicate category names or
// table names.
func (l *Layout) Validate() error {
	if err := validator.New().Struct(l); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	names := make(map[string]bool)
	tables := make(map[string]bool)
	for _, ct := range l.Categories {
		if names[ct.Name] {
			return fmt.Errorf("%w: duplicate category %q", ErrInvalidLayout, ct.Name)
		}
		names[ct.Name] = true

		// SQLite table names are case-insensitive.
		key := strings.ToLower(ct.Table)
		if tables[key] {
			return fmt.Errorf("%w: duplicate table %q", ErrInvalidLayout, ct.Table)
		}
		tables[key] = true
	}
	return nil
}

// CategoryNames returns the layout's category names in layout order.
func (l *Layout) CategoryNames() []string {
	out := make([]string, 0, len(l.Categories))
	for _, ct := range l.Categories {
		out = append(out, ct.Name)
	}
	return out
}

// Tables returns a copy of the layout entries with rule ids sorted.
func (l *Layout) Tables() []core.CategoryTable {
	out := make([]core.CategoryTable, len(l.Categories))
	for i, ct := range l.Categories {
		rules := append([]string(nil), ct.Rules...)
		sort.Strings(rules)
		out[i] = core.CategoryTable{Name: ct.Name, Table: ct.Table, Rules: rules}
	}
	return out
}
