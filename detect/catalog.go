package detect

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// weightLinePattern matches "<rule id> <category> <weight>" with an optional
// trailing comment. Rule ids are five or six digits.
var weightLinePattern = regexp.MustCompile(`^\s*(\d{5,6})\s+(\w+)\s+(-?\d+)\s*(?:#.*)?$`)

// Rule is one rule catalog entry.
type Rule struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Weight   int    `json:"weight"`
}

// Catalog maps rule ids to their scoring category and weight.
type Catalog struct {
	rules map[string]Rule
}

// NewCatalog builds a catalog from rules. Later entries replace earlier ones
// with the same id.
func NewCatalog(rules ...Rule) *Catalog {
	c := &Catalog{rules: make(map[string]Rule, len(rules))}
	for _, r := range rules {
		c.rules[r.ID] = r
	}
	return c
}

// LoadCatalog reads a rule weight file from disk.
func LoadCatalog(filename string, logger *zap.SugaredLogger) (*Catalog, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open rule weight file: %w", err)
	}
	defer f.Close()

	c, err := ParseCatalog(f, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule weight file %s: %w", filename, err)
	}
	logger.Infow("Loaded rule catalog",
		"file", filename,
		"rules", c.Len(),
		"categories", len(c.Categories()))
	return c, nil
}

// ParseCatalog reads weight file lines from r. Blank lines and lines starting
// with '#' are ignored. Malformed lines are skipped with a warning; only read
// errors are returned.
func ParseCatalog(r io.Reader, logger *zap.SugaredLogger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	c := NewCatalog()

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		m := weightLinePattern.FindStringSubmatch(line)
		if m == nil {
			logger.Warnw("Skipping malformed rule weight line", "line", lineNo, "content", line)
			continue
		}
		weight, err := strconv.Atoi(m[3])
		if err != nil {
			logger.Warnw("Skipping rule weight line with invalid weight", "line", lineNo, "content", line, "error", err)
			continue
		}

		rule := Rule{ID: m[1], Category: m[2], Weight: weight}
		if prev, dup := c.rules[rule.ID]; dup {
			logger.Warnw("Duplicate rule id in weight file, keeping last definition",
				"line", lineNo,
				"rule_id", rule.ID,
				"previous_category", prev.Category,
				"category", rule.Category)
		}
		c.rules[rule.ID] = rule
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// Lookup returns the catalog entry for a rule id.
func (c *Catalog) Lookup(id string) (Rule, bool) {
	r, ok := c.rules[id]
	return r, ok
}

// Len returns the number of rules.
func (c *Catalog) Len() int {
	return len(c.rules)
}

// Categories returns the distinct categories referenced by the catalog, sorted.
func (c *Catalog) Categories() []string {
	seen := make(map[string]struct{})
	for _, r := range c.rules {
		seen[r.Category] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RulesFor returns the ids of every rule in a category, sorted.
func (c *Catalog) RulesFor(category string) []string {
	var out []string
	for id, r := range c.rules {
		if r.Category == category {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Rules returns every catalog entry sorted by id.
func (c *Catalog) Rules() []Rule {
	out := make([]Rule, 0, len(c.rules))
	for _, r := range c.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
