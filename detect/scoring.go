package detect

import (
	"regexp"
	"sort"

	"modsecdb/core"
	"modsecdb/metrics"

	"go.uber.org/zap"
)

// ruleIDPattern matches the rule id tag ModSecurity writes into trailer
// messages, e.g. [id "950001"].
var ruleIDPattern = regexp.MustCompile(`\[id\s"(\d{6})"\]`)

// ExtractRuleMatches returns every rule id reported in the trailer text with
// its number of occurrences, ordered by first appearance.
func ExtractRuleMatches(trailer string) []core.RuleMatch {
	found := ruleIDPattern.FindAllStringSubmatch(trailer, -1)
	if len(found) == 0 {
		return nil
	}
	index := make(map[string]int)
	var matches []core.RuleMatch
	for _, m := range found {
		id := m[1]
		if i, ok := index[id]; ok {
			matches[i].Count++
			continue
		}
		index[id] = len(matches)
		matches = append(matches, core.RuleMatch{RuleID: id, Count: 1})
	}
	return matches
}

// Scorer turns trailer rule matches into weighted per-category scores.
type Scorer struct {
	catalog    *Catalog
	categories []string
	logger     *zap.SugaredLogger
}

// NewScorer creates a scorer. The known categories are the union of the
// catalog's categories and those named by the layout, so a layout category
// with no weighted rules still gets a zero score.
func NewScorer(catalog *Catalog, layout *Layout, logger *zap.SugaredLogger) *Scorer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	seen := make(map[string]bool)
	var categories []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			categories = append(categories, name)
		}
	}
	if layout != nil {
		for _, name := range layout.CategoryNames() {
			add(name)
		}
	}
	for _, name := range catalog.Categories() {
		add(name)
	}
	sort.Strings(categories)

	return &Scorer{catalog: catalog, categories: categories, logger: logger}
}

// Categories returns every known category in sorted order.
func (s *Scorer) Categories() []string {
	out := make([]string, len(s.categories))
	copy(out, s.categories)
	return out
}

// NewScorecard returns a zeroed scorecard covering every known category.
func (s *Scorer) NewScorecard() core.Scorecard {
	return core.NewScorecard(s.categories)
}

// Score computes a fresh scorecard for one trailer. Rule ids missing from the
// catalog are counted in Matches but excluded from the scores, with a
// warning that names the record.
func (s *Scorer) Score(uniqueID, trailer string) core.Scorecard {
	sc := s.NewScorecard()
	for _, m := range ExtractRuleMatches(trailer) {
		sc.Matches[m.RuleID] = m.Count

		rule, ok := s.catalog.Lookup(m.RuleID)
		if !ok {
			metrics.RuleLookupMisses.Inc()
			s.logger.Warnw("Rule id not found in catalog",
				"unique_id", uniqueID,
				"rule_id", m.RuleID,
				"count", m.Count)
			continue
		}
		sc.Categories[rule.Category] += m.Count * rule.Weight
	}
	for _, v := range sc.Categories {
		sc.Total += v
	}
	return sc
}
