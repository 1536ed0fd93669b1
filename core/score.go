package core

import "sort"

// RuleMatch is a rule identifier together with the number of times it was
// reported in one record's trailer.
type RuleMatch struct {
	RuleID string
	Count  int
}

// CategoryTable describes the per-category output table: the category's score
// column name, the table that stores per-rule match counts, and the rule ids
// that make up that table's columns.
type CategoryTable struct {
	Name  string   `yaml:"name" json:"name" validate:"required,max=64"`
	Table string   `yaml:"table" json:"table" validate:"required,max=64"`
	Rules []string `yaml:"rules" json:"rules" validate:"dive,numeric,min=5,max=6"`
}

// Scorecard holds one record's rule-match counts and weighted scores.
// Every known category is present in Categories, including those that scored
// zero. A Scorecard is rebuilt for each record and never reused.
type Scorecard struct {
	Matches    map[string]int
	Categories map[string]int
	Total      int
}

// NewScorecard returns a scorecard with every category initialized to zero.
func NewScorecard(categories []string) Scorecard {
	sc := Scorecard{
		Matches:    make(map[string]int),
		Categories: make(map[string]int, len(categories)),
	}
	for _, c := range categories {
		sc.Categories[c] = 0
	}
	return sc
}

// IsZero reports whether the scorecard holds no matches and no score.
func (s Scorecard) IsZero() bool {
	if s.Total != 0 || len(s.Matches) != 0 {
		return false
	}
	for _, v := range s.Categories {
		if v != 0 {
			return false
		}
	}
	return true
}

// CategoryNames returns the scorecard's categories in sorted order.
func (s Scorecard) CategoryNames() []string {
	names := make([]string, 0, len(s.Categories))
	for name := range s.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
