package rules

import "strings"

// Operator names the comparison a rule applies to a record field
type Operator string

const (
	OpEquals      Operator = "equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
)

// Catalog column names
const (
	ColRuleID      = "rule_id"
	ColField       = "field"
	ColOperator    = "operator"
	ColValue       = "value"
	ColAutomatable = "automatable"
	ColCategory    = "category"
	ColDescription = "description"
	ColAction      = "action"
	ColSeverity    = "severity"
)

// RecordIDField is the column that identifies a purchase request/order row
const RecordIDField = "pr_id"

// Rule represents a single catalog entry: one field/operator/value condition
// and whether a match on it can be handled without manual review
type Rule struct {
	ID          string   `json:"rule_id"`
	Field       string   `json:"field"`
	Operator    Operator `json:"operator"`
	Value       string   `json:"value"`
	Automatable bool     `json:"automatable"`

	// Descriptive columns, carried through but never evaluated
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
	Action      string `json:"action,omitempty"`
	Severity    string `json:"severity,omitempty"`
}

// Record is one purchase request/order row, keyed by column name
type Record map[string]string

// ID returns the record's pr_id, or "" when the column is absent
func (r Record) ID() string {
	return r[RecordIDField]
}

// MatchResult lists the rules that matched one record, in catalog order
type MatchResult struct {
	PRID         string   `json:"pr_id"`
	MatchedRules []string `json:"matched_rules"`
}

// Run is the outcome of matching a set of records against a catalog
type Run struct {
	Results            []MatchResult `json:"results"`
	Records            int           `json:"records_processed"`
	Checks             int           `json:"rule_checks"`
	AutomatableMatches int           `json:"automatable_matches"`
}

// AutomatablePercent returns the share of checks that were automatable
// matches, as a percentage. It is 0 when no checks ran.
func (r *Run) AutomatablePercent() float64 {
	if r.Checks == 0 {
		return 0
	}
	return float64(r.AutomatableMatches) / float64(r.Checks) * 100
}

// ParseAutomatable reports whether a catalog flag reads as "true",
// ignoring case and surrounding whitespace
func ParseAutomatable(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}
