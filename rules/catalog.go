package rules

import (
	"strings"

	"github.com/liamcoop/prrules/tabular"
)

// RuleFromRow builds a Rule from one catalog row. Missing columns leave the
// corresponding field empty; such rules are inert during evaluation.
func RuleFromRow(row map[string]string) *Rule {
	return &Rule{
		ID:          row[ColRuleID],
		Field:       row[ColField],
		Operator:    Operator(row[ColOperator]),
		Value:       row[ColValue],
		Automatable: ParseAutomatable(row[ColAutomatable]),
		Category:    row[ColCategory],
		Description: row[ColDescription],
		Action:      row[ColAction],
		Severity:    row[ColSeverity],
	}
}

// CatalogFromRows converts catalog rows to rules, preserving order
func CatalogFromRows(rows []map[string]string) []*Rule {
	catalog := make([]*Rule, 0, len(rows))
	for _, row := range rows {
		catalog = append(catalog, RuleFromRow(row))
	}
	return catalog
}

// LoadCatalogFile reads a rule catalog CSV
func LoadCatalogFile(path string) ([]*Rule, error) {
	rows, err := tabular.ReadTable(path)
	if err != nil {
		return nil, err
	}
	return CatalogFromRows(rows), nil
}

// FilterByCategory returns the rules of catalog whose category matches,
// ignoring case and surrounding whitespace, in catalog order
func FilterByCategory(catalog []*Rule, category string) []*Rule {
	category = strings.TrimSpace(category)
	out := []*Rule{}
	for _, rule := range catalog {
		if strings.EqualFold(strings.TrimSpace(rule.Category), category) {
			out = append(out, rule)
		}
	}
	return out
}

// RecordsFromRows converts table rows to records, preserving order
func RecordsFromRows(rows []map[string]string) []Record {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, Record(row))
	}
	return records
}

// LoadRecordsFile reads a purchase request/order CSV
func LoadRecordsFile(path string) ([]Record, error) {
	rows, err := tabular.ReadTable(path)
	if err != nil {
		return nil, err
	}
	return RecordsFromRows(rows), nil
}
