package rules

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const ruleColumns = `rule_id, COALESCE(field_name, ''), COALESCE(operator, ''),
		COALESCE(rule_value, ''), COALESCE(automatable, false), COALESCE(category, ''),
		COALESCE(description, ''), COALESCE(action, ''), COALESCE(severity, '')`

// PostgresRuleStore implements RuleStore over the procurement_rules table.
// Only active rules are visible; catalog order is insertion order. Delete
// deactivates a row instead of removing it, so a rule ID is never reused.
type PostgresRuleStore struct {
	db *sql.DB
}

// NewPostgresRuleStore creates a PostgreSQL-backed RuleStore
func NewPostgresRuleStore(db *sql.DB) *PostgresRuleStore {
	return &PostgresRuleStore{db: db}
}

// Add inserts a new active rule
func (s *PostgresRuleStore) Add(rule *Rule) error {
	if rule.ID == "" {
		return fmt.Errorf("rule ID is required")
	}

	_, err := s.db.Exec(`
		INSERT INTO procurement_rules
			(rule_id, field_name, operator, rule_value, automatable, category, description, action, severity, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, true, NOW())
	`, rule.ID, rule.Field, string(rule.Operator), rule.Value, rule.Automatable,
		rule.Category, rule.Description, rule.Action, rule.Severity)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrRuleExists, rule.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	return nil
}

// Get retrieves an active rule by ID
func (s *PostgresRuleStore) Get(id string) (*Rule, error) {
	row := s.db.QueryRow(`SELECT `+ruleColumns+` FROM procurement_rules WHERE rule_id = $1 AND active = true`, id)

	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return rule, nil
}

// List returns all active rules in catalog order
func (s *PostgresRuleStore) List() ([]*Rule, error) {
	rows, err := s.db.Query(`
		SELECT ` + ruleColumns + `
		FROM procurement_rules
		WHERE active = true
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var catalog []*Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		catalog = append(catalog, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return catalog, nil
}

// Update rewrites an active rule in place
func (s *PostgresRuleStore) Update(rule *Rule) error {
	result, err := s.db.Exec(`
		UPDATE procurement_rules
		SET field_name = $2, operator = $3, rule_value = $4, automatable = $5,
			category = $6, description = $7, action = $8, severity = $9
		WHERE rule_id = $1 AND active = true
	`, rule.ID, rule.Field, string(rule.Operator), rule.Value, rule.Automatable,
		rule.Category, rule.Description, rule.Action, rule.Severity)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	return expectRow(result, rule.ID)
}

// Delete deactivates a rule
func (s *PostgresRuleStore) Delete(id string) error {
	result, err := s.db.Exec(`
		UPDATE procurement_rules SET active = false
		WHERE rule_id = $1 AND active = true
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	return expectRow(result, id)
}

func expectRow(result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*Rule, error) {
	var (
		r  Rule
		op string
	)
	if err := row.Scan(&r.ID, &r.Field, &op, &r.Value, &r.Automatable,
		&r.Category, &r.Description, &r.Action, &r.Severity); err != nil {
		return nil, err
	}
	r.Operator = Operator(op)
	return &r, nil
}
