package rules

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxNameLength bounds rule IDs and field names accepted through ValidateRule
const maxNameLength = 100

// ValidateRule checks a rule submitted for storage. Catalog files are not
// validated: incomplete rows load as inert rules that never match.
func ValidateRule(rule *Rule) error {
	if rule == nil {
		return fmt.Errorf("rule is required")
	}
	if err := validateName("rule_id", rule.ID); err != nil {
		return err
	}
	if err := validateName("field", rule.Field); err != nil {
		return err
	}

	switch rule.Operator {
	case OpEquals, OpGreaterThan, OpLessThan:
	case "":
		return fmt.Errorf("operator is required")
	default:
		return fmt.Errorf("unsupported operator %q (use %s, %s or %s)",
			rule.Operator, OpEquals, OpGreaterThan, OpLessThan)
	}

	return nil
}

func validateName(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%s is required", kind)
	}
	if n := utf8.RuneCountInString(name); n > maxNameLength {
		return fmt.Errorf("%s length %d exceeds maximum of %d characters", kind, n, maxNameLength)
	}
	if strings.TrimSpace(name) != name {
		return fmt.Errorf("%s %q has leading/trailing whitespace", kind, name)
	}
	return nil
}
