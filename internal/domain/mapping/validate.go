package mapping

import "fmt"

// ValidationResult is the outcome of evaluating a rule set against a record
type ValidationResult struct {
	// Valid is true when no rule was violated
	Valid bool `json:"valid"`
	// Errors lists every violation; rules are never short-circuited
	Errors []RuleViolation `json:"errors"`
}

// ValidateData evaluates every rule against the record and returns the full
// accumulated violation list. It is used standalone for pre-sync gating; the
// validate transform covers the inline pipeline case.
func ValidateData(record Record, rules []ValidationRule) ValidationResult {
	var violations []RuleViolation
	for _, rule := range rules {
		if v := evaluateRule(record, rule); v != nil {
			violations = append(violations, *v)
		}
	}
	return ValidationResult{Valid: len(violations) == 0, Errors: violations}
}

func evaluateRule(record Record, rule ValidationRule) *RuleViolation {
	value, present := GetPath(record, rule.Field)

	fail := func(message string) *RuleViolation {
		if rule.ErrorMessage != "" {
			message = rule.ErrorMessage
		}
		return &RuleViolation{Field: rule.Field, Message: message}
	}

	switch rule.Type {
	case RuleRequired:
		if !present || value == nil || toString(value) == "" {
			return fail("is required")
		}
	case RuleFormat:
		if !present {
			return nil
		}
		if msg := checkFormat(toString(value), rule.Config.Format); msg != "" {
			return fail(msg)
		}
	case RuleRange:
		if !present {
			return nil
		}
		number, ok := toNumber(value)
		if !ok {
			return fail("is not a number")
		}
		if rule.Config.Min != nil && number < *rule.Config.Min {
			return fail(fmt.Sprintf("must be at least %v", *rule.Config.Min))
		}
		if rule.Config.Max != nil && number > *rule.Config.Max {
			return fail(fmt.Sprintf("must be at most %v", *rule.Config.Max))
		}
	case RuleCustom:
		if rule.Config.Check == nil {
			return fail("custom rule has no check function")
		}
		if err := rule.Config.Check(value); err != nil {
			return fail(err.Error())
		}
	default:
		return fail(fmt.Sprintf("unknown rule type %q", rule.Type))
	}
	return nil
}
