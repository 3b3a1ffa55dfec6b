package mapping

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Transform Operations
// ---------------------------------------------------------------------------

// TransformKind is the discriminator of the transform operation union
type TransformKind string

const (
	TransformFilter   TransformKind = "filter"
	TransformMap      TransformKind = "map"
	TransformMerge    TransformKind = "merge"
	TransformSplit    TransformKind = "split"
	TransformValidate TransformKind = "validate"
	TransformEnrich   TransformKind = "enrich"
	TransformRedact   TransformKind = "redact"
)

// IsValid returns true if the transform kind is valid
func (k TransformKind) IsValid() bool {
	switch k {
	case TransformFilter, TransformMap, TransformMerge, TransformSplit,
		TransformValidate, TransformEnrich, TransformRedact:
		return true
	default:
		return false
	}
}

// TransformOperation is one stage in an ordered per-record pipeline. Kind
// selects the variant; exactly one of the config fields is set, each carrying
// the strongly-typed configuration of its variant.
type TransformOperation struct {
	// Kind selects the operation variant
	Kind TransformKind `json:"type"`
	// Order positions the operation in the pipeline; values need not be contiguous
	Order int `json:"order"`

	Filter   *FilterConfig   `json:"filter,omitempty"`
	Map      *MapConfig      `json:"map,omitempty"`
	Merge    *MergeConfig    `json:"merge,omitempty"`
	Split    *SplitConfig    `json:"split,omitempty"`
	Validate *ValidateConfig `json:"validate,omitempty"`
	Enrich   *EnrichConfig   `json:"enrich,omitempty"`
	Redact   *RedactConfig   `json:"redact,omitempty"`
}

// FilterOperator is a comparison operator in a filter condition
type FilterOperator string

const (
	OpEq       FilterOperator = "eq"
	OpNe       FilterOperator = "ne"
	OpGt       FilterOperator = "gt"
	OpLt       FilterOperator = "lt"
	OpContains FilterOperator = "contains"
	OpIn       FilterOperator = "in"
)

// FilterConfig evaluates a condition against the input. Arrays are filtered
// element-wise; scalar inputs pass through unchanged or become nil.
type FilterConfig struct {
	Field    string         `json:"field"`
	Operator FilterOperator `json:"operator"`
	Value    any            `json:"value"`
}

// MapKind is a built-in value mapping
type MapKind string

const (
	MapUppercase  MapKind = "uppercase"
	MapLowercase  MapKind = "lowercase"
	MapTrim       MapKind = "trim"
	MapDateFormat MapKind = "date_format"
	MapNumber     MapKind = "number"
	MapBoolean    MapKind = "boolean"
	MapCustom     MapKind = "custom"
)

// MapConfig applies a built-in or custom value mapping. When Field is set the
// mapping applies to that path of a record input; otherwise to the whole
// input value. Array inputs are mapped element-wise.
type MapConfig struct {
	Field string  `json:"field,omitempty"`
	Kind  MapKind `json:"kind"`
	// Custom is the caller-supplied function for kind "custom"
	Custom func(value any) (any, error) `json:"-"`
}

// MergeConfig concatenates the named fields of a record with a separator into
// a new target field. Arrays of records are merged element-wise.
type MergeConfig struct {
	Fields      []string `json:"fields"`
	Separator   string   `json:"separator"`
	TargetField string   `json:"target_field"`
}

// SplitConfig splits a string field by a separator into an array
type SplitConfig struct {
	Field     string `json:"field,omitempty"`
	Separator string `json:"separator"`
}

// ValidateConfig enforces inline checks during the pipeline. All violated
// checks are aggregated into one ValidationError which aborts the pipeline
// for the record.
type ValidateConfig struct {
	// Required lists paths that must be present and non-empty
	Required []string `json:"required,omitempty"`
	// Format maps a path to a built-in format name ("email", "phone")
	Format map[string]string `json:"format,omitempty"`
	// MinLength maps a path to a minimum string length
	MinLength map[string]int `json:"min_length,omitempty"`
	// MaxLength maps a path to a maximum string length
	MaxLength map[string]int `json:"max_length,omitempty"`
}

// EnrichConfig merges static fields into the record and/or stamps a timestamp
type EnrichConfig struct {
	// AddFields are static values merged into each record
	AddFields map[string]any `json:"add_fields,omitempty"`
	// TimestampField, when set, receives the current time in RFC 3339
	TimestampField string `json:"timestamp_field,omitempty"`
}

// RedactConfig masks named fields to a fixed sentinel and/or applies built-in
// pattern redaction ("ssn", "credit_card") to string values.
type RedactConfig struct {
	Fields   []string `json:"fields,omitempty"`
	Patterns []string `json:"patterns,omitempty"`
}

// RedactedSentinel replaces field values masked by name
const RedactedSentinel = "***REDACTED***"

var (
	ssnPattern        = regexp.MustCompile(`\d{3}-\d{2}-\d{4}`)
	creditCardPattern = regexp.MustCompile(`\d{4}[ -]?\d{4}[ -]?\d{4}[ -]?\d{4}`)
	emailPattern      = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phonePattern      = regexp.MustCompile(`^\+?[0-9][0-9 ().\-]{6,}$`)
)

// dateLayouts are the accepted input layouts for date_format, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"02.01.2006",
	time.RFC1123,
}

// ---------------------------------------------------------------------------
// Pipeline Execution
// ---------------------------------------------------------------------------

// ApplyTransformPipeline applies the operations in ascending Order, each
// stage's output feeding the next stage's input. A ValidationError or
// TransformError aborts the pipeline for this record.
func ApplyTransformPipeline(data any, operations []TransformOperation) (any, error) {
	ops := make([]TransformOperation, len(operations))
	copy(ops, operations)
	sort.SliceStable(ops, func(i, j int) bool { return ops[i].Order < ops[j].Order })

	var err error
	for i := range ops {
		data, err = ops[i].Apply(data)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

// Apply executes one operation against its input
func (op *TransformOperation) Apply(data any) (any, error) {
	switch op.Kind {
	case TransformFilter:
		if op.Filter == nil {
			return nil, &TransformError{Kind: op.Kind, Err: errors.New("missing filter config")}
		}
		return applyFilter(data, op.Filter), nil
	case TransformMap:
		if op.Map == nil {
			return nil, &TransformError{Kind: op.Kind, Err: errors.New("missing map config")}
		}
		return applyMap(data, op.Map)
	case TransformMerge:
		if op.Merge == nil {
			return nil, &TransformError{Kind: op.Kind, Err: errors.New("missing merge config")}
		}
		return applyMerge(data, op.Merge), nil
	case TransformSplit:
		if op.Split == nil {
			return nil, &TransformError{Kind: op.Kind, Err: errors.New("missing split config")}
		}
		return applySplit(data, op.Split), nil
	case TransformValidate:
		if op.Validate == nil {
			return nil, &TransformError{Kind: op.Kind, Err: errors.New("missing validate config")}
		}
		if err := applyValidate(data, op.Validate); err != nil {
			return nil, err
		}
		return data, nil
	case TransformEnrich:
		if op.Enrich == nil {
			return nil, &TransformError{Kind: op.Kind, Err: errors.New("missing enrich config")}
		}
		return applyEnrich(data, op.Enrich), nil
	case TransformRedact:
		if op.Redact == nil {
			return nil, &TransformError{Kind: op.Kind, Err: errors.New("missing redact config")}
		}
		return applyRedact(data, op.Redact), nil
	default:
		return nil, &TransformError{Kind: op.Kind, Err: errors.New("unknown transform kind")}
	}
}

// ---------------------------------------------------------------------------
// filter
// ---------------------------------------------------------------------------

func applyFilter(data any, cfg *FilterConfig) any {
	if items, ok := data.([]any); ok {
		kept := make([]any, 0, len(items))
		for _, item := range items {
			if matchesCondition(item, cfg) {
				kept = append(kept, item)
			}
		}
		return kept
	}
	if matchesCondition(data, cfg) {
		return data
	}
	return nil
}

func matchesCondition(item any, cfg *FilterConfig) bool {
	value := item
	if cfg.Field != "" {
		if record, ok := item.(map[string]any); ok {
			value, _ = GetPath(record, cfg.Field)
		}
	}

	switch cfg.Operator {
	case OpEq:
		return looseEqual(value, cfg.Value)
	case OpNe:
		return !looseEqual(value, cfg.Value)
	case OpGt:
		a, aok := toNumber(value)
		b, bok := toNumber(cfg.Value)
		return aok && bok && a > b
	case OpLt:
		a, aok := toNumber(value)
		b, bok := toNumber(cfg.Value)
		return aok && bok && a < b
	case OpContains:
		switch v := value.(type) {
		case string:
			return strings.Contains(v, toString(cfg.Value))
		case []any:
			for _, elem := range v {
				if looseEqual(elem, cfg.Value) {
					return true
				}
			}
		}
		return false
	case OpIn:
		options, ok := cfg.Value.([]any)
		if !ok {
			return false
		}
		for _, option := range options {
			if looseEqual(value, option) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// looseEqual compares scalars across the numeric types JSON decoding produces
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	if an, aok := toNumber(a); aok {
		if bn, bok := toNumber(b); bok {
			return an == bn
		}
	}
	return toString(a) == toString(b)
}

// ---------------------------------------------------------------------------
// map
// ---------------------------------------------------------------------------

func applyMap(data any, cfg *MapConfig) (any, error) {
	if items, ok := data.([]any); ok {
		mapped := make([]any, len(items))
		for i, item := range items {
			result, err := applyMap(item, cfg)
			if err != nil {
				return nil, err
			}
			mapped[i] = result
		}
		return mapped, nil
	}

	if cfg.Field != "" {
		record, ok := data.(map[string]any)
		if !ok {
			return nil, &TransformError{Kind: TransformMap, Field: cfg.Field, Err: errors.New("input is not a record")}
		}
		value, present := GetPath(record, cfg.Field)
		if !present {
			return record, nil
		}
		mapped, err := mapValue(value, cfg)
		if err != nil {
			return nil, &TransformError{Kind: TransformMap, Field: cfg.Field, Err: err}
		}
		SetPath(record, cfg.Field, mapped)
		return record, nil
	}

	mapped, err := mapValue(data, cfg)
	if err != nil {
		return nil, &TransformError{Kind: TransformMap, Err: err}
	}
	return mapped, nil
}

func mapValue(value any, cfg *MapConfig) (any, error) {
	switch cfg.Kind {
	case MapUppercase:
		return strings.ToUpper(toString(value)), nil
	case MapLowercase:
		return strings.ToLower(toString(value)), nil
	case MapTrim:
		return strings.TrimSpace(toString(value)), nil
	case MapDateFormat:
		return canonicalDate(value)
	case MapNumber:
		number, ok := toNumber(value)
		if !ok {
			return nil, fmt.Errorf("cannot coerce %v to number", value)
		}
		return number, nil
	case MapBoolean:
		return toBoolean(value)
	case MapCustom:
		if cfg.Custom == nil {
			return nil, errors.New("custom map has no function")
		}
		return cfg.Custom(value)
	default:
		return nil, fmt.Errorf("unknown map kind %q", cfg.Kind)
	}
}

// IsKnownTransformRef reports whether a named transform reference (as used by
// FieldMapping.Transform) is a built-in map kind.
func IsKnownTransformRef(ref string) bool {
	switch MapKind(ref) {
	case MapUppercase, MapLowercase, MapTrim, MapDateFormat, MapNumber, MapBoolean:
		return true
	default:
		return false
	}
}

// ApplyNamedTransform runs a built-in map kind against a single value. Used
// by field mappings whose transform is referenced by name.
func ApplyNamedTransform(ref string, value any) (any, error) {
	if !IsKnownTransformRef(ref) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransformRef, ref)
	}
	return mapValue(value, &MapConfig{Kind: MapKind(ref)})
}

func canonicalDate(value any) (string, error) {
	if t, ok := value.(time.Time); ok {
		return t.UTC().Format(time.RFC3339), nil
	}
	raw := strings.TrimSpace(toString(value))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format(time.RFC3339), nil
		}
	}
	return "", fmt.Errorf("unparsable date %q", raw)
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func toBoolean(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1", "y", "on":
			return true, nil
		case "false", "no", "0", "n", "off", "":
			return false, nil
		}
		return false, fmt.Errorf("cannot coerce %q to boolean", v)
	default:
		if n, ok := toNumber(value); ok {
			return n != 0, nil
		}
		return false, fmt.Errorf("cannot coerce %v to boolean", value)
	}
}

// ---------------------------------------------------------------------------
// merge / split
// ---------------------------------------------------------------------------

func applyMerge(data any, cfg *MergeConfig) any {
	if items, ok := data.([]any); ok {
		merged := make([]any, len(items))
		for i, item := range items {
			merged[i] = applyMerge(item, cfg)
		}
		return merged
	}

	record, ok := data.(map[string]any)
	if !ok || cfg.TargetField == "" {
		return data
	}
	parts := make([]string, 0, len(cfg.Fields))
	for _, field := range cfg.Fields {
		if value, present := GetPath(record, field); present {
			parts = append(parts, toString(value))
		}
	}
	SetPath(record, cfg.TargetField, strings.Join(parts, cfg.Separator))
	return record
}

func applySplit(data any, cfg *SplitConfig) any {
	separator := cfg.Separator
	if separator == "" {
		separator = ","
	}

	split := func(raw string) []any {
		segments := strings.Split(raw, separator)
		out := make([]any, len(segments))
		for i, s := range segments {
			out[i] = strings.TrimSpace(s)
		}
		return out
	}

	if raw, ok := data.(string); ok {
		return split(raw)
	}
	if record, ok := data.(map[string]any); ok && cfg.Field != "" {
		if value, present := GetPath(record, cfg.Field); present {
			SetPath(record, cfg.Field, split(toString(value)))
		}
		return record
	}
	return data
}

// ---------------------------------------------------------------------------
// validate
// ---------------------------------------------------------------------------

func applyValidate(data any, cfg *ValidateConfig) error {
	record, ok := data.(map[string]any)
	if !ok {
		return &TransformError{Kind: TransformValidate, Err: errors.New("input is not a record")}
	}

	var violations []RuleViolation
	for _, field := range cfg.Required {
		value, present := GetPath(record, field)
		if !present || value == nil || toString(value) == "" {
			violations = append(violations, RuleViolation{Field: field, Message: "is required"})
		}
	}
	for field, format := range cfg.Format {
		value, present := GetPath(record, field)
		if !present {
			continue
		}
		if msg := checkFormat(toString(value), format); msg != "" {
			violations = append(violations, RuleViolation{Field: field, Message: msg})
		}
	}
	for field, min := range cfg.MinLength {
		if value, present := GetPath(record, field); present {
			if len(toString(value)) < min {
				violations = append(violations, RuleViolation{
					Field:   field,
					Message: fmt.Sprintf("must be at least %d characters", min),
				})
			}
		}
	}
	for field, max := range cfg.MaxLength {
		if value, present := GetPath(record, field); present {
			if len(toString(value)) > max {
				violations = append(violations, RuleViolation{
					Field:   field,
					Message: fmt.Sprintf("must be at most %d characters", max),
				})
			}
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

func checkFormat(value, format string) string {
	switch format {
	case "email":
		if !emailPattern.MatchString(value) {
			return "is not a valid email address"
		}
	case "phone":
		if !phonePattern.MatchString(value) {
			return "is not a valid phone number"
		}
	default:
		return fmt.Sprintf("unknown format %q", format)
	}
	return ""
}

// ---------------------------------------------------------------------------
// enrich / redact
// ---------------------------------------------------------------------------

func applyEnrich(data any, cfg *EnrichConfig) any {
	if items, ok := data.([]any); ok {
		enriched := make([]any, len(items))
		for i, item := range items {
			enriched[i] = applyEnrich(item, cfg)
		}
		return enriched
	}

	record, ok := data.(map[string]any)
	if !ok {
		return data
	}
	for field, value := range cfg.AddFields {
		SetPath(record, field, value)
	}
	if cfg.TimestampField != "" {
		SetPath(record, cfg.TimestampField, time.Now().UTC().Format(time.RFC3339))
	}
	return record
}

func applyRedact(data any, cfg *RedactConfig) any {
	if items, ok := data.([]any); ok {
		redacted := make([]any, len(items))
		for i, item := range items {
			redacted[i] = applyRedact(item, cfg)
		}
		return redacted
	}

	if record, ok := data.(map[string]any); ok {
		for _, field := range cfg.Fields {
			if _, present := GetPath(record, field); present {
				SetPath(record, field, RedactedSentinel)
			}
		}
		if len(cfg.Patterns) > 0 {
			for key, value := range record {
				if s, isString := value.(string); isString {
					record[key] = redactPatterns(s, cfg.Patterns)
				}
			}
		}
		return record
	}

	if s, ok := data.(string); ok {
		return redactPatterns(s, cfg.Patterns)
	}
	return data
}

func redactPatterns(value string, patterns []string) string {
	for _, pattern := range patterns {
		switch pattern {
		case "ssn":
			value = ssnPattern.ReplaceAllString(value, "***-**-****")
		case "credit_card":
			value = creditCardPattern.ReplaceAllString(value, "**** **** **** ****")
		}
	}
	return value
}
