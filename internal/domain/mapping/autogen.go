package mapping

import "strings"

// FieldDescriptor describes one field of a resource schema for auto-matching
type FieldDescriptor struct {
	// Name is the field name
	Name string `json:"name"`
	// Type is the declared field type (string, number, boolean, date, array, object)
	Type string `json:"type"`
}

// typeCompatibility lists, per source type, the target types a generated
// mapping may write to.
var typeCompatibility = map[string][]string{
	"string":  {"string", "number", "boolean"},
	"number":  {"string", "number"},
	"boolean": {"string", "boolean", "number"},
	"date":    {"string", "date"},
	"array":   {"array"},
	"object":  {"object"},
}

// fieldAliases groups synonymous field names. A source and target match on
// tier 3 when both names fall in the same group.
var fieldAliases = [][]string{
	{"email", "email_address", "mail", "e_mail"},
	{"phone", "phone_number", "telephone", "mobile"},
	{"first_name", "fname", "given_name"},
	{"last_name", "lname", "surname", "family_name"},
	{"company", "company_name", "organization", "org"},
	{"address", "street_address", "address_line1", "addr"},
	{"city", "town", "locality"},
	{"state", "province", "region"},
	{"zip", "zip_code", "postal_code", "postcode"},
}

// keyFieldNames are source names whose generated mappings are marked as
// upsert keys.
var keyFieldNames = map[string]bool{
	"id":            true,
	"email":         true,
	"email_address": true,
	"external_id":   true,
	"uuid":          true,
	"guid":          true,
}

// AutoGenerateMappings infers field correspondences between a source and a
// target schema. Matching runs in three tiers per source field, first match
// wins: exact case-insensitive name equality, case-insensitive substring
// containment in either direction, then alias-table lookup. A candidate is
// accepted only if the source and target types are compatible; each target
// field is used at most once.
func AutoGenerateMappings(sourceFields, targetFields []FieldDescriptor) []FieldMapping {
	used := make(map[string]bool, len(targetFields))
	var mappings []FieldMapping

	match := func(source FieldDescriptor, accept func(src, tgt string) bool) *FieldDescriptor {
		for i := range targetFields {
			target := targetFields[i]
			if used[target.Name] {
				continue
			}
			if !typesCompatible(source.Type, target.Type) {
				continue
			}
			if accept(strings.ToLower(source.Name), strings.ToLower(target.Name)) {
				return &target
			}
		}
		return nil
	}

	for _, source := range sourceFields {
		target := match(source, func(src, tgt string) bool {
			return src == tgt
		})
		if target == nil {
			target = match(source, func(src, tgt string) bool {
				return src != tgt && (strings.Contains(src, tgt) || strings.Contains(tgt, src))
			})
		}
		if target == nil {
			target = match(source, aliasesMatch)
		}
		if target == nil {
			continue
		}

		used[target.Name] = true
		mappings = append(mappings, FieldMapping{
			SourceField: source.Name,
			TargetField: target.Name,
			IsKey:       keyFieldNames[strings.ToLower(source.Name)],
		})
	}
	return mappings
}

func typesCompatible(sourceType, targetType string) bool {
	targets, ok := typeCompatibility[strings.ToLower(sourceType)]
	if !ok {
		return false
	}
	for _, t := range targets {
		if t == strings.ToLower(targetType) {
			return true
		}
	}
	return false
}

func aliasesMatch(src, tgt string) bool {
	for _, group := range fieldAliases {
		srcIn, tgtIn := false, false
		for _, name := range group {
			if name == src {
				srcIn = true
			}
			if name == tgt {
				tgtIn = true
			}
		}
		if srcIn && tgtIn {
			return true
		}
	}
	return false
}
