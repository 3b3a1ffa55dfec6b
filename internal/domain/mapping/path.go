package mapping

import "strings"

// Record is a schemaless data record moving through the engine
type Record = map[string]any

// GetPath resolves a dot-notation path against a record. The second return
// value reports whether the full path was present; a stored nil value is
// considered present.
func GetPath(record Record, path string) (any, bool) {
	if record == nil || path == "" {
		return nil, false
	}

	segments := strings.Split(path, ".")
	var current any = record
	for _, segment := range segments {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		value, ok := node[segment]
		if !ok {
			return nil, false
		}
		current = value
	}
	return current, true
}

// SetPath writes a value at a dot-notation path, creating intermediate maps
// as needed. Existing non-map intermediates are replaced by maps so the write
// always succeeds.
func SetPath(record Record, path string, value any) {
	if record == nil || path == "" {
		return
	}

	segments := strings.Split(path, ".")
	current := record
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[segment] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
}
