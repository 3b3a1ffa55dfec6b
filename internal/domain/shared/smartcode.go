package shared

import (
	"fmt"
	"strings"
)

// SmartCode is an opaque dotted classification tag stamped on every persisted
// entity (connector, mapping, job, run). Downstream audit and reporting tools
// parse it; the engine itself only creates and stores it.
type SmartCode string

// NewSmartCode builds a smart code of the form VENDOR.CONNECTOR.<TYPE>.v<N>.
// Segments are upper-cased; the version suffix stays lower-case.
func NewSmartCode(vendor, component, entityType string, version int) SmartCode {
	if version < 1 {
		version = 1
	}
	return SmartCode(fmt.Sprintf("%s.%s.%s.v%d",
		strings.ToUpper(vendor),
		strings.ToUpper(component),
		strings.ToUpper(entityType),
		version,
	))
}

// String returns the string representation of the smart code
func (c SmartCode) String() string {
	return string(c)
}

// IsZero returns true if no smart code was assigned
func (c SmartCode) IsZero() bool {
	return c == ""
}
