package sqlite

import (
	"strings"
)

// isConstraint reports whether err is a uniqueness violation on insert
func isConstraint(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY")
}
