package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "ASC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	if strings.EqualFold(strings.TrimSpace(orderDir), "desc") {
		return "DESC"
	}
	return "ASC"
}

// ValidateSortField validates the sort field against a whitelist of allowed
// columns, plus the timestamp columns every table carries. Returns empty when
// the field is not whitelisted, which callers treat as "no explicit
// ordering". Order-by fragments cannot be parameterized, so nothing outside
// the whitelist may reach the SQL string.
func ValidateSortField(sortField string, allowed ...string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return ""
	}
	for _, col := range allowed {
		if trimmed == col {
			return trimmed
		}
	}
	switch trimmed {
	case "created_at", "updated_at":
		return trimmed
	}
	return ""
}
