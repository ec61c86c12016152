package httpmetrics

import "strings"

// NormalizePath replaces numeric segments with {id} to keep label
// cardinality bounded.
func NormalizePath(path string) string {
	if path == "" {
		return "/"
	}

	parts := strings.Split(path, "/")
	for i, part := range parts {
		if isNumeric(part) {
			parts[i] = "{id}"
		}
	}

	result := strings.Join(parts, "/")
	if result == "" {
		return "/"
	}
	return result
}

func isNumeric(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

const unmatchedRoute = "other"

var routes = map[string]struct{}{
	"/health":            {},
	"/metrics":           {},
	"/api/auth/register": {},
	"/api/auth/login":    {},
	"/api/auth/logout":   {},
	"/api/auth/me":       {},
}

// RouteLabel is NormalizePath restricted to the routes the service serves.
// Any other path, which a client can choose freely, is labelled "other".
func RouteLabel(path string) string {
	normalized := NormalizePath(path)
	if _, ok := routes[normalized]; ok {
		return normalized
	}
	return unmatchedRoute
}
