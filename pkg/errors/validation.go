package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxIDLength bounds identifiers accepted from callers.
const maxIDLength = 128

// ValidateID checks a node, edge, category or restaurant id before it goes
// into a store query or a URL path. Ids are non-empty, at most 128 bytes,
// and free of whitespace, control characters and path separators. field
// names the input in the returned error.
func ValidateID(field, id string) error {
	switch {
	case id == "":
		return Validation(field)
	case len(id) > maxIDLength:
		return invalid(field, "%s too long (max %d characters)", field, maxIDLength)
	case strings.IndexFunc(id, func(r rune) bool { return unicode.IsControl(r) || unicode.IsSpace(r) }) >= 0:
		return invalid(field, "%s contains invalid characters", field)
	case strings.ContainsAny(id, "/\\"), strings.Contains(id, ".."):
		return invalid(field, "%s contains path characters", field)
	}
	return nil
}

// ValidateURL accepts only http and https endpoints.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}
	return nil
}

var colorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ValidateColor validates an optional category color. Empty is allowed;
// anything else must be a #rgb or #rrggbb hex string.
func ValidateColor(color string) error {
	if color == "" {
		return nil
	}
	if !colorRegex.MatchString(color) {
		return invalid("color", "color must be #rgb or #rrggbb")
	}
	return nil
}
