package models

import (
	"strings"

	dErrors "namespaces/pkg/domain-errors"
)

const (
	maxNamespaceNameLength = 32
	maxEntryNameLength     = 64
)

// identityNamespaces render as "@handle" instead of "handle.namespace".
var identityNamespaces = map[string]bool{
	"twitter":   true,
	"discord":   true,
	"github":    true,
	"spotify":   true,
	"instagram": true,
}

func ValidateNamespaceName(name string) error {
	if name == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "namespace name cannot be empty")
	}
	if len(name) > maxNamespaceNameLength {
		return dErrors.New(dErrors.CodeInvariantViolation, "namespace name must be 32 characters or less")
	}
	if !validNameChars(name) {
		return dErrors.New(dErrors.CodeInvariantViolation, "namespace name contains invalid characters")
	}
	return nil
}

func ValidateEntryName(name string) error {
	if name == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "entry name cannot be empty")
	}
	if len(name) > maxEntryNameLength {
		return dErrors.New(dErrors.CodeInvariantViolation, "entry name must be 64 characters or less")
	}
	if !validNameChars(name) {
		return dErrors.New(dErrors.CodeInvariantViolation, "entry name contains invalid characters")
	}
	return nil
}

// validNameChars admits letters, digits, '-' and '_'. '.' and '@' are
// reserved by the display format.
func validNameChars(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// FormatDisplayName renders an entry for humans.
func FormatDisplayName(namespace, entry string) string {
	if identityNamespaces[namespace] {
		return "@" + entry
	}
	return entry + "." + namespace
}

// ParseDisplayName inverts FormatDisplayName. Handles resolve to the twitter
// namespace since "@" alone does not say which identity namespace is meant.
func ParseDisplayName(display string) (namespace, entry string, err error) {
	if handle, ok := strings.CutPrefix(display, "@"); ok {
		if err := ValidateEntryName(handle); err != nil {
			return "", "", dErrors.New(dErrors.CodeInvalidInput, "invalid handle")
		}
		return "twitter", handle, nil
	}
	entry, namespace, found := strings.Cut(display, ".")
	if !found || ValidateEntryName(entry) != nil || ValidateNamespaceName(namespace) != nil {
		return "", "", dErrors.New(dErrors.CodeInvalidInput, "display name must look like name.namespace")
	}
	return namespace, entry, nil
}
