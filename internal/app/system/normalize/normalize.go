// Package normalize holds small field normalizers applied before documents
// are written or matched. Keeping them in one place means stores and
// handlers agree on what "the same email" means.
package normalize

import (
	"strings"

	"github.com/anketolabs/anketo/internal/domain/models"
)

// Email lowercases and trims an email address. Matching is always done on
// the normalized form, so lookups are case-insensitive.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace. Case is preserved.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Phone strips all whitespace from a phone number before validation.
func Phone(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// legacyGenders maps locale-specific gender values written by the old
// platform to their canonical replacements.
var legacyGenders = map[string]string{
	"erkek": models.GenderMale,
	"kadın": models.GenderFemale,
}

// Gender returns the canonical form of a stored gender value and whether it
// needed rewriting. Canonical values pass through unchanged.
func Gender(s string) (canonical string, rewritten bool) {
	if c, ok := legacyGenders[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c, true
	}
	return s, false
}
