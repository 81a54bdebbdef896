// Package username canonicalizes and validates usernames.
package username

import (
	"regexp"
	"strings"

	apperrors "github.com/louisbranch/bloomy/internal/platform/errors"
)

var canonicalPattern = regexp.MustCompile(`^[a-z][a-z0-9._-]{2,31}$`)

// Canonicalize lowercases an ASCII username, strips a leading "@", and
// validates policy.
func Canonicalize(input string) (string, error) {
	input = strings.TrimPrefix(strings.TrimSpace(input), "@")
	if input == "" {
		return "", apperrors.New(apperrors.CodeInvalidUsername, "username is required")
	}

	var builder strings.Builder
	builder.Grow(len(input))
	for i := 0; i < len(input); i++ {
		ch := input[i]
		if ch > 0x7f {
			return "", apperrors.New(apperrors.CodeInvalidUsername, "username must be ASCII")
		}
		if ch >= 'A' && ch <= 'Z' {
			ch = ch - 'A' + 'a'
		}
		builder.WriteByte(ch)
	}

	canonical := builder.String()
	if !canonicalPattern.MatchString(canonical) {
		return "", apperrors.WithMetadata(apperrors.CodeInvalidUsername, "username does not match required format", map[string]string{"username": canonical})
	}
	return canonical, nil
}
