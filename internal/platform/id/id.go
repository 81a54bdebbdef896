// Package id generates opaque record identifiers.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a random v4 UUID rendered as 26 lowercase base32 characters.
func NewID() (string, error) {
	value, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(value[:])), nil
}

// Sequence returns a generator that yields the given ids in order and then
// fails. Tests use it to make record ids predictable.
func Sequence(ids ...string) func() (string, error) {
	next := 0
	return func() (string, error) {
		if next >= len(ids) {
			return "", fmt.Errorf("id sequence exhausted after %d ids", len(ids))
		}
		value := ids[next]
		next++
		return value, nil
	}
}
