// Package profile validates and normalizes profile edits.
package profile

import (
	"net/url"
	"strings"
	"unicode/utf8"

	apperrors "github.com/louisbranch/bloomy/internal/platform/errors"
	"github.com/louisbranch/bloomy/internal/services/social/storage"
)

const (
	maxDisplayNameLength = 64
	maxBioLength         = 280
)

// Patch lists the profile fields a person may edit. Nil fields are left
// unchanged.
type Patch struct {
	DisplayName *string              `json:"displayName,omitempty"`
	Bio         *string              `json:"bio,omitempty"`
	Avatar      *string              `json:"avatar,omitempty"`
	Preferences *storage.Preferences `json:"preferences,omitempty"`
}

func invalid(field, message string) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidProfile, message, map[string]string{"Field": field})
}

// NormalizeDisplayName trims and validates a display name.
func NormalizeDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("displayName", "display name is required")
	}
	if utf8.RuneCountInString(name) > maxDisplayNameLength {
		return "", invalid("displayName", "display name is too long")
	}
	return name, nil
}

// Normalize trims and validates every field set on patch.
func Normalize(patch Patch) (Patch, error) {
	var out Patch
	if patch.DisplayName != nil {
		name, err := NormalizeDisplayName(*patch.DisplayName)
		if err != nil {
			return Patch{}, err
		}
		out.DisplayName = &name
	}
	if patch.Bio != nil {
		bio := strings.TrimSpace(*patch.Bio)
		if utf8.RuneCountInString(bio) > maxBioLength {
			return Patch{}, invalid("bio", "bio is too long")
		}
		out.Bio = &bio
	}
	if patch.Avatar != nil {
		avatar := strings.TrimSpace(*patch.Avatar)
		if avatar != "" {
			parsed, err := url.Parse(avatar)
			if err != nil || (parsed.Scheme != "https" && parsed.Scheme != "http") || parsed.Host == "" {
				return Patch{}, invalid("avatar", "avatar must be an http(s) URL")
			}
		}
		out.Avatar = &avatar
	}
	if patch.Preferences != nil {
		prefs := *patch.Preferences
		out.Preferences = &prefs
	}
	return out, nil
}

// Apply merges a normalized patch into user.
func Apply(user storage.User, patch Patch) storage.User {
	if patch.DisplayName != nil {
		user.DisplayName = *patch.DisplayName
	}
	if patch.Bio != nil {
		user.Bio = *patch.Bio
	}
	if patch.Avatar != nil {
		user.Avatar = *patch.Avatar
	}
	if patch.Preferences != nil {
		user.Preferences = *patch.Preferences
	}
	return user
}
