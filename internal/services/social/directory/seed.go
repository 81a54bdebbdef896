package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/bloomy/internal/services/social/storage"
	"golang.org/x/crypto/bcrypt"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "password"

// DemoUsers are the accounts created by Seed.
func DemoUsers(now time.Time) []storage.User {
	return []storage.User{
		{
			ID:          "1",
			Email:       "alice@example.com",
			Username:    "alice_bloom",
			DisplayName: "Alice Johnson",
			Avatar:      "https://images.pexels.com/photos/774909/pexels-photo-774909.jpeg?auto=compress&cs=tinysrgb&w=150&h=150&fit=crop",
			Bio:         "Finding peace in mindfulness and nature 🌸",
			JoinedAt:    time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
			IsOnline:    true,
			LastSeen:    now,
			Preferences: storage.DefaultPreferences(),
		},
		{
			ID:          "2",
			Email:       "bob@example.com",
			Username:    "bob_zen",
			DisplayName: "Bob Chen",
			Avatar:      "https://images.pexels.com/photos/220453/pexels-photo-220453.jpeg?auto=compress&cs=tinysrgb&w=150&h=150&fit=crop",
			Bio:         "Meditation enthusiast and wellness advocate",
			JoinedAt:    time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
			LastSeen:    now.Add(-2 * time.Hour),
			Preferences: storage.DefaultPreferences(),
		},
		{
			ID:          "3",
			Email:       "carol@example.com",
			Username:    "carol_mindful",
			DisplayName: "Carol Williams",
			Avatar:      "https://images.pexels.com/photos/415829/pexels-photo-415829.jpeg?auto=compress&cs=tinysrgb&w=150&h=150&fit=crop",
			Bio:         "Journaling my way to better mental health ✨",
			JoinedAt:    time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC),
			IsOnline:    true,
			LastSeen:    now,
			Preferences: storage.Preferences{AllowFriendRequests: true},
		},
	}
}

// Seed inserts the demo accounts that are not already present and reports
// how many were created.
func (d *Directory) Seed(ctx context.Context) (int, error) {
	now := d.clock.Now().UTC()
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), d.cost)
	if err != nil {
		return 0, fmt.Errorf("hash demo password: %w", err)
	}
	created := 0
	for _, user := range DemoUsers(now) {
		if _, err := d.store.GetUserByID(ctx, user.ID); err == nil {
			continue
		} else if !errors.Is(err, storage.ErrNotFound) {
			return created, fmt.Errorf("lookup %s: %w", user.Username, err)
		}
		record := storage.UserRecord{User: user, PasswordHash: hash, UpdatedAt: now}
		if err := d.store.PutUser(ctx, record); err != nil {
			return created, fmt.Errorf("seed %s: %w", user.Username, err)
		}
		created++
	}
	return created, nil
}
