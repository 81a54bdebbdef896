package domain

import (
	"strings"
	"time"

	apperrors "github.com/louisbranch/bloomy/internal/platform/errors"
)

// Kind identifies a reminder family. Its string form is also the
// notification tag, so a newer notification of a kind replaces the older.
type Kind string

const (
	KindDailyCheckin     Kind = "daily-checkin"
	KindMoodReminder     Kind = "mood-reminder"
	KindWellnessReminder Kind = "wellness-reminder"
	KindMotivation       Kind = "motivation"
	KindBreathing        Kind = "breathing"
	KindFriendActivity   Kind = "friend-activity"
	KindAchievement      Kind = "achievement"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{
	KindDailyCheckin,
	KindMoodReminder,
	KindWellnessReminder,
	KindMotivation,
	KindBreathing,
	KindFriendActivity,
	KindAchievement,
}

// Tag returns the notification tag for k.
func (k Kind) Tag() string {
	return string(k)
}

// ParseKind normalizes a kind token.
func ParseKind(raw string) (Kind, error) {
	normalized := Kind(strings.ToLower(strings.TrimSpace(raw)))
	for _, kind := range Kinds {
		if kind == normalized {
			return kind, nil
		}
	}
	return "", apperrors.WithMetadata(apperrors.CodeReminderKindUnknown, "unknown reminder kind", map[string]string{"kind": raw})
}

// Action ids carried on notifications.
const (
	ActionCheckin          = "checkin"
	ActionLater            = "later"
	ActionTrackMood        = "track-mood"
	ActionChat             = "chat"
	ActionReflect          = "reflect"
	ActionJournal          = "journal"
	ActionBreathe          = "breathe"
	ActionResources        = "resources"
	ActionViewFriend       = "view-friend"
	ActionSendSupport      = "send-support"
	ActionViewAchievements = "view-achievements"
	ActionShare            = "share"
)

// ActionIDs returns the action buttons shown for kind, in order. Wellness
// reminders carry none.
func ActionIDs(kind Kind) []string {
	switch kind {
	case KindDailyCheckin:
		return []string{ActionCheckin, ActionLater}
	case KindMoodReminder:
		return []string{ActionTrackMood, ActionChat}
	case KindMotivation:
		return []string{ActionReflect, ActionJournal}
	case KindBreathing:
		return []string{ActionBreathe, ActionResources}
	case KindFriendActivity:
		return []string{ActionViewFriend, ActionSendSupport}
	case KindAchievement:
		return []string{ActionViewAchievements, ActionShare}
	default:
		return nil
	}
}

// RouteForAction maps a clicked action to the screen it opens.
func RouteForAction(action string) string {
	switch strings.TrimSpace(action) {
	case ActionCheckin, ActionTrackMood:
		return "/emotion-tracker"
	case ActionChat:
		return "/chat"
	case ActionBreathe, ActionResources:
		return "/resources"
	case ActionJournal:
		return "/mood-tracker"
	case ActionViewFriend:
		return "/friends"
	case ActionViewAchievements:
		return "/profile"
	default:
		return "/"
	}
}

// Action is one notification button.
type Action struct {
	ID    string `json:"action"`
	Title string `json:"title"`
}

// Notification is a rendered, displayable notification.
type Notification struct {
	Kind      Kind      `json:"kind"`
	Tag       string    `json:"tag"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Actions   []Action  `json:"actions,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
