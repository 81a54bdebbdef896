package render

import (
	"strconv"

	"github.com/louisbranch/bloomy/internal/services/notifications/domain"
)

// template names the catalog keys one kind renders from. Titles are
// "<prefix>.title"; bodies are "<prefix>.body.<n>". Paired kinds pick a
// title and body with the same index.
type template struct {
	prefix string
	bodies int
	paired bool
}

var templates = map[domain.Kind]template{
	domain.KindDailyCheckin:     {prefix: "notification.daily_checkin", bodies: 1},
	domain.KindMoodReminder:     {prefix: "notification.mood_reminder", bodies: 6},
	domain.KindWellnessReminder: {prefix: "notification.wellness_reminder", bodies: 4},
	domain.KindMotivation:       {prefix: "notification.motivation", bodies: 5, paired: true},
	domain.KindBreathing:        {prefix: "notification.breathing", bodies: 1},
	domain.KindFriendActivity:   {prefix: "notification.friend_activity", bodies: 1},
	domain.KindAchievement:      {prefix: "notification.achievement", bodies: 1},
}

func (t template) titleKey(index int) string {
	if t.paired {
		return t.prefix + ".title." + strconv.Itoa(index)
	}
	return t.prefix + ".title"
}

func (t template) bodyKey(index int) string {
	return t.prefix + ".body." + strconv.Itoa(index)
}

// PoolSize reports how many bodies kind picks from.
func PoolSize(kind domain.Kind) int {
	return templates[kind].bodies
}
