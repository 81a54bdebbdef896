// Package catalog holds the fixed set of emotions people can check in with.
package catalog

import (
	"slices"
	"strings"
)

// Category groups emotions by tone.
type Category string

const (
	CategoryEnergized   Category = "energized"
	CategoryCalm        Category = "calm"
	CategoryChallenging Category = "challenging"
	CategorySocial      Category = "social"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryEnergized, CategoryCalm, CategoryChallenging, CategorySocial}

// Emotion is one catalog entry. Journal entries embed the full record.
type Emotion struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Color    string   `json:"color"`
	BgColor  string   `json:"bgColor"`
	Icon     string   `json:"icon"`
}

var emotions = []Emotion{
	{ID: "euphoric", Name: "Euphoric", Category: CategoryEnergized, Color: "#FF6B6B", BgColor: "bg-gradient-to-br from-red-400 to-pink-500", Icon: "🚀"},
	{ID: "excited", Name: "Excited", Category: CategoryEnergized, Color: "#FF8E53", BgColor: "bg-gradient-to-br from-orange-400 to-red-500", Icon: "⚡"},
	{ID: "energetic", Name: "Energetic", Category: CategoryEnergized, Color: "#FFD93D", BgColor: "bg-gradient-to-br from-yellow-400 to-orange-500", Icon: "🔥"},
	{ID: "motivated", Name: "Motivated", Category: CategoryEnergized, Color: "#6BCF7F", BgColor: "bg-gradient-to-br from-green-400 to-emerald-500", Icon: "💪"},
	{ID: "accomplished", Name: "Accomplished", Category: CategoryEnergized, Color: "#4ECDC4", BgColor: "bg-gradient-to-br from-teal-400 to-cyan-500", Icon: "🏆"},

	{ID: "peaceful", Name: "Peaceful", Category: CategoryCalm, Color: "#A8E6CF", BgColor: "bg-gradient-to-br from-emerald-300 to-teal-400", Icon: "🕊️"},
	{ID: "relaxed", Name: "Relaxed", Category: CategoryCalm, Color: "#88D8C0", BgColor: "bg-gradient-to-br from-teal-300 to-cyan-400", Icon: "🌊"},
	{ID: "content", Name: "Content", Category: CategoryCalm, Color: "#7FDBFF", BgColor: "bg-gradient-to-br from-cyan-300 to-blue-400", Icon: "😌"},
	{ID: "grateful", Name: "Grateful", Category: CategoryCalm, Color: "#B4A7D6", BgColor: "bg-gradient-to-br from-purple-300 to-indigo-400", Icon: "🙏"},
	{ID: "serene", Name: "Serene", Category: CategoryCalm, Color: "#D4B5D4", BgColor: "bg-gradient-to-br from-purple-300 to-pink-400", Icon: "🌸"},

	{ID: "overwhelmed", Name: "Overwhelmed", Category: CategoryChallenging, Color: "#FF6B9D", BgColor: "bg-gradient-to-br from-pink-400 to-rose-500", Icon: "🌪️"},
	{ID: "anxious", Name: "Anxious", Category: CategoryChallenging, Color: "#C44569", BgColor: "bg-gradient-to-br from-rose-400 to-pink-600", Icon: "😰"},
	{ID: "frustrated", Name: "Frustrated", Category: CategoryChallenging, Color: "#F8B500", BgColor: "bg-gradient-to-br from-amber-400 to-orange-500", Icon: "😤"},
	{ID: "melancholy", Name: "Melancholy", Category: CategoryChallenging, Color: "#778899", BgColor: "bg-gradient-to-br from-slate-400 to-gray-500", Icon: "🌧️"},
	{ID: "restless", Name: "Restless", Category: CategoryChallenging, Color: "#6C5CE7", BgColor: "bg-gradient-to-br from-indigo-400 to-purple-500", Icon: "🌀"},

	{ID: "connected", Name: "Connected", Category: CategorySocial, Color: "#00B894", BgColor: "bg-gradient-to-br from-emerald-400 to-green-500", Icon: "🤝"},
	{ID: "loved", Name: "Loved", Category: CategorySocial, Color: "#E17055", BgColor: "bg-gradient-to-br from-orange-400 to-red-400", Icon: "💕"},
	{ID: "supported", Name: "Supported", Category: CategorySocial, Color: "#0984E3", BgColor: "bg-gradient-to-br from-blue-400 to-indigo-500", Icon: "🤗"},
	{ID: "understood", Name: "Understood", Category: CategorySocial, Color: "#A29BFE", BgColor: "bg-gradient-to-br from-indigo-300 to-purple-400", Icon: "👁️"},
	{ID: "lonely", Name: "Lonely", Category: CategorySocial, Color: "#636E72", BgColor: "bg-gradient-to-br from-gray-400 to-slate-500", Icon: "🌙"},
}

// All returns a copy of the catalog in display order.
func All() []Emotion {
	return slices.Clone(emotions)
}

// ByCategory returns the emotions in category, in display order.
func ByCategory(category Category) []Emotion {
	var out []Emotion
	for _, emotion := range emotions {
		if emotion.Category == category {
			out = append(out, emotion)
		}
	}
	return out
}

// ByID looks up one emotion.
func ByID(id string) (Emotion, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, emotion := range emotions {
		if emotion.ID == id {
			return emotion, true
		}
	}
	return Emotion{}, false
}

// CategoryColor returns the gradient used for a category header.
func CategoryColor(category Category) string {
	switch category {
	case CategoryEnergized:
		return "from-orange-500 to-red-500"
	case CategoryCalm:
		return "from-teal-400 to-blue-500"
	case CategoryChallenging:
		return "from-gray-500 to-slate-600"
	case CategorySocial:
		return "from-purple-500 to-indigo-500"
	default:
		return "from-gray-400 to-gray-500"
	}
}

// Search matches emotions whose name contains query, ignoring case. An
// empty query matches everything.
func Search(query string) []Emotion {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return All()
	}
	var out []Emotion
	for _, emotion := range emotions {
		if strings.Contains(strings.ToLower(emotion.Name), query) {
			out = append(out, emotion)
		}
	}
	return out
}
