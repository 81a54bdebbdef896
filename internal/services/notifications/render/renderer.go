// Package render turns reminder kinds into localized notifications.
package render

import (
	"math/rand/v2"
	"strings"

	"github.com/louisbranch/bloomy/internal/platform/clock"
	"github.com/louisbranch/bloomy/internal/platform/i18n/catalog"
	"github.com/louisbranch/bloomy/internal/services/notifications/domain"
	"golang.org/x/text/message"
)

const (
	defaultGenericTitle = "Bloomy"
	defaultGenericBody  = "You have a new notification."
)

// Localizer is the minimal message-printer contract required by the renderer.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// Picker chooses an index in [0, n).
type Picker interface {
	IntN(n int) int
}

type globalPicker struct{}

func (globalPicker) IntN(n int) int { return rand.IntN(n) }

// Params fill the kinds that carry dynamic content.
type Params struct {
	FriendName  string
	Activity    string
	Achievement string
}

// Renderer renders notifications in one locale.
type Renderer struct {
	loc   Localizer
	pick  Picker
	clock clock.Clock
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithPicker overrides the uniform random body choice.
func WithPicker(p Picker) Option {
	return func(r *Renderer) {
		if p != nil {
			r.pick = p
		}
	}
}

// WithClock sets the clock used for CreatedAt.
func WithClock(c clock.Clock) Option {
	return func(r *Renderer) {
		if c != nil {
			r.clock = c
		}
	}
}

// New builds a renderer over loc. A nil loc renders the generic fallback.
func New(loc Localizer, opts ...Option) *Renderer {
	r := &Renderer{loc: loc, pick: globalPicker{}, clock: clock.Real()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ForLocale builds a renderer for the closest catalog locale to pref.
func ForLocale(pref string, opts ...Option) *Renderer {
	bundle := catalog.Default()
	return New(catalog.Printer(bundle.Match(pref)), opts...)
}

// Render returns the notification for kind. Unknown kinds render the
// generic notification.
func (r *Renderer) Render(kind domain.Kind, params Params) domain.Notification {
	tmpl, ok := templates[kind]
	if !ok || tmpl.bodies == 0 {
		return r.generic(kind)
	}
	index := 0
	if tmpl.bodies > 1 {
		index = r.pick.IntN(tmpl.bodies)
	}

	var title, body string
	switch kind {
	case domain.KindFriendActivity:
		name := strings.TrimSpace(params.FriendName)
		if name == "" {
			name = localizeWithFallback(r.loc, tmpl.prefix+".someone", "A friend")
		}
		activity := strings.TrimSpace(params.Activity)
		if activity == "" {
			activity = localizeWithFallback(r.loc, tmpl.prefix+".default_activity", "logged a new check-in")
		}
		title = localize(r.loc, tmpl.titleKey(index), name)
		body = localize(r.loc, tmpl.bodyKey(index), name, activity)
	case domain.KindAchievement:
		title = localize(r.loc, tmpl.titleKey(index))
		body = strings.TrimSpace(params.Achievement)
		if body == "" {
			body = localize(r.loc, tmpl.bodyKey(index))
		}
	default:
		title = localize(r.loc, tmpl.titleKey(index))
		body = localize(r.loc, tmpl.bodyKey(index))
	}
	if title == tmpl.titleKey(index) || body == tmpl.bodyKey(index) || title == "" {
		return r.generic(kind)
	}

	return domain.Notification{
		Kind:      kind,
		Tag:       kind.Tag(),
		Title:     title,
		Body:      body,
		Actions:   r.actions(kind),
		CreatedAt: r.clock.Now().UTC(),
	}
}

func (r *Renderer) actions(kind domain.Kind) []domain.Action {
	ids := domain.ActionIDs(kind)
	if len(ids) == 0 {
		return nil
	}
	out := make([]domain.Action, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Action{
			ID:    id,
			Title: localizeWithFallback(r.loc, "notification.action."+id, id),
		})
	}
	return out
}

func (r *Renderer) generic(kind domain.Kind) domain.Notification {
	return domain.Notification{
		Kind:      kind,
		Tag:       kind.Tag(),
		Title:     localizeWithFallback(r.loc, "notification.generic.title", defaultGenericTitle),
		Body:      localizeWithFallback(r.loc, "notification.generic.body", defaultGenericBody),
		CreatedAt: r.clock.Now().UTC(),
	}
}

func localize(loc Localizer, key string, args ...any) string {
	if loc == nil {
		return key
	}
	return loc.Sprintf(key, args...)
}

func localizeWithFallback(loc Localizer, key string, fallback string) string {
	value := strings.TrimSpace(localize(loc, key))
	if value == "" || value == key {
		return fallback
	}
	return value
}
