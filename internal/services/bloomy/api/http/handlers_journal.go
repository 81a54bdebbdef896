package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/louisbranch/bloomy/internal/platform/errors"
	"github.com/louisbranch/bloomy/internal/platform/httpx"
	"github.com/louisbranch/bloomy/internal/services/journal/catalog"
	"github.com/louisbranch/bloomy/internal/services/journal/emotion"
	"github.com/louisbranch/bloomy/internal/services/journal/mood"
)

type moodRequest struct {
	Mood string `json:"mood"`
	Note string `json:"note,omitempty"`
}

type moodList struct {
	Today   string       `json:"today"`
	Current mood.Mood    `json:"current"`
	Entries []mood.Entry `json:"entries"`
}

type emotionRequest struct {
	EmotionID string   `json:"emotionId"`
	Note      string   `json:"note,omitempty"`
	Image     string   `json:"image,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

type emotionPatchRequest struct {
	EmotionID *string   `json:"emotionId,omitempty"`
	Note      *string   `json:"note,omitempty"`
	Image     *string   `json:"image,omitempty"`
	Tags      *[]string `json:"tags,omitempty"`
}

// orEmpty keeps empty collections as [] rather than null on the wire.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func (s *server) handleListMoods(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, moodList{
		Today:   s.deps.Moods.Today(),
		Current: s.deps.Moods.CurrentMood(),
		Entries: orEmpty(s.deps.Moods.Entries()),
	})
}

func (s *server) handleAddMood(w http.ResponseWriter, r *http.Request) {
	var req moodRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	entry, err := s.deps.Moods.Add(r.Context(), mood.Mood(req.Mood), req.Note)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entry)
}

func (s *server) handleMoodStats(w http.ResponseWriter, _ *http.Request) {
	stats, ok := s.deps.Moods.Stats()
	if !ok {
		stats = mood.Stats{Counts: map[mood.Mood]int{}}
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *server) handleMoodCalendar(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("month"))
	if raw == "" {
		raw = s.deps.Moods.Today()[:len("2006-01")]
	}
	month, err := time.Parse("2006-01", raw)
	if err != nil {
		s.writeError(w, r, apperrors.WithMetadata(apperrors.CodeDayInvalid, "invalid month", map[string]string{"month": raw}))
		return
	}
	s.writeJSON(w, http.StatusOK, s.deps.Moods.Month(month.Year(), month.Month()))
}

func (s *server) handleListEmotions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if day := strings.TrimSpace(query.Get("date")); day != "" {
		entries, err := s.deps.Emotions.EntriesForDay(day)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"entries": orEmpty(entries)})
		return
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, r, apperrors.New(apperrors.CodeInvalidRequest, "limit must be a number"))
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"entries": orEmpty(s.deps.Emotions.Recent(limit))})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"entries": orEmpty(s.deps.Emotions.Entries())})
}

func (s *server) handleAddEmotion(w http.ResponseWriter, r *http.Request) {
	var req emotionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	entry, err := s.deps.Emotions.Add(r.Context(), req.EmotionID, req.Note, req.Image, req.Tags)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, entry)
}

func (s *server) handleUpdateEmotion(w http.ResponseWriter, r *http.Request) {
	var req emotionPatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	entry, err := s.deps.Emotions.Update(r.Context(), r.PathValue("id"), emotion.Patch{
		EmotionID: req.EmotionID,
		Note:      req.Note,
		Image:     req.Image,
		Tags:      req.Tags,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entry)
}

func (s *server) handleDeleteEmotion(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Emotions.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var emotions []catalog.Emotion
	switch {
	case strings.TrimSpace(query.Get("q")) != "":
		emotions = catalog.Search(query.Get("q"))
	case strings.TrimSpace(query.Get("category")) != "":
		emotions = catalog.ByCategory(catalog.Category(strings.TrimSpace(query.Get("category"))))
	default:
		emotions = catalog.All()
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"emotions": orEmpty(emotions)})
}
