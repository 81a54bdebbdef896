package httpapi

import (
	"net/http"
	"strconv"

	apperrors "github.com/louisbranch/bloomy/internal/platform/errors"
	"github.com/louisbranch/bloomy/internal/platform/httpx"
	"github.com/louisbranch/bloomy/internal/services/notifications/domain"
	"github.com/louisbranch/bloomy/internal/services/notifications/render"
	"github.com/louisbranch/bloomy/internal/services/notifications/scheduler"
)

type testNotificationRequest struct {
	FriendName  string `json:"friendName,omitempty"`
	Activity    string `json:"activity,omitempty"`
	Achievement string `json:"achievement,omitempty"`
}

type testNotificationResponse struct {
	Notification domain.Notification `json:"notification"`
	Shown        bool                `json:"shown"`
}

func (s *server) handleGetPermission(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.deps.Gate.Snapshot())
}

func (s *server) handleRequestPermission(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Gate.Supported() {
		s.writeError(w, r, apperrors.New(apperrors.CodeNotificationsUnsupported, "notifications unsupported"))
		return
	}
	if _, err := s.deps.Gate.Request(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.deps.Gate.Snapshot())
}

func (s *server) handleSchedule(w http.ResponseWriter, _ *http.Request) {
	var slots []scheduler.SlotStatus
	running := false
	if s.deps.Scheduler != nil {
		slots = s.deps.Scheduler.Slots()
		running = s.deps.Scheduler.Running()
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"running": running, "slots": orEmpty(slots)})
}

func (s *server) handleInbox(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	pageSize := 0
	if raw := query.Get("pageSize"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, r, apperrors.New(apperrors.CodeInvalidRequest, "pageSize must be a number"))
			return
		}
		pageSize = parsed
	}
	page, err := s.deps.Inbox.List(r.Context(), domain.ListInboxInput{
		Profile:   s.deps.Profile,
		PageSize:  pageSize,
		PageToken: query.Get("pageToken"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

func (s *server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	item, err := s.deps.Inbox.MarkRead(r.Context(), s.deps.Profile, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, item)
}

// handleTestNotification renders a kind and pushes it through the display
// pipeline. The body is optional.
func (s *server) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseKind(r.PathValue("kind"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req testNotificationRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if !s.deps.Gate.Allowed() {
		s.writeError(w, r, apperrors.New(apperrors.CodePermissionDenied, "notifications not granted"))
		return
	}
	n, shown := s.deps.Notifier.Notify(r.Context(), kind, render.Params{
		FriendName:  req.FriendName,
		Activity:    req.Activity,
		Achievement: req.Achievement,
	})
	s.writeJSON(w, http.StatusOK, testNotificationResponse{Notification: n, Shown: shown})
}

func (s *server) handleAction(w http.ResponseWriter, r *http.Request) {
	action := r.PathValue("action")
	s.writeJSON(w, http.StatusOK, map[string]string{
		"action": action,
		"route":  domain.RouteForAction(action),
	})
}
