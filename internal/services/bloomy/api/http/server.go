// Package httpapi exposes the Bloomy managers as a JSON API under /v1.
package httpapi

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/louisbranch/bloomy/internal/platform/errors"
	"github.com/louisbranch/bloomy/internal/platform/httpx"
	"github.com/louisbranch/bloomy/internal/platform/requestctx"
	"github.com/louisbranch/bloomy/internal/services/journal/emotion"
	"github.com/louisbranch/bloomy/internal/services/journal/mood"
	"github.com/louisbranch/bloomy/internal/services/notifications/domain"
	"github.com/louisbranch/bloomy/internal/services/notifications/permission"
	"github.com/louisbranch/bloomy/internal/services/notifications/render"
	"github.com/louisbranch/bloomy/internal/services/notifications/scheduler"
	"github.com/louisbranch/bloomy/internal/services/social/account"
	"github.com/louisbranch/bloomy/internal/services/social/friends"
	"go.uber.org/zap"
)

// Notifier renders and displays notifications.
type Notifier interface {
	Notify(ctx context.Context, kind domain.Kind, params render.Params) (domain.Notification, bool)
}

// Deps are the managers the API serves.
type Deps struct {
	Account   *account.Manager
	Friends   *friends.Manager
	Moods     *mood.Manager
	Emotions  *emotion.Manager
	Gate      *permission.Gate
	Scheduler *scheduler.Scheduler
	Inbox     *domain.Inbox
	Notifier  Notifier
	Stream    http.Handler
	Profile   string
	Logger    *zap.Logger
}

type server struct {
	deps   Deps
	logger *zap.Logger
}

// NewHandler builds the API handler with the shared middleware chain.
func NewHandler(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &server{deps: deps, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/login", s.handleLogin)
	mux.HandleFunc("POST /v1/auth/signup", s.handleSignup)
	mux.Handle("POST /v1/auth/logout", s.authed(s.handleLogout))

	mux.Handle("GET /v1/profile", s.authed(s.handleGetProfile))
	mux.Handle("PATCH /v1/profile", s.authed(s.handlePatchProfile))

	mux.Handle("GET /v1/friends", s.authed(s.handleListFriends))
	mux.Handle("DELETE /v1/friends/{id}", s.authed(s.handleRemoveFriend))
	mux.Handle("GET /v1/friends/requests", s.authed(s.handleListRequests))
	mux.Handle("POST /v1/friends/requests", s.authed(s.handleSendRequest))
	mux.Handle("POST /v1/friends/requests/{id}/accept", s.authed(s.handleAcceptRequest))
	mux.Handle("POST /v1/friends/requests/{id}/reject", s.authed(s.handleRejectRequest))
	mux.Handle("GET /v1/users/search", s.authed(s.handleSearchUsers))

	mux.Handle("GET /v1/moods", s.authed(s.handleListMoods))
	mux.Handle("POST /v1/moods", s.authed(s.handleAddMood))
	mux.Handle("GET /v1/moods/stats", s.authed(s.handleMoodStats))
	mux.Handle("GET /v1/moods/calendar", s.authed(s.handleMoodCalendar))

	mux.Handle("GET /v1/emotions", s.authed(s.handleListEmotions))
	mux.Handle("POST /v1/emotions", s.authed(s.handleAddEmotion))
	mux.Handle("PATCH /v1/emotions/{id}", s.authed(s.handleUpdateEmotion))
	mux.Handle("DELETE /v1/emotions/{id}", s.authed(s.handleDeleteEmotion))
	mux.HandleFunc("GET /v1/catalog/emotions", s.handleCatalog)

	mux.HandleFunc("GET /v1/notifications/permission", s.handleGetPermission)
	mux.Handle("POST /v1/notifications/permission", s.authed(s.handleRequestPermission))
	mux.HandleFunc("GET /v1/notifications/schedule", s.handleSchedule)
	mux.Handle("GET /v1/notifications/inbox", s.authed(s.handleInbox))
	mux.Handle("POST /v1/notifications/inbox/{id}/read", s.authed(s.handleMarkRead))
	mux.Handle("POST /v1/notifications/test/{kind}", s.authed(s.handleTestNotification))
	mux.HandleFunc("GET /v1/notifications/actions/{action}", s.handleAction)
	if deps.Stream != nil {
		mux.Handle("GET /v1/notifications/stream", s.authedHandler(deps.Stream))
	}

	return httpx.Chain(mux,
		httpx.RequestID(),
		httpx.RecoverPanic(logger),
		httpx.AccessLog(logger),
	)
}

// authed wraps h so it only runs with a session token for the signed-in
// user.
func (s *server) authed(h http.HandlerFunc) http.Handler {
	return s.authedHandler(h)
}

func (s *server) authedHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.authenticate(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(requestctx.WithUserID(r.Context(), userID)))
	})
}

// authenticate returns the id of the signed-in user the request's session
// token was issued to.
func (s *server) authenticate(r *http.Request) (string, error) {
	user, ok := s.deps.Account.CurrentUser()
	if !ok {
		return "", apperrors.New(apperrors.CodeNotAuthenticated, "no current user")
	}
	sessions := s.deps.Account.Sessions()
	if sessions == nil {
		return user.ID, nil
	}
	claims, err := sessions.Verify(bearerToken(r))
	if err != nil {
		return "", err
	}
	if claims.UserID != user.ID {
		return "", apperrors.New(apperrors.CodeSessionInvalid, "session belongs to another user")
	}
	return user.ID, nil
}

// bearerToken reads the Authorization header, falling back to the
// access_token query parameter browsers use for websocket upgrades.
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

// writeError answers with the error's code. Server-side failures are logged
// with the request identity.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
		ctx := httpx.RequestContext(r)
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestctx.RequestID(ctx)),
			zap.String("user_id", requestctx.UserID(ctx)),
			zap.Error(err),
		)
	}
	httpx.WriteError(w, err)
}

func (s *server) writeJSON(w http.ResponseWriter, status int, payload any) {
	if err := httpx.WriteJSON(w, status, payload); err != nil {
		s.logger.Debug("write response", zap.Error(err))
	}
}
