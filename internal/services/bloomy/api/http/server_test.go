package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/louisbranch/bloomy/internal/platform/clock"
	"github.com/louisbranch/bloomy/internal/services/bloomy/app"
	"github.com/louisbranch/bloomy/internal/services/notifications/delivery"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type harness struct {
	t      *testing.T
	app    *app.App
	clock  *clock.FakeClock
	server *httptest.Server
	token  string
}

func newHarness(t *testing.T, consent string) *harness {
	t.Helper()
	fake := clock.Fake(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))
	a, err := app.New(context.Background(), app.Config{
		Profile:  "api",
		Backend:  app.BackendMemory,
		Consent:  consent,
		SeedDemo: true,
		Locale:   "en-US",
		Timezone: "UTC",
	}, app.WithClock(fake), app.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	a.Start(context.Background())
	server := httptest.NewServer(a.Handler())
	t.Cleanup(func() {
		server.Close()
		_ = a.Close()
	})
	return &harness{t: t, app: a, clock: fake, server: server}
}

func (h *harness) do(method, path string, body any) *http.Response {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, h.server.URL+path, reader)
	require.NoError(h.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	resp, err := h.server.Client().Do(req)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (h *harness) login(email string) {
	h.t.Helper()
	resp := h.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": email, "password": "password"})
	require.Equal(h.t, http.StatusOK, resp.StatusCode)
	session := decode[struct {
		Token string `json:"token"`
		User  struct {
			Username string `json:"username"`
			IsOnline bool   `json:"isOnline"`
		} `json:"user"`
	}](h.t, resp)
	require.NotEmpty(h.t, session.Token)
	require.True(h.t, session.User.IsOnline)
	h.token = session.Token
}

func TestLoginFailureIsUserMessage(t *testing.T) {
	t.Parallel()

	h := newHarness(t, app.ConsentGranted)
	resp := h.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": "alice@example.com", "password": "nope"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	require.Equal(t, "INVALID_CREDENTIALS", body["code"])
	require.Equal(t, "Invalid email or password.", body["message"])
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t, app.ConsentGranted)
	resp := h.do(http.MethodGet, "/v1/profile", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	h.login("alice@example.com")
	good := h.token
	h.token = "not-a-token"
	resp = h.do(http.MethodGet, "/v1/profile", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "SESSION_INVALID", decode[map[string]string](t, resp)["code"])

	h.token = good
	resp = h.do(http.MethodGet, "/v1/profile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "alice_bloom", decode[map[string]any](t, resp)["username"])
}

func TestSignupAndProfilePatch(t *testing.T) {
	t.Parallel()

	h := newHarness(t, app.ConsentGranted)
	resp := h.do(http.MethodPost, "/v1/auth/signup", map[string]string{
		"email": "dana@example.com", "password": "s3cret-pass", "username": "Dana_Calm", "displayName": "Dana",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	session := decode[struct {
		Token string         `json:"token"`
		User  map[string]any `json:"user"`
	}](t, resp)
	require.Equal(t, "dana_calm", session.User["username"])
	h.token = session.Token

	resp = h.do(http.MethodPost, "/v1/auth/signup", map[string]string{
		"email": "dana@example.com", "password": "s3cret-pass", "username": "other", "displayName": "Dana",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = h.do(http.MethodPatch, "/v1/profile", map[string]any{"bio": "breathing daily"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "breathing daily", decode[map[string]any](t, resp)["bio"])
}

func TestFriendRequestFlow(t *testing.T) {
	t.Parallel()

	h := newHarness(t, app.ConsentGranted)
	h.login("alice@example.com")

	resp := h.do(http.MethodPost, "/v1/friends/requests", map[string]string{"username": "bob_zen"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	request := decode[struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}](t, resp)
	require.Equal(t, "pending", request.Status)

	resp = h.do(http.MethodPost, "/v1/friends/requests", map[string]string{"username": "bob_zen"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp = h.do(http.MethodPost, "/v1/friends/requests", map[string]string{"username": "alice_bloom"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(http.MethodPost, "/v1/friends/requests/"+request.ID+"/accept", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(http.MethodGet, "/v1/friends", nil)
	friends := decode[struct {
		Friends []struct {
			Status string `json:"status"`
		} `json:"friends"`
	}](t, resp)
	require.Len(t, friends.Friends, 1)
	require.Equal(t, "accepted", friends.Friends[0].Status)

	resp = h.do(http.MethodGet, "/v1/friends/requests", nil)
	require.Empty(t, decode[map[string][]any](t, resp)["requests"])

	resp = h.do(http.MethodDelete, "/v1/friends/"+request.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestSearchSkipsShortQueries(t *testing.T) {
	t.Parallel()

	h := newHarness(t, app.ConsentGranted)
	h.login("alice@example.com")

	resp := h.do(http.MethodGet, "/v1/users/search?q=b", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, decode[map[string][]any](t, resp)["users"])

	resp = h.do(http.MethodGet, "/v1/users/search?q=ZEN", nil)
	users := decode[struct {
		Users []struct {
			Username string `json:"username"`
		} `json:"users"`
	}](t, resp)
	require.Len(t, users.Users, 1)
	require.Equal(t, "bob_zen", users.Users[0].Username)
}

func TestMoodOverwriteAndStats(t *testing.T) {
	t.Parallel()

	h := newHarness(t, app.ConsentGranted)
	h.login("alice@example.com")

	resp := h.do(http.MethodPost, "/v1/moods", map[string]string{"mood": "sad"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = h.do(http.MethodPost, "/v1/moods", map[string]string{"mood": "happy", "note": "better"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = h.do(http.MethodPost, "/v1/moods", map[string]string{"mood": "ecstatic"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(http.MethodGet, "/v1/moods", nil)
	list := decode[struct {
		Today   string `json:"today"`
		Entries []struct {
			Date string `json:"date"`
			Mood string `json:"mood"`
		} `json:"entries"`
	}](t, resp)
	require.Equal(t, "2026-03-02", list.Today)
	require.Len(t, list.Entries, 1)
	require.Equal(t, "happy", list.Entries[0].Mood)

	resp = h.do(http.MethodGet, "/v1/moods/stats", nil)
	stats := decode[struct {
		Total      int    `json:"total"`
		MostCommon string `json:"mostCommon"`
	}](t, resp)
	require.Equal(t, 1, stats.Total)
	require.Equal(t, "happy", stats.MostCommon)

	resp = h.do(http.MethodGet, "/v1/moods/calendar?month=2026-03", nil)
	calendar := decode[struct {
		Leading int `json:"leading"`
		Days    []struct {
			Mood string `json:"mood"`
		} `json:"days"`
	}](t, resp)
	require.Equal(t, 6, calendar.Leading)
	require.Len(t, calendar.Days, 31)
	require.Equal(t, "happy", calendar.Days[1].Mood)

	resp = h.do(http.MethodGet, "/v1/moods/calendar?month=march", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEmotionLifecycle(t *testing.T) {
	t.Parallel()

	h := newHarness(t, app.ConsentGranted)
	h.login("alice@example.com")

	resp := h.do(http.MethodPost, "/v1/emotions", map[string]any{"emotionId": "peaceful", "note": "tea", "tags": []string{"home"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	entry := decode[struct {
		ID      string `json:"id"`
		Emotion struct {
			Name string `json:"name"`
		} `json:"emotion"`
	}](t, resp)
	require.Equal(t, "Peaceful", entry.Emotion.Name)

	resp = h.do(http.MethodPatch, "/v1/emotions/"+entry.ID, map[string]any{"note": "green tea"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "green tea", decode[map[string]any](t, resp)["note"])

	resp = h.do(http.MethodGet, "/v1/emotions?date=2026-03-02", nil)
	require.Len(t, decode[map[string][]any](t, resp)["entries"], 1)
	resp = h.do(http.MethodGet, "/v1/emotions?date=2026-03-01", nil)
	require.Empty(t, decode[map[string][]any](t, resp)["entries"])

	resp = h.do(http.MethodDelete, "/v1/emotions/"+entry.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = h.do(http.MethodDelete, "/v1/emotions/"+entry.ID, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.do(http.MethodPost, "/v1/emotions", map[string]any{"emotionId": "bored"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCatalogAndActionsArePublic(t *testing.T) {
	t.Parallel()

	h := newHarness(t, app.ConsentGranted)
	resp := h.do(http.MethodGet, "/v1/catalog/emotions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, decode[map[string][]any](t, resp)["emotions"], 20)

	resp = h.do(http.MethodGet, "/v1/catalog/emotions?category=calm", nil)
	require.Len(t, decode[map[string][]any](t, resp)["emotions"], 5)

	resp = h.do(http.MethodGet, "/v1/notifications/actions/breathe", nil)
	require.Equal(t, "/resources", decode[map[string]string](t, resp)["route"])
	resp = h.do(http.MethodGet, "/v1/notifications/actions/unknown", nil)
	require.Equal(t, "/", decode[map[string]string](t, resp)["route"])
}

func TestNotificationPermissionAndTest(t *testing.T) {
	t.Parallel()

	denied := newHarness(t, app.ConsentDenied)
	resp := denied.do(http.MethodGet, "/v1/notifications/permission", nil)
	require.Equal(t, "denied", decode[map[string]any](t, resp)["state"])
	denied.login("bob@example.com")
	resp = denied.do(http.MethodPost, "/v1/notifications/test/breathing", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	h := newHarness(t, app.ConsentGranted)
	resp = h.do(http.MethodPost, "/v1/notifications/permission", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = h.do(http.MethodPost, "/v1/notifications/test/breathing", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	h.login("alice@example.com")
	resp = h.do(http.MethodPost, "/v1/notifications/permission", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, decode[map[string]any](t, resp)["granted"])

	resp = h.do(http.MethodGet, "/v1/notifications/schedule", nil)
	schedule := decode[struct {
		Running bool `json:"running"`
		Slots   []struct {
			Name  string `json:"name"`
			State string `json:"state"`
		} `json:"slots"`
	}](t, resp)
	require.True(t, schedule.Running)
	require.Len(t, schedule.Slots, 4)
	require.Equal(t, "armed", schedule.Slots[0].State)

	resp = h.do(http.MethodPost, "/v1/notifications/test/unknown", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(http.MethodPost, "/v1/notifications/test/friend-activity", map[string]string{"friendName": "Bob", "activity": "logged a calm mood"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[struct {
		Shown        bool `json:"shown"`
		Notification struct {
			Title string `json:"title"`
		} `json:"notification"`
	}](t, resp)
	require.True(t, result.Shown)
	require.Equal(t, "Bob shared an update", result.Notification.Title)

	resp = h.do(http.MethodGet, "/v1/notifications/inbox", nil)
	inbox := decode[struct {
		Unread int `json:"unread"`
		Items  []struct {
			ID   string `json:"id"`
			Kind string `json:"kind"`
		} `json:"items"`
	}](t, resp)
	require.Equal(t, 1, inbox.Unread)
	require.Equal(t, "friend-activity", inbox.Items[0].Kind)

	resp = h.do(http.MethodPost, "/v1/notifications/inbox/"+inbox.Items[0].ID+"/read", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = h.do(http.MethodPost, "/v1/notifications/inbox/missing/read", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLogoutRequiresSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t, app.ConsentGranted)
	h.login("alice@example.com")
	resp := h.do(http.MethodPost, "/v1/friends/requests", map[string]string{"username": "bob_zen"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	token := h.token
	h.token = ""
	resp = h.do(http.MethodPost, "/v1/auth/logout", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.True(t, h.app.Account.IsAuthenticated())
	require.Len(t, h.app.Friends.Requests(), 1)

	h.token = token
	resp = h.do(http.MethodGet, "/v1/profile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(http.MethodPost, "/v1/auth/logout", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.False(t, h.app.Account.IsAuthenticated())
	require.Empty(t, h.app.Friends.Requests())
}

func TestLoginAsAnotherUserDropsPreviousFriends(t *testing.T) {
	t.Parallel()

	h := newHarness(t, app.ConsentGranted)
	h.login("alice@example.com")
	resp := h.do(http.MethodPost, "/v1/friends/requests", map[string]string{"username": "carol_mindful"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	aliceToken := h.token

	h.token = ""
	h.login("bob@example.com")
	resp = h.do(http.MethodGet, "/v1/friends/requests", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, decode[map[string][]any](t, resp)["requests"])
	resp = h.do(http.MethodGet, "/v1/friends", nil)
	require.Empty(t, decode[map[string][]any](t, resp)["friends"])

	h.token = aliceToken
	resp = h.do(http.MethodGet, "/v1/friends/requests", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestNotificationStream(t *testing.T) {
	t.Parallel()

	h := newHarness(t, app.ConsentGranted)
	h.login("alice@example.com")

	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/v1/notifications/stream?access_token=" + h.token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return h.app.Hub.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)

	// 08:00 -> 09:00 fires the daily check-in.
	h.clock.Advance(time.Hour)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event delivery.Event
	require.NoError(t, conn.ReadJSON(&event))
	require.Equal(t, "notification", event.Type)
	require.Equal(t, "daily-checkin", event.Notification.Tag)
	require.Len(t, event.Notification.Actions, 2)

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(h.server.URL, "http")+"/v1/notifications/stream", nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
