package httpapi

import (
	"net/http"

	apperrors "github.com/louisbranch/bloomy/internal/platform/errors"
	"github.com/louisbranch/bloomy/internal/platform/httpx"
	"github.com/louisbranch/bloomy/internal/services/social/profile"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

type friendRequest struct {
	Username string `json:"username"`
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	session, err := s.deps.Account.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, session)
}

func (s *server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	session, err := s.deps.Account.Signup(r.Context(), req.Email, req.Password, req.Username, req.DisplayName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, session)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.deps.Account.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := s.deps.Account.CurrentUser()
	if !ok {
		s.writeError(w, r, apperrors.New(apperrors.CodeNotAuthenticated, "no current user"))
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *server) handlePatchProfile(w http.ResponseWriter, r *http.Request) {
	var patch profile.Patch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	user, err := s.deps.Account.UpdateProfile(r.Context(), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *server) handleListFriends(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"friends": s.deps.Friends.Friends()})
}

func (s *server) handleListRequests(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"requests": s.deps.Friends.Requests()})
}

func (s *server) handleSendRequest(w http.ResponseWriter, r *http.Request) {
	var req friendRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	request, err := s.deps.Friends.Send(r.Context(), req.Username)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, request)
}

func (s *server) handleAcceptRequest(w http.ResponseWriter, r *http.Request) {
	friend, err := s.deps.Friends.Accept(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, friend)
}

func (s *server) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	s.deps.Friends.Reject(r.Context(), r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleRemoveFriend(w http.ResponseWriter, r *http.Request) {
	s.deps.Friends.Remove(r.Context(), r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.deps.Friends.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"users": users})
}
