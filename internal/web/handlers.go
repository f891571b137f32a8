// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// Generic user-facing failure messages. Register and login rejections are
// reported without the specific reason so responses cannot be used to
// enumerate accounts.
const (
	msgRegisterFailed = "could not create account"
	msgLoginFailed    = "invalid username or password"
	msgInternalError  = "something went wrong, please try again"
)

// formData is what every page template renders with.
type formData struct {
	Error    string
	Username string
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.render(w, r, "home.html", http.StatusOK, formData{})
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.render(w, r, "register.html", http.StatusOK, formData{})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.render(w, r, "login.html", http.StatusOK, formData{})
}

func (s *Server) handleRegisterSubmit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, "register.html", http.StatusBadRequest, formData{Error: msgRegisterFailed})
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, err := s.engine.Register(r.Context(), username, password)
	if err != nil {
		s.handleAuthFailure(w, r, "register", "register.html", msgRegisterFailed, err)
		return
	}

	s.metrics.RecordAuthAttempt("register", "accepted")
	s.startSession(w, r, user)
}

func (s *Server) handleLoginSubmit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, "login.html", http.StatusBadRequest, formData{Error: msgLoginFailed})
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, err := s.engine.Login(r.Context(), username, password)
	if err != nil {
		s.handleAuthFailure(w, r, "login", "login.html", msgLoginFailed, err)
		return
	}

	s.metrics.RecordAuthAttempt("login", "accepted")
	s.startSession(w, r, user)
}

func (s *Server) handleSecrets(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user, err := s.currentUser(r)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			s.redirect(w, r, "/login")
			return
		}
		errutil.LogError(s.logger, "session resolution failed", err)
		s.render(w, r, "login.html", http.StatusInternalServerError, formData{Error: msgInternalError})
		return
	}

	s.render(w, r, "secrets.html", http.StatusOK, formData{Username: user.Username})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if endErr := s.sessions.End(r.Context(), cookie.Value); endErr != nil {
			// The cookie is cleared regardless; the orphaned session expires.
			errutil.LogError(s.logger, "session end failed", endErr)
		}
	}
	s.clearSessionCookie(w)
	s.redirect(w, r, "/")
}

// handleAuthFailure maps an engine outcome to a response. Rejections render
// the form again with a generic message; faults are logged and reported
// opaquely.
func (s *Server) handleAuthFailure(w http.ResponseWriter, r *http.Request, flow, page, genericMsg string, err error) {
	switch {
	case errors.Is(err, auth.ErrUsernameTaken),
		errors.Is(err, auth.ErrInvalidCredentials):
		s.metrics.RecordAuthAttempt(flow, "rejected")
		s.render(w, r, page, http.StatusUnprocessableEntity, formData{Error: genericMsg})
	case errutil.HasCode(err, "AUTH_INVALID_INPUT"):
		s.metrics.RecordAuthAttempt(flow, "rejected")
		s.render(w, r, page, http.StatusUnprocessableEntity, formData{Error: genericMsg})
	default:
		s.metrics.RecordAuthAttempt(flow, "failed")
		errutil.LogError(s.logger, flow+" failed", err)
		s.render(w, r, page, http.StatusInternalServerError, formData{Error: msgInternalError})
	}
}

// startSession persists a session for the user, sets the cookie, and sends
// the client to the authenticated area.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, user *auth.User) {
	_, token, err := s.sessions.Start(r.Context(), user)
	if err != nil {
		errutil.LogError(s.logger, "session start failed", err)
		s.render(w, r, "login.html", http.StatusInternalServerError, formData{Error: msgInternalError})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.cookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.redirect(w, r, "/secrets")
}

// currentUser resolves the session cookie into a live user record.
func (s *Server) currentUser(r *http.Request) (*auth.User, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, auth.ErrNotFound
	}
	return s.sessions.Resolve(r.Context(), cookie.Value)
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) redirect(w http.ResponseWriter, r *http.Request, location string) {
	s.metrics.RecordHTTPRequest(r.URL.Path, strconv.Itoa(http.StatusSeeOther))
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, page string, status int, data formData) {
	s.metrics.RecordHTTPRequest(r.URL.Path, strconv.Itoa(status))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, page, data); err != nil {
		s.logger.Error("template render failed", "page", page, "error", err)
	}
}
