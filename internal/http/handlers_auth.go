package http

import (
	"net/http"
	"net/url"

	"budgetly/internal/core"
	"budgetly/internal/log"
	"budgetly/internal/services"
)

const (
	msgProfileUpdated   = "Profile updated successfully"
	msgAccountDeleted   = "Account deleted successfully"
	msgGoogleDisabled   = "Google login is not configured"
	msgGoogleFailed     = "Google login failed"
	msgGoogleServerFail = "Server error during Google login"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpRegister, err)
		return
	}

	res, err := s.accounts.Register(r.Context(), services.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		writeError(w, r, log.OpRegister, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// handleLogin answers bad credentials with 400, matching the route contract
// the browser client relies on.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpLogin, err)
		return
	}

	res, err := s.accounts.Login(r.Context(), req.Username, req.Password)
	if core.KindOf(err) == core.KindAuth {
		BadRequestError(core.MessageOf(err)).Write(w)
		return
	}
	if err != nil {
		writeError(w, r, log.OpLogin, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGoogleStart(w http.ResponseWriter, r *http.Request) {
	if s.google == nil {
		writeMessage(w, http.StatusServiceUnavailable, msgGoogleDisabled)
		return
	}

	state, err := s.oauthState.Begin(w, r)
	if err != nil {
		writeError(w, r, "google_start", core.Internal(err))
		return
	}
	http.Redirect(w, r, s.google.AuthCodeURL(state), http.StatusFound)
}

// handleGoogleCallback always ends in a redirect to the browser client,
// carrying either the session token or an error message.
func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.google == nil {
		writeMessage(w, http.StatusServiceUnavailable, msgGoogleDisabled)
		return
	}

	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentAuth)
	q := r.URL.Query()

	if err := s.oauthState.Verify(w, r, q.Get("state")); err != nil {
		logger.WarnContext(ctx, "OAuth state rejected", log.FieldProvider, "google", log.FieldError, err.Error())
		s.redirectToFrontend(w, r, "/login", "error", msgGoogleFailed)
		return
	}
	if providerErr := q.Get("error"); providerErr != "" {
		logger.InfoContext(ctx, "Google login declined", log.FieldProvider, "google", log.FieldError, providerErr)
		s.redirectToFrontend(w, r, "/login", "error", msgGoogleFailed)
		return
	}

	profile, err := s.google.Exchange(ctx, q.Get("code"))
	if err != nil {
		logger.ErrorContext(ctx, "Google code exchange failed", log.FieldProvider, "google", log.FieldError, err.Error())
		s.redirectToFrontend(w, r, "/login", "error", msgGoogleFailed)
		return
	}

	res, err := s.accounts.FederatedLogin(ctx, profile)
	if err != nil {
		msg := msgGoogleServerFail
		if core.KindOf(err) != core.KindServer {
			msg = core.MessageOf(err)
		}
		logger.WarnContext(ctx, "Federated login failed", log.FieldProvider, "google", log.FieldError, err.Error())
		s.redirectToFrontend(w, r, "/login", "error", msg)
		return
	}

	logger.InfoContext(ctx, "Google login succeeded", log.FieldProvider, "google", log.FieldUserID, res.User.ID)
	s.redirectToFrontend(w, r, "/dashboard", "token", res.Token)
}

// redirectToFrontend keeps the token out of caches and Referer headers.
func (s *Server) redirectToFrontend(w http.ResponseWriter, r *http.Request, path, key, value string) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Referrer-Policy", "no-referrer")
	target := s.frontendURL + path + "?" + url.Values{key: {value}}.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	u, err := s.accounts.Me(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, "me", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	p, _ := principalFrom(r.Context())
	if err := s.accounts.UpdatePassword(r.Context(), p.UserID, req.Password); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeMessage(w, http.StatusOK, msgProfileUpdated)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	if err := s.accounts.DeleteAccount(r.Context(), p.UserID); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	writeMessage(w, http.StatusOK, msgAccountDeleted)
}
