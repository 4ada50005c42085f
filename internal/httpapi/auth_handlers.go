package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"tasklane.org/internal/audit"
	"tasklane.org/internal/auth"
	"tasklane.org/internal/obs"
)

// sessionResponse is the envelope for register, login, and refresh.
type sessionResponse struct {
	User   *auth.User     `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}

// setSessionCookies mirrors the token pair into HttpOnly cookies so browser
// clients hold the session without touching the tokens from script.
func (a *API) setSessionCookies(w http.ResponseWriter, pair auth.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		MaxAge:   int(a.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   int(a.accessTTL.Seconds()),
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{refreshCookie, accessCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   a.secureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Role      string `json:"role"`
		Avatar    string `json:"avatar"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	user, pair, err := a.auth.Register(r.Context(), auth.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		Avatar:    req.Avatar,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	obs.CountTokenIssued(auth.TokenKindAccess)
	obs.CountTokenIssued(auth.TokenKindRefresh)
	_ = audit.LogEvent(r.Context(), "auth.registered", map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
	})
	a.setSessionCookies(w, pair)
	writeJSON(w, http.StatusCreated, sessionResponse{User: user, Tokens: pair})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	user, pair, err := a.auth.Login(r.Context(), req.Username, req.Password, clientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAccountLocked):
			obs.CountLogin("locked")
			obs.CountAccountLockout()
		case errors.Is(err, auth.ErrInvalidCredentials):
			obs.CountLogin("invalid")
		}
		writeServiceError(w, err)
		return
	}
	obs.CountLogin("success")
	obs.CountTokenIssued(auth.TokenKindAccess)
	obs.CountTokenIssued(auth.TokenKindRefresh)
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
	})
	a.setSessionCookies(w, pair)
	writeJSON(w, http.StatusOK, sessionResponse{User: user, Tokens: pair})
}

// refreshToken pulls the rotation credential from the JSON body, falling back
// to the refresh cookie a browser client carries.
func refreshToken(r *http.Request) string {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.RefreshToken != "" {
		return req.RefreshToken
	}
	if c, err := r.Cookie(refreshCookie); err == nil {
		return c.Value
	}
	return ""
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := refreshToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing_token", "refresh token required")
		return
	}
	user, pair, err := a.auth.Refresh(r.Context(), token)
	if err != nil {
		a.clearSessionCookies(w)
		writeServiceError(w, err)
		return
	}
	obs.CountTokenRevoked()
	obs.CountTokenIssued(auth.TokenKindAccess)
	obs.CountTokenIssued(auth.TokenKindRefresh)
	a.setSessionCookies(w, pair)
	writeJSON(w, http.StatusOK, sessionResponse{User: user, Tokens: pair})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := refreshToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing_token", "refresh token required")
		return
	}
	if err := a.auth.Logout(r.Context(), token); err != nil {
		a.clearSessionCookies(w)
		writeServiceError(w, err)
		return
	}
	obs.CountTokenRevoked()
	_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	a.clearSessionCookies(w)
	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	memberships, err := a.projects.Members(r.Context(), id.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if memberships == nil {
		memberships = []auth.OrgMembership{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":        id,
		"memberships": memberships,
	})
}

func (a *API) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerIdentity(w, r); !ok {
		return
	}
	users, err := a.auth.SearchUsers(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if users == nil {
		users = []*auth.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}
