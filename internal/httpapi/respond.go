package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"tasklane.org/internal/auth"
	"tasklane.org/internal/ids"
	"tasklane.org/internal/obs"
	"tasklane.org/internal/project"
)

// errorBody is the uniform error envelope: a stable machine-readable code
// plus a human-readable message.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message
	writeJSON(w, status, body)
}

// writeServiceError translates a service error into the HTTP envelope and
// records a denial metric when authorization was the reason.
func writeServiceError(w http.ResponseWriter, err error) {
	var denied *auth.PermissionDenied
	if errors.As(err, &denied) {
		obs.CountPermissionDenial(string(denied.Scope))
	}
	status, code := mapError(err)
	writeError(w, status, code, err.Error())
}

// mapError resolves a service error to (status, code). Order matters: the
// more specific sentinels are checked before the broad ones.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrAccountLocked):
		return http.StatusTooManyRequests, "account_locked"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, auth.ErrTokenExpired):
		return http.StatusUnauthorized, "token_expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		return http.StatusUnauthorized, "token_revoked"
	case errors.Is(err, auth.ErrTokenKindMismatch), errors.Is(err, auth.ErrTokenInvalid):
		return http.StatusUnauthorized, "token_invalid"
	case errors.Is(err, auth.ErrInsufficientPermission):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, auth.ErrUnknownRole):
		return http.StatusBadRequest, "unknown_role"
	case errors.Is(err, ids.ErrInvalidIdentifier):
		return http.StatusBadRequest, "invalid_id"
	case errors.Is(err, auth.ErrInvalidInput), errors.Is(err, project.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, auth.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, auth.ErrAlreadyExists):
		return http.StatusConflict, "already_exists"
	case errors.Is(err, auth.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// decodeJSON reads the request body into dst. Unknown fields are rejected so
// client typos surface as 400s instead of silently dropped fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "request body is not valid JSON: "+err.Error())
		return false
	}
	return true
}
