package server

import (
	"net/http"

	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/rs/zerolog/log"
)

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind autherrors.Kind) int {
	if kind.IsTokenFailure() {
		return http.StatusUnauthorized
	}
	switch kind {
	case autherrors.KindBadCredentials, autherrors.KindUserNotResolved:
		return http.StatusUnauthorized
	case autherrors.KindAccountDisabled, autherrors.KindForbidden:
		return http.StatusForbidden
	case autherrors.KindUserNotFound:
		return http.StatusNotFound
	case autherrors.KindEmailInUse:
		return http.StatusConflict
	case autherrors.KindVerificationExpired, autherrors.KindResetCodeExpired:
		return http.StatusGone
	case autherrors.KindInvalidRequest, autherrors.KindUnsupportedProvider,
		autherrors.KindInvalidVerificationCode, autherrors.KindInvalidResetCode:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeServiceError writes err as a JSON error. Unknown errors are logged and their text withheld.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := autherrors.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, status, kind.String(), "internal error")
		return
	}
	if kind.IsTokenFailure() || kind == autherrors.KindUserNotResolved {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+kind.String()+`"`)
	}
	writeError(w, status, kind.String(), err.Error())
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, ErrorResponse{Error: code, ErrorDescription: description})
}
