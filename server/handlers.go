package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jrsteele09/go-session-auth/auth"
	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/rs/zerolog/log"
)

const maxRequestBody = 1 << 20

// StatusResponse is returned by calls that have nothing else to report.
type StatusResponse struct {
	Message string `json:"message"`
}

// ProviderInfo describes a login option offered to the frontend.
type ProviderInfo struct {
	Name     string `json:"name"`
	LoginURL string `json:"loginUrl"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return autherrors.Wrapf(autherrors.ErrInvalidRequest, "empty body")
		}
		return autherrors.Wrapf(autherrors.ErrInvalidRequest, "decode body: %v", err)
	}
	if dec.More() {
		return autherrors.Wrapf(autherrors.ErrInvalidRequest, "body must contain a single object")
	}
	return nil
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.RegisterRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeServiceError(w, r, err)
			return
		}
		resp, err := s.auth.Register(r.Context(), req)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeServiceError(w, r, err)
			return
		}
		resp, err := s.auth.Login(r.Context(), req)
		if err != nil {
			// Unknown accounts look the same as wrong passwords
			if errors.Is(err, autherrors.ErrUserNotFound) {
				err = autherrors.ErrBadCredentials
			}
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.RefreshRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeServiceError(w, r, err)
			return
		}
		resp, err := s.auth.Refresh(r.Context(), req)
		if err != nil {
			if errors.Is(err, autherrors.ErrUserNotFound) {
				err = autherrors.Wrapf(autherrors.ErrUserNotResolved, "refresh")
			}
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) VerifyEmailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			writeError(w, http.StatusBadRequest, autherrors.KindInvalidRequest.String(), "missing code parameter")
			return
		}
		if err := s.auth.VerifyEmail(r.Context(), code); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, StatusResponse{Message: "email verified"})
	}
}

func (s *Server) ResendVerificationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.ResendVerificationRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeServiceError(w, r, err)
			return
		}
		if err := s.auth.ResendVerification(r.Context(), req); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, StatusResponse{Message: "verification email sent"})
	}
}

// LogoutHandler revokes the bearer token the request was authenticated with.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeServiceError(w, r, autherrors.ErrUserNotResolved)
			return
		}
		if err := s.auth.Logout(r.Context(), principal.Token); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, StatusResponse{Message: "logged out"})
	}
}

func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeServiceError(w, r, autherrors.ErrUserNotResolved)
			return
		}
		resp, err := s.auth.CurrentUser(r.Context(), principal)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ProvidersHandler lists the external identity providers that are configured.
func (s *Server) ProvidersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		infos := []ProviderInfo{}
		for _, kind := range users.ExternalProviders {
			if !s.providerEnabled(kind) {
				continue
			}
			infos = append(infos, ProviderInfo{
				Name:     kind.Lower(),
				LoginURL: s.config.GetBaseURL() + "/oauth2/" + kind.Lower() + "/login",
			})
		}
		writeJSON(w, http.StatusOK, infos)
	}
}

func (s *Server) NoContentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, StatusResponse{Message: "ok"})
	}
}
