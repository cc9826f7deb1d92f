package api

import (
	"errors"
	"net/http"

	"linkbio-billing/internal/domain"
	"linkbio-billing/internal/domain/model"
	"linkbio-billing/internal/infra/logging"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Username string `json:"username" validate:"required,min=3,max=32"`
	Password string `json:"password" validate:"required,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.users.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.issueSession(w, r, u, http.StatusCreated)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.issueSession(w, r, u, http.StatusOK)
}

func (s *Server) issueSession(w http.ResponseWriter, r *http.Request, u *model.User, status int) {
	sess, err := s.users.StartSession(r.Context(), u)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	token, err := s.auth.Mint(w, sess)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	logging.With(r.Context(), s.log).Info().Str("user_id", u.ID).Msg("session started")
	writeJSON(w, status, authResponse{User: u, Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	if err := s.users.EndSession(r.Context(), p.SessionID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	u, err := s.users.GetByID(r.Context(), p.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = domain.ErrUnauthorized
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":         u,
		"entitlements": u.Entitlements(),
	})
}
