package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gestaopro/gestaopro-server/internal/auth"
	"github.com/gestaopro/gestaopro-server/internal/models"
	"github.com/gestaopro/gestaopro-server/internal/observability"
	"github.com/gestaopro/gestaopro-server/internal/validation"
)

// ========== Auth handlers ==========

// session is the token envelope returned by signup, signin and session
type session struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int64           `json:"expires_in"`
	ExpiresAt   int64           `json:"expires_at"`
	User        *models.Profile `json:"user"`
}

// HandleSignup registers a profile, optionally with its company
func (s *RESTServer) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email" validate:"required,email"`
		Password    string `json:"password" validate:"required"`
		FullName    string `json:"fullName" validate:"required,max=200"`
		CompanyName string `json:"companyName" validate:"max=200"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	req.Email = auth.NormalizeEmail(req.Email)
	if err := s.validator.Validate(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.MinLength("password", req.Password, s.config.Auth.MinPasswordLength); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := s.auth.Register(r.Context(), auth.SignupInput{
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
		CompanyName: req.CompanyName,
	})
	if errors.Is(err, auth.ErrEmailTaken) {
		s.respondError(w, http.StatusBadRequest, auth.MsgEmailTaken)
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.respondWithSession(w, r, http.StatusCreated, profile)
}

// HandleSignin exchanges credentials for a token
func (s *RESTServer) HandleSignin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if err := s.validator.Validate(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := s.auth.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		observability.AuthFailuresTotal.WithLabelValues(observability.ReasonBadCredentials).Inc()
		s.respondError(w, http.StatusUnauthorized, auth.MsgInvalidCredentials)
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.respondWithSession(w, r, http.StatusOK, profile)
}

// HandleSession returns the current profile and its token
func (s *RESTServer) HandleSession(w http.ResponseWriter, r *http.Request) {
	profile := auth.IdentityFromContext(r.Context())
	claims := auth.ClaimsFromContext(r.Context())
	token, _ := auth.BearerToken(r.Header.Get("Authorization"))

	sess := &session{
		AccessToken: token,
		TokenType:   "bearer",
		User:        profile,
	}
	if claims != nil && claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Unix()
		sess.ExpiresIn = claims.ExpiresAt.Unix() - time.Now().Unix()
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"user":    profile,
		"session": sess,
	})
}

// HandleSignout is a no-op for stateless tokens
func (s *RESTServer) HandleSignout(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"message": msgSignedOut,
	})
}

func (s *RESTServer) respondWithSession(w http.ResponseWriter, r *http.Request, status int, profile *models.Profile) {
	token, err := s.tokens.IssueToken(profile)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.respondJSON(w, status, map[string]interface{}{
		"user":  profile,
		"token": token.AccessToken,
		"session": &session{
			AccessToken: token.AccessToken,
			TokenType:   "bearer",
			ExpiresIn:   int64(token.ExpiresIn.Seconds()),
			ExpiresAt:   token.ExpiresAt.Unix(),
			User:        profile,
		},
	})
}
