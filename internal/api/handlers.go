package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/gestaopro/gestaopro-server/internal/auth"
	"github.com/gestaopro/gestaopro-server/internal/gateway"
	"github.com/gestaopro/gestaopro-server/internal/storage"
)

// Client-facing messages not owned by the auth package
const (
	msgTableNotAllowed = "Tabela não permitida"
	msgInvalidData     = "Dados inválidos"
	msgNotFound        = "Registro não encontrado"
	msgDuplicate       = "Registro duplicado"
	msgDeleted         = "Registro excluído com sucesso"
	msgSignedOut       = "Logout realizado com sucesso"
	msgInvalidBody     = "Corpo da requisição inválido"
)

// respondJSON responds with JSON
func (s *RESTServer) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

// respondError responds with error
func (s *RESTServer) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeError maps layer errors onto HTTP responses. Unclassified errors are
// logged and reported as 500 without detail.
func (s *RESTServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, gateway.ErrTableNotAllowed), errors.Is(err, gateway.ErrOperationNotAllowed):
		s.respondError(w, http.StatusBadRequest, msgTableNotAllowed)
	case errors.Is(err, gateway.ErrUnknownColumn), errors.Is(err, gateway.ErrInvalidQuery):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrInvalidData):
		s.respondError(w, http.StatusBadRequest, msgInvalidData)
	case errors.Is(err, auth.ErrInvalidToken):
		s.respondError(w, http.StatusForbidden, auth.MsgInvalidToken)
	case errors.Is(err, gateway.ErrForbidden):
		s.respondError(w, http.StatusForbidden, auth.MsgForbidden)
	case errors.Is(err, gateway.ErrNoCompany):
		s.respondError(w, http.StatusForbidden, auth.MsgNoCompany)
	case errors.Is(err, storage.ErrNotFound):
		s.respondError(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, storage.ErrDuplicateKey):
		s.respondError(w, http.StatusConflict, msgDuplicate)
	default:
		log.Error().Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")
		s.respondError(w, http.StatusInternalServerError, auth.MsgInternal)
	}
}
