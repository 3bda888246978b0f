package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gestaopro/gestaopro-server/internal/auth"
	"github.com/gestaopro/gestaopro-server/internal/models"
)

// ========== Table gateway handlers ==========

// HandleListRows lists the caller's rows of a table
func (s *RESTServer) HandleListRows(w http.ResponseWriter, r *http.Request) {
	caller := auth.IdentityFromContext(r.Context())

	rows, err := s.gateway.List(r.Context(), caller, chi.URLParam(r, "table"), r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, rows)
}

// HandleCreateRow inserts a row for the caller's company
func (s *RESTServer) HandleCreateRow(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decodeRow(w, r)
	if !ok {
		return
	}

	caller := auth.IdentityFromContext(r.Context())
	row, err := s.gateway.Create(r.Context(), caller, chi.URLParam(r, "table"), body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, row)
}

// HandleUpdateRow updates a row within the caller's scope
func (s *RESTServer) HandleUpdateRow(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decodeRow(w, r)
	if !ok {
		return
	}

	caller := auth.IdentityFromContext(r.Context())
	row, err := s.gateway.Update(r.Context(), caller, chi.URLParam(r, "table"), chi.URLParam(r, "id"), body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, row)
}

// HandleDeleteRow deletes a row within the caller's scope
func (s *RESTServer) HandleDeleteRow(w http.ResponseWriter, r *http.Request) {
	caller := auth.IdentityFromContext(r.Context())

	err := s.gateway.Delete(r.Context(), caller, chi.URLParam(r, "table"), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{
		"message": msgDeleted,
	})
}

// decodeRow reads a JSON object body; numbers stay json.Number
func (s *RESTServer) decodeRow(w http.ResponseWriter, r *http.Request) (models.Row, bool) {
	var body models.Row

	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&body); err != nil || body == nil {
		s.respondError(w, http.StatusBadRequest, msgInvalidBody)
		return nil, false
	}

	return body, true
}
