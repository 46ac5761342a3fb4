package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/roach88/crudkit/internal/queryspec"
	"github.com/roach88/crudkit/internal/resource"
	"github.com/roach88/crudkit/internal/value"
)

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"resources": s.registry.Names(),
	})
}

// service resolves the {resource} path variable, writing a 404 when it
// names no registered resource.
func (s *Server) service(w http.ResponseWriter, r *http.Request) (resource.Service, bool) {
	svc, ok := s.registry.Lookup(mux.Vars(r)["resource"])
	if !ok {
		writeError(w, http.StatusNotFound, resource.MsgNotFound)
		return nil, false
	}
	return svc, true
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.service(w, r)
	if !ok {
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	created, err := svc.Create(r.Context(), body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.service(w, r)
	if !ok {
		return
	}
	entity, err := svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.service(w, r)
	if !ok {
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	updated, err := svc.Update(r.Context(), mux.Vars(r)["id"], body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.service(w, r)
	if !ok {
		return
	}
	deleted, err := svc.Delete(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.service(w, r)
	if !ok {
		return
	}
	page, err := svc.List(r.Context(), queryParams(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) distinct(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.service(w, r)
	if !ok {
		return
	}
	vals, err := svc.Distinct(r.Context(), mux.Vars(r)["field"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vals)
}

func (s *Server) notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "Cannot find route.")
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed.")
}

// readBody decodes the request body. An empty body yields nil, which the
// engine rejects with its own message.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) (value.Value, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large.")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "Cannot read request body.")
		return nil, false
	}
	body, err := value.Decode(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, resource.MsgExpectedJSON)
		return nil, false
	}
	return body, true
}

// queryParams flattens the query string to the first value of each key.
func queryParams(r *http.Request) queryspec.Params {
	params := queryspec.Params{}
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}
	return params
}
