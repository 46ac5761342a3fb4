package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/roach88/crudkit/internal/querysql"
	"github.com/roach88/crudkit/internal/resource"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

const msgInternal = "Internal server error"

// fail maps an engine error to a response. Only input and not-found
// messages reach the client; everything else is logged and reported as a
// generic 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeError(w, status, message)
}

func classify(err error) (int, string) {
	var rerr *resource.Error
	if errors.As(err, &rerr) {
		switch rerr.Code {
		case resource.CodeInvalidInput:
			return http.StatusBadRequest, rerr.Message
		case resource.CodeNotFound:
			return http.StatusNotFound, resource.MsgNotFound
		}
		return http.StatusInternalServerError, msgInternal
	}

	var unknown *querysql.UnknownColumnError
	if errors.As(err, &unknown) {
		return http.StatusBadRequest, "Unknown field: " + strings.Join(unknown.Fields, ", ")
	}
	return http.StatusInternalServerError, msgInternal
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorBody{StatusCode: status, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
