package server

import (
	"log"
	"net/http"

	"github.com/jonathan/job-tracker/internal/apperrors"
	"github.com/jonathan/job-tracker/internal/server/response"
)

// writeError is the single translation point from error kinds to responses.
// The full error is logged; the client only sees the public message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[http] %s %s failed: %v", r.Method, r.URL.Path, err)
	} else {
		log.Printf("[http] %s %s rejected (%d): %v", r.Method, r.URL.Path, status, err)
	}

	response.Write(w, status, response.Error(apperrors.PublicMessage(err), apperrors.Code(err)))
}
