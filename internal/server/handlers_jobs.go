package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/jonathan/job-tracker/internal/apperrors"
	"github.com/jonathan/job-tracker/internal/schemas"
	"github.com/jonathan/job-tracker/internal/server/response"
	"github.com/jonathan/job-tracker/internal/types"
)

// Pagination defaults for the job list.
const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// queryInt parses a positive integer query parameter, falling back to def.
func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// readJobBody reads the request body and validates it against the job schema.
func readJobBody(w http.ResponseWriter, r *http.Request, mode schemas.Mode) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, apperrors.NewValidation("(root)", "Request body could not be read")
	}
	if err := schemas.ValidateJob(body, mode); err != nil {
		return nil, err
	}
	return body, nil
}

// handleListJobs handles GET /jobs?page&limit.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", defaultPage)
	limit := min(queryInt(r, "limit", defaultLimit), maxLimit)

	result, err := s.jobs.ListPaginated(r.Context(), page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	meta := response.NewPaginationMeta(result.Total, page, limit)
	response.Write(w, http.StatusOK, response.Success(result.Jobs, "Jobs Retrieved", meta))
}

// handleGetJob handles GET /jobs/{id}.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Write(w, http.StatusOK, response.Success(job, "Job Retrieved", nil))
}

// handleCreateJob handles POST /jobs.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	body, err := readJobBody(w, r, schemas.CreateMode)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var input types.Job
	if err := json.Unmarshal(body, &input); err != nil {
		writeError(w, r, apperrors.NewValidation("(root)", "Request body must be a valid job"))
		return
	}

	job, err := s.jobs.Create(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Write(w, http.StatusCreated, response.Success(job, "Job Created", nil))
}

// handleUpdateJob handles PUT /jobs/{id}.
func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	body, err := readJobBody(w, r, schemas.UpdateMode)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var patch map[string]any
	if err := json.Unmarshal(body, &patch); err != nil {
		writeError(w, r, apperrors.NewValidation("(root)", "Request body must be a JSON object"))
		return
	}

	updated, err := s.jobs.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Write(w, http.StatusOK, response.Success(updated, "Job Updated", nil))
}

// handleDeleteJob handles DELETE /jobs/{id}.
func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.jobs.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	response.Write(w, http.StatusOK, response.Success("Job Deleted", "", nil))
}
