// Package jobs implements the job resource operations over a document store.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jonathan/job-tracker/internal/apperrors"
	"github.com/jonathan/job-tracker/internal/db"
	"github.com/jonathan/job-tracker/internal/types"
	"golang.org/x/sync/errgroup"
)

// Collection is the document store collection holding jobs.
const Collection = "jobs"

// Page is one page of jobs plus the collection total.
type Page struct {
	Jobs  []types.Job
	Total int64
}

// Service provides the job operations.
type Service struct {
	store db.DocumentStore
}

// NewService creates a Service backed by store.
func NewService(store db.DocumentStore) *Service {
	return &Service{store: store}
}

func notFound(id string) error {
	return apperrors.NewNotFound("Job with ID %s not found", id)
}

func decodeAll(docs []db.Document) ([]types.Job, error) {
	jobs := make([]types.Job, 0, len(docs))
	for _, doc := range docs {
		job, err := types.JobFromFields(doc.ID, doc.Fields)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// ListAll returns every job.
func (s *Service) ListAll(ctx context.Context) ([]types.Job, error) {
	docs, err := s.store.GetAll(ctx, Collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return decodeAll(docs)
}

// ListPaginated returns page number page (1-based) of size limit. The count and
// the page read run concurrently and are not a consistent snapshot.
func (s *Service) ListPaginated(ctx context.Context, page, limit int) (*Page, error) {
	if page < 1 || limit < 1 {
		return nil, apperrors.NewValidation("page", "Page and limit must be positive")
	}
	if page-1 > math.MaxInt/limit {
		return nil, apperrors.NewValidation("page", "Page is out of range")
	}
	offset := (page - 1) * limit

	var (
		total int64
		docs  []db.Document
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.Count(gCtx, Collection)
		if err != nil {
			return fmt.Errorf("failed to count jobs: %w", err)
		}
		total = n
		return nil
	})
	g.Go(func() error {
		d, err := s.store.GetPage(gCtx, Collection, limit, offset)
		if err != nil {
			return fmt.Errorf("failed to get jobs page: %w", err)
		}
		docs = d
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	jobs, err := decodeAll(docs)
	if err != nil {
		return nil, err
	}
	return &Page{Jobs: jobs, Total: total}, nil
}

// GetByID returns the job or a NotFoundError.
func (s *Service) GetByID(ctx context.Context, id string) (*types.Job, error) {
	doc, err := s.store.GetByID(ctx, Collection, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	if doc == nil {
		return nil, notFound(id)
	}

	job, err := types.JobFromFields(doc.ID, doc.Fields)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Create stores job and returns it with its assigned id. A caller-supplied id
// is kept.
func (s *Service) Create(ctx context.Context, job types.Job) (*types.Job, error) {
	fields, err := job.Fields()
	if err != nil {
		return nil, err
	}
	if job.ID != "" {
		fields["id"] = job.ID
	}

	id, err := s.store.Create(ctx, Collection, fields)
	if err != nil {
		if errors.Is(err, db.ErrConflict) {
			return nil, &apperrors.ConflictError{Message: fmt.Sprintf("Job with ID %s already exists", job.ID)}
		}
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	job.ID = id
	return &job, nil
}

// Update merges patch into the job and returns the id plus the submitted
// fields. The stored document is not re-read.
func (s *Service) Update(ctx context.Context, id string, patch map[string]any) (map[string]any, error) {
	fields := make(map[string]any, len(patch))
	for k, v := range patch {
		if k == "id" {
			continue
		}
		fields[k] = v
	}

	if err := s.store.Update(ctx, Collection, id, fields); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("failed to update job %s: %w", id, err)
	}

	result := make(map[string]any, len(fields)+1)
	result["id"] = id
	for k, v := range fields {
		result[k] = v
	}
	return result, nil
}

// Delete removes the job. Deleting an unknown id succeeds.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, Collection, id); err != nil {
		return fmt.Errorf("failed to delete job %s: %w", id, err)
	}
	return nil
}
