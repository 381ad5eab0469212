package jobs

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/jonathan/job-tracker/internal/apperrors"
	"github.com/jonathan/job-tracker/internal/db"
	"github.com/jonathan/job-tracker/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStore wraps a MemoryStore and records calls. It can be told to fail.
type recordingStore struct {
	*db.MemoryStore

	mu      sync.Mutex
	pages   [][2]int // limit, offset
	deletes []string
	failOn  string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: db.NewMemoryStore()}
}

var errBackend = errors.New("connection reset by peer")

func (r *recordingStore) GetPage(ctx context.Context, collection string, limit, offset int) ([]db.Document, error) {
	r.mu.Lock()
	r.pages = append(r.pages, [2]int{limit, offset})
	fail := r.failOn == "GetPage"
	r.mu.Unlock()
	if fail {
		return nil, errBackend
	}
	return r.MemoryStore.GetPage(ctx, collection, limit, offset)
}

func (r *recordingStore) Count(ctx context.Context, collection string) (int64, error) {
	if r.failOn == "Count" {
		return 0, errBackend
	}
	return r.MemoryStore.Count(ctx, collection)
}

func (r *recordingStore) Delete(ctx context.Context, collection, id string) error {
	r.mu.Lock()
	r.deletes = append(r.deletes, id)
	r.mu.Unlock()
	if r.failOn == "Delete" {
		return errBackend
	}
	return r.MemoryStore.Delete(ctx, collection, id)
}

func sampleJob() types.Job {
	return types.Job{
		Title:       "backend developer",
		Company:     "abc",
		Location:    "canada",
		URL:         "http://www.abc.com",
		Description: "Entry level backend developer with 1 year experience needed",
		Level:       types.LevelEntry,
		Mode:        types.ModeFullTime,
		Stage:       types.StageNotApplied,
		DatePosted:  types.NewDate(2025, 3, 28),
		Active:      true,
	}
}

func TestService_CreateThenGet(t *testing.T) {
	svc := NewService(newRecordingStore())
	ctx := context.Background()

	input := sampleJob()
	created, err := svc.Create(ctx, input)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	fetched, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)

	want := input
	want.ID = created.ID
	assert.Equal(t, want, *fetched)
}

func TestService_CreateKeepsSuppliedID(t *testing.T) {
	svc := NewService(newRecordingStore())
	ctx := context.Background()

	input := sampleJob()
	input.ID = "job-42"
	created, err := svc.Create(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "job-42", created.ID)

	fetched, err := svc.GetByID(ctx, "job-42")
	require.NoError(t, err)
	assert.Equal(t, "backend developer", fetched.Title)
}

func TestService_GetByIDNotFound(t *testing.T) {
	svc := NewService(newRecordingStore())

	_, err := svc.GetByID(context.Background(), "unknown-id")
	var notFound *apperrors.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Job with ID unknown-id not found", notFound.Message)
}

func TestService_ListPaginated(t *testing.T) {
	store := newRecordingStore()
	svc := NewService(store)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		job := sampleJob()
		job.Title = fmt.Sprintf("job %02d", i)
		_, err := svc.Create(ctx, job)
		require.NoError(t, err)
	}

	page, err := svc.ListPaginated(ctx, 2, 10)
	require.NoError(t, err)

	assert.Equal(t, int64(15), page.Total)
	assert.Len(t, page.Jobs, 5)
	assert.Equal(t, [][2]int{{10, 10}}, store.pages, "page 2 of 10 reads offset 10, limit 10")
}

func TestService_ListPaginatedErrors(t *testing.T) {
	for _, op := range []string{"Count", "GetPage"} {
		t.Run(op, func(t *testing.T) {
			store := newRecordingStore()
			store.failOn = op
			svc := NewService(store)

			page, err := svc.ListPaginated(context.Background(), 1, 10)
			assert.Nil(t, page)
			assert.ErrorIs(t, err, errBackend)
		})
	}
}

func TestService_ListPaginatedRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name        string
		page, limit int
		message     string
	}{
		{"offset overflows", math.MaxInt/10 + 2, 10, "Page is out of range"},
		{"max page", math.MaxInt, 100, "Page is out of range"},
		{"zero page", 0, 10, "Page and limit must be positive"},
		{"zero limit", 1, 0, "Page and limit must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newRecordingStore()
			svc := NewService(store)

			page, err := svc.ListPaginated(context.Background(), tt.page, tt.limit)
			assert.Nil(t, page)
			var validationErr *apperrors.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.message, validationErr.Fields[0].Message)
			assert.Empty(t, store.pages, "no read with a bad offset")
		})
	}
}

func TestService_CreateDuplicateID(t *testing.T) {
	svc := NewService(newRecordingStore())
	ctx := context.Background()

	job := sampleJob()
	job.ID = "job-1"
	_, err := svc.Create(ctx, job)
	require.NoError(t, err)

	job.Title = "another title"
	_, err = svc.Create(ctx, job)
	var conflict *apperrors.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "Job with ID job-1 already exists", conflict.Message)

	stored, err := svc.GetByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "backend developer", stored.Title)
}

func TestService_ListAll(t *testing.T) {
	svc := NewService(newRecordingStore())
	ctx := context.Background()

	jobs, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	_, err = svc.Create(ctx, sampleJob())
	require.NoError(t, err)
	_, err = svc.Create(ctx, sampleJob())
	require.NoError(t, err)

	jobs, err = svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestService_Update(t *testing.T) {
	svc := NewService(newRecordingStore())
	ctx := context.Background()

	created, err := svc.Create(ctx, sampleJob())
	require.NoError(t, err)

	result, err := svc.Update(ctx, created.ID, map[string]any{"stage": "APPLIED", "id": "ignored"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": created.ID, "stage": "APPLIED"}, result)

	fetched, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StageApplied, fetched.Stage)
	assert.Equal(t, "backend developer", fetched.Title, "unsubmitted fields are kept")
}

func TestService_UpdateNotFound(t *testing.T) {
	svc := NewService(newRecordingStore())

	_, err := svc.Update(context.Background(), "missing", map[string]any{"stage": "OFFER"})
	var notFound *apperrors.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Job with ID missing not found", notFound.Message)
}

func TestService_Delete(t *testing.T) {
	store := newRecordingStore()
	svc := NewService(store)

	require.NoError(t, svc.Delete(context.Background(), "1"))
	assert.Equal(t, []string{"1"}, store.deletes, "exactly one delete call, no pre-check")
}

func TestService_DeleteError(t *testing.T) {
	store := newRecordingStore()
	store.failOn = "Delete"
	svc := NewService(store)

	err := svc.Delete(context.Background(), "1")
	assert.ErrorIs(t, err, errBackend)
}
