package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, v any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestSuccess_WithoutMetadataOmitsKey(t *testing.T) {
	body := decode(t, Success(map[string]string{"id": "1"}, "Job Retrieved", nil))

	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Job Retrieved", body["message"])
	assert.NotNil(t, body["data"])
	_, hasMetadata := body["metadata"]
	assert.False(t, hasMetadata, "metadata key must be absent")
	_, hasCode := body["code"]
	assert.False(t, hasCode)
}

func TestSuccess_WithMetadata(t *testing.T) {
	meta := NewPaginationMeta(15, 2, 10)
	body := decode(t, Success([]string{"a"}, "Jobs Retrieved", meta))

	metadata, ok := body["metadata"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 15, metadata["total"])
	assert.EqualValues(t, 2, metadata["page"])
	assert.EqualValues(t, 10, metadata["limit"])
	assert.EqualValues(t, 2, metadata["totalPages"])
}

func TestSuccess_StringPayload(t *testing.T) {
	body := decode(t, Success("Job Deleted", "", nil))

	assert.Equal(t, "Job Deleted", body["data"])
	_, hasMessage := body["message"]
	assert.False(t, hasMessage)
}

func TestError(t *testing.T) {
	body := decode(t, Error("Job with ID unknown-id not found", ""))

	assert.Equal(t, map[string]any{
		"status":  "error",
		"message": "Job with ID unknown-id not found",
	}, body)

	withCode := decode(t, Error("Forbidden", "FORBIDDEN"))
	assert.Equal(t, map[string]any{
		"status":  "error",
		"message": "Forbidden",
		"code":    "FORBIDDEN",
	}, withCode)
}

func TestNewPaginationMeta(t *testing.T) {
	tests := []struct {
		total, limit int
		expected     int
	}{
		{15, 10, 2},
		{20, 10, 2},
		{0, 10, 0},
		{1, 10, 1},
		{101, 25, 5},
		{5, 0, 0},
	}

	for _, tt := range tests {
		meta := NewPaginationMeta(int64(tt.total), 1, tt.limit)
		assert.Equal(t, tt.expected, meta.TotalPages, "total=%d limit=%d", tt.total, tt.limit)
	}
}

func TestWrite(t *testing.T) {
	w := httptest.NewRecorder()

	Write(w, http.StatusCreated, Success("ok", "Created", nil))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"success","data":"ok","message":"Created"}`, w.Body.String())
}
