// Package response builds the uniform JSON envelope returned by every API endpoint.
package response

import (
	"encoding/json"
	"log"
	"math"
	"net/http"
)

// Envelope status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the response body shape shared by all endpoints.
// Optional fields are omitted entirely when unset.
type Envelope struct {
	Status   string `json:"status"`
	Data     any    `json:"data,omitempty"`
	Message  string `json:"message,omitempty"`
	Metadata any    `json:"metadata,omitempty"`
	Code     string `json:"code,omitempty"`
}

// PaginationMeta describes one page of a paginated collection.
type PaginationMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// NewPaginationMeta computes pagination metadata; TotalPages is ceil(total/limit).
func NewPaginationMeta(total int64, page, limit int) *PaginationMeta {
	totalPages := 0
	if limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return &PaginationMeta{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

// Success builds a success envelope. A nil metadata is left out of the body.
func Success(data any, message string, metadata *PaginationMeta) Envelope {
	env := Envelope{
		Status:  StatusSuccess,
		Data:    data,
		Message: message,
	}
	if metadata != nil {
		env.Metadata = metadata
	}
	return env
}

// Error builds an error envelope.
func Error(message, code string) Envelope {
	return Envelope{
		Status:  StatusError,
		Message: message,
		Code:    code,
	}
}

// Write encodes the envelope as JSON with the given status code.
func Write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.Printf("[http] Error encoding JSON response: %v", err)
	}
}
