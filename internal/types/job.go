// Package types provides the domain and request types shared across the job tracker.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// JobLevel is the experience level required for a job.
type JobLevel string

// Job levels.
const (
	LevelInternship JobLevel = "INTERNSHIP"
	LevelEntry      JobLevel = "ENTRY_LEVEL"
	LevelMid        JobLevel = "MID_LEVEL"
	LevelSenior     JobLevel = "SENIOR_LEVEL"
)

// JobLevels lists every valid level in display order.
var JobLevels = []JobLevel{LevelInternship, LevelEntry, LevelMid, LevelSenior}

// Valid reports whether l is a known level.
func (l JobLevel) Valid() bool {
	for _, v := range JobLevels {
		if l == v {
			return true
		}
	}
	return false
}

// JobMode is the employment mode of a job.
type JobMode string

// Job modes.
const (
	ModeFullTime JobMode = "FULL_TIME"
	ModePartTime JobMode = "PART_TIME"
	ModeContract JobMode = "CONTRACT"
)

// JobModes lists every valid mode.
var JobModes = []JobMode{ModeFullTime, ModePartTime, ModeContract}

// Valid reports whether m is a known mode.
func (m JobMode) Valid() bool {
	for _, v := range JobModes {
		if m == v {
			return true
		}
	}
	return false
}

// JobStage is the current stage of the application process.
type JobStage string

// Application stages.
const (
	StageNotApplied         JobStage = "NOT_APPLIED"
	StageApplied            JobStage = "APPLIED"
	StageFirstInterview     JobStage = "FIRST_INTERVIEW"
	StageFollowUpInterviews JobStage = "FOLLOW_UP_INTERVIEWS"
	StageOffer              JobStage = "OFFER"
)

// JobStages lists every valid stage in pipeline order.
var JobStages = []JobStage{StageNotApplied, StageApplied, StageFirstInterview, StageFollowUpInterviews, StageOffer}

// Valid reports whether s is a known stage.
func (s JobStage) Valid() bool {
	for _, v := range JobStages {
		if s == v {
			return true
		}
	}
	return false
}

// Job is a tracked job posting and the state of the application for it.
type Job struct {
	ID          string     `json:"id,omitempty"`
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Location    string     `json:"location"`
	URL         string     `json:"url"`
	Description string     `json:"description"`
	Level       JobLevel   `json:"level"`
	Mode        JobMode    `json:"mode"`
	Stage       JobStage   `json:"stage"`
	DatePosted  Date       `json:"date_posted"`
	Active      bool       `json:"active"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// Fields returns the job as a document field map, without the id.
func (j Job) Fields() (map[string]any, error) {
	raw, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to convert job to fields: %w", err)
	}
	delete(fields, "id")
	return fields, nil
}

// JobFromFields builds a Job from a document id and its stored fields.
func JobFromFields(id string, fields map[string]any) (Job, error) {
	merged := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	merged["id"] = id

	raw, err := json.Marshal(merged)
	if err != nil {
		return Job{}, fmt.Errorf("failed to marshal document %s: %w", id, err)
	}
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return Job{}, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	return job, nil
}

// DateLayout is the wire format of Date.
const DateLayout = "2006-01-02"

// Date is a calendar date encoded as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate returns the Date for the given day in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp, which is truncated to its date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	t = t.UTC()
	return NewDate(t.Year(), t.Month(), t.Day()), nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
