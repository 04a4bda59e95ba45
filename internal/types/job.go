// Package types provides type definitions for the career atoms kept by every store:
// jobs, highlights, the profile singleton and the portable backup document.
package types

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar date format used for start and end dates.
const DateLayout = "2006-01-02"

// TimestampLayout is the RFC 3339 layout (millisecond precision, UTC) used for
// created/updated timestamps in backup documents.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t the way backup documents carry timestamps.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses an RFC 3339 timestamp with optional fractional seconds.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Job is a position held at a company. A nil EndDate marks the current position.
type Job struct {
	ID        uuid.UUID `json:"id"`
	Company   string    `json:"company"`
	Role      string    `json:"role"`
	StartDate string    `json:"start_date"`
	EndDate   *string   `json:"end_date,omitempty"`
	LogoURL   *string   `json:"logo_url,omitempty"`
	Website   *string   `json:"website,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobWithCount is a job plus the number of highlights linked to it.
type JobWithCount struct {
	Job
	HighlightCount int `json:"highlight_count"`
}

// JobInput carries the user-editable fields of a job.
type JobInput struct {
	Company   string  `json:"company" validate:"required,min=1"`
	Role      string  `json:"role" validate:"required,min=1"`
	StartDate string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   *string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	LogoURL   *string `json:"logo_url,omitempty" validate:"omitempty,url"`
	Website   *string `json:"website,omitempty" validate:"omitempty,url"`
}

// Normalize turns empty optional strings into nil, the way the edit forms submit them.
func (in *JobInput) Normalize() {
	in.EndDate = nilIfBlank(in.EndDate)
	in.LogoURL = nilIfBlank(in.LogoURL)
	in.Website = nilIfBlank(in.Website)
}

// EndsBeforeStart reports whether an end date is set and precedes the start date.
func EndsBeforeStart(startDate string, endDate *string) bool {
	return endDate != nil && *endDate != "" && *endDate < startDate
}

func nilIfBlank(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
