package types

import (
	"time"

	"github.com/google/uuid"
)

// HighlightType classifies a highlight.
type HighlightType string

// Supported highlight types
const (
	HighlightAchievement    HighlightType = "achievement"
	HighlightProject        HighlightType = "project"
	HighlightResponsibility HighlightType = "responsibility"
	HighlightEducation      HighlightType = "education"
	HighlightCourse         HighlightType = "course"
	HighlightTeaching       HighlightType = "teaching"
)

// HighlightTypes lists every valid highlight type in display order.
var HighlightTypes = []HighlightType{
	HighlightAchievement,
	HighlightProject,
	HighlightResponsibility,
	HighlightEducation,
	HighlightCourse,
	HighlightTeaching,
}

// Valid reports whether t is one of the known highlight types.
func (t HighlightType) Valid() bool {
	for _, known := range HighlightTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Metric is a quantified result attached to a highlight. It has no identity of its own.
type Metric struct {
	Label       string  `json:"label" validate:"required"`
	Value       float64 `json:"value"`
	Unit        string  `json:"unit"`
	Prefix      string  `json:"prefix,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Highlight is a single career atom: an achievement, project, course and so on.
// JobID is a weak reference and becomes nil when the job is deleted.
type Highlight struct {
	ID        uuid.UUID     `json:"id"`
	JobID     *uuid.UUID    `json:"job_id,omitempty"`
	Type      HighlightType `json:"type"`
	Title     string        `json:"title"`
	Content   string        `json:"content"`
	StartDate string        `json:"start_date"`
	EndDate   *string       `json:"end_date,omitempty"`
	Domains   []string      `json:"domains"`
	Skills    []string      `json:"skills"`
	Keywords  []string      `json:"keywords"`
	Metrics   []Metric      `json:"metrics"`
	IsHidden  bool          `json:"is_hidden"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// HighlightInput carries the user-editable fields of a highlight.
type HighlightInput struct {
	JobID     *uuid.UUID    `json:"job_id,omitempty"`
	Type      HighlightType `json:"type" validate:"required,oneof=achievement project responsibility education course teaching"`
	Title     string        `json:"title" validate:"required,min=1"`
	Content   string        `json:"content" validate:"required,min=1"`
	StartDate string        `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   *string       `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Domains   []string      `json:"domains"`
	Skills    []string      `json:"skills"`
	Keywords  []string      `json:"keywords"`
	Metrics   []Metric      `json:"metrics" validate:"dive"`
	IsHidden  bool          `json:"is_hidden"`
}

// Normalize fills nil lists with empty ones and clears blank end dates.
func (in *HighlightInput) Normalize() {
	in.EndDate = nilIfBlank(in.EndDate)
	in.Domains = NonNil(in.Domains)
	in.Skills = NonNil(in.Skills)
	in.Keywords = NonNil(in.Keywords)
	if in.Metrics == nil {
		in.Metrics = []Metric{}
	}
}

// NonNil returns s, or an empty slice when s is nil.
func NonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
