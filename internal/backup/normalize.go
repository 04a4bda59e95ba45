package backup

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/jonathan/career-atoms/internal/identity"
	"github.com/jonathan/career-atoms/internal/types"
)

// The relaxed shapes accept anything a person might write by hand: ids, timestamps and
// most fields are optional, and a highlight may name its job by company ("job": "Acme")
// instead of by slug.
type relaxedDocument struct {
	Version    string             `json:"version"`
	ExportedAt string             `json:"exportedAt"`
	Jobs       []relaxedJob       `json:"jobs"`
	Highlights []relaxedHighlight `json:"highlights"`
	Profile    *relaxedProfile    `json:"profile"`
}

type relaxedJob struct {
	ID        string  `json:"id"`
	Company   string  `json:"company"`
	Role      string  `json:"role"`
	StartDate string  `json:"startDate"`
	EndDate   *string `json:"endDate"`
	LogoURL   *string `json:"logoUrl"`
	Website   *string `json:"website"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

type relaxedHighlight struct {
	ID        string          `json:"id"`
	JobID     *string         `json:"jobId"`
	Job       *string         `json:"job"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	StartDate string          `json:"startDate"`
	EndDate   *string         `json:"endDate"`
	Domains   []string        `json:"domains"`
	Skills    []string        `json:"skills"`
	Keywords  []string        `json:"keywords"`
	Metrics   []relaxedMetric `json:"metrics"`
	IsHidden  bool            `json:"isHidden"`
	CreatedAt string          `json:"createdAt"`
	UpdatedAt string          `json:"updatedAt"`
}

type relaxedMetric struct {
	Label       string  `json:"label"`
	Value       float64 `json:"value"`
	Unit        string  `json:"unit"`
	Prefix      string  `json:"prefix"`
	Description string  `json:"description"`
}

type relaxedProfile struct {
	FullName string  `json:"fullName"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Location *string `json:"location"`
	LinkedIn *string `json:"linkedin"`
	GitHub   *string `json:"github"`
	Website  *string `json:"website"`
	Telegram *string `json:"telegram"`
}

// Normalize turns relaxed import data into a complete backup document. Missing ids
// become slugs, missing dates and timestamps become the normalization time, an absent
// or unknown type becomes achievement, content defaults to the title, and lists default
// to empty. The only rejected input is one that is not a JSON object.
//
// A strict, exported document passes through unchanged apart from defaults for fields
// it already carries.
func Normalize(raw []byte, opts ...Option) (*types.BackupDocument, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &NormalizeError{Message: "import data must be a JSON object"}
	}

	var in relaxedDocument
	if err := json.Unmarshal(trimmed, &in); err != nil {
		return nil, &NormalizeError{Message: "import data has an invalid shape", Cause: err}
	}

	o := buildOptions(opts)
	now := o.now().UTC()
	stamp := types.FormatTimestamp(now)
	today := now.Format(types.DateLayout)

	doc := &types.BackupDocument{
		Version:    orDefault(in.Version, types.BackupVersion),
		ExportedAt: orDefault(in.ExportedAt, stamp),
		Jobs:       make([]types.BackupJob, 0, len(in.Jobs)),
		Highlights: make([]types.BackupHighlight, 0, len(in.Highlights)),
	}

	// byName maps lower-cased "company" and "company role" to job slugs. With several
	// jobs at one company the last one wins the bare company key.
	usedJobSlugs := map[string]int{}
	byName := map[string]string{}
	for _, j := range in.Jobs {
		startDate := orDefault(j.StartDate, today)
		slug := j.ID
		if slug == "" {
			slug = identity.Disambiguate(identity.BuildJobSlug(j.Company, j.Role, startDate), usedJobSlugs)
		} else {
			usedJobSlugs[slug]++
		}
		byName[strings.ToLower(j.Company)] = slug
		byName[strings.ToLower(j.Company+" "+j.Role)] = slug

		doc.Jobs = append(doc.Jobs, types.BackupJob{
			ID:        slug,
			Company:   j.Company,
			Role:      j.Role,
			StartDate: startDate,
			EndDate:   blankToNil(j.EndDate),
			LogoURL:   blankToNil(j.LogoURL),
			Website:   blankToNil(j.Website),
			CreatedAt: orDefault(j.CreatedAt, stamp),
			UpdatedAt: orDefault(j.UpdatedAt, stamp),
		})
	}

	usedHighlightSlugs := map[string]int{}
	for _, h := range in.Highlights {
		jobSlug := resolveJob(h, byName)
		startDate := orDefault(h.StartDate, today)

		kind := types.HighlightType(h.Type)
		if !kind.Valid() {
			kind = types.HighlightAchievement
		}

		slug := h.ID
		if slug == "" {
			parent := ""
			if jobSlug != nil {
				parent = *jobSlug
			}
			slug = identity.Disambiguate(identity.BuildHighlightSlug(h.Title, startDate, parent), usedHighlightSlugs)
		} else {
			usedHighlightSlugs[slug]++
		}

		metrics := make([]types.Metric, 0, len(h.Metrics))
		for _, m := range h.Metrics {
			metrics = append(metrics, types.Metric(m))
		}

		doc.Highlights = append(doc.Highlights, types.BackupHighlight{
			ID:        slug,
			JobID:     jobSlug,
			Type:      kind,
			Title:     h.Title,
			Content:   orDefault(h.Content, h.Title),
			StartDate: startDate,
			EndDate:   blankToNil(h.EndDate),
			Domains:   types.NonNil(h.Domains),
			Skills:    types.NonNil(h.Skills),
			Keywords:  types.NonNil(h.Keywords),
			Metrics:   metrics,
			IsHidden:  h.IsHidden,
			CreatedAt: orDefault(h.CreatedAt, stamp),
			UpdatedAt: orDefault(h.UpdatedAt, stamp),
		})
	}

	if in.Profile != nil {
		p := in.Profile
		doc.Profile = &types.BackupProfile{
			FullName: p.FullName,
			Email:    blankToNil(p.Email),
			Phone:    blankToNil(p.Phone),
			Location: blankToNil(p.Location),
			LinkedIn: blankToNil(p.LinkedIn),
			GitHub:   blankToNil(p.GitHub),
			Website:  blankToNil(p.Website),
			Telegram: blankToNil(p.Telegram),
		}
	}
	return doc, nil
}

// resolveJob links a highlight to a job slug: an explicit jobId wins, then the job
// named by "job", else the highlight stays unlinked.
func resolveJob(h relaxedHighlight, byName map[string]string) *string {
	if h.JobID != nil && *h.JobID != "" {
		slug := *h.JobID
		return &slug
	}
	if h.Job != nil && *h.Job != "" {
		if slug, ok := byName[strings.ToLower(strings.TrimSpace(*h.Job))]; ok {
			return &slug
		}
	}
	return nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func blankToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
