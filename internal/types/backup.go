package types

// BackupVersion is the current backup document format version.
const BackupVersion = "1.0"

// BackupDocument is the portable, slug-keyed serialization of a full dataset.
// Field names are camelCase and must stay stable so old backups keep importing.
type BackupDocument struct {
	Version    string            `json:"version"`
	ExportedAt string            `json:"exportedAt"`
	Jobs       []BackupJob       `json:"jobs"`
	Highlights []BackupHighlight `json:"highlights"`
	Profile    *BackupProfile    `json:"profile,omitempty"`
}

// IsEmpty reports whether the document carries no jobs, no highlights and no named profile.
func (d *BackupDocument) IsEmpty() bool {
	if d == nil {
		return true
	}
	return len(d.Jobs) == 0 && len(d.Highlights) == 0 && (d.Profile == nil || d.Profile.FullName == "")
}

// BackupJob is a job keyed by its slug. Presence and shape of fields are checked by
// the backup JSON Schema; the validate tags cover the formats the schema cannot express.
type BackupJob struct {
	ID        string  `json:"id" validate:"omitempty,slug"`
	Company   string  `json:"company"`
	Role      string  `json:"role"`
	StartDate string  `json:"startDate"`
	EndDate   *string `json:"endDate"`
	LogoURL   *string `json:"logoUrl"`
	Website   *string `json:"website"`
	CreatedAt string  `json:"createdAt" validate:"omitempty,timestamp"`
	UpdatedAt string  `json:"updatedAt" validate:"omitempty,timestamp"`
}

// BackupHighlight is a highlight keyed by its slug; JobID holds the parent job's slug.
type BackupHighlight struct {
	ID        string        `json:"id" validate:"omitempty,slug"`
	JobID     *string       `json:"jobId" validate:"omitempty,slug"`
	Type      HighlightType `json:"type"`
	Title     string        `json:"title"`
	Content   string        `json:"content"`
	StartDate string        `json:"startDate"`
	EndDate   *string       `json:"endDate"`
	Domains   []string      `json:"domains"`
	Skills    []string      `json:"skills"`
	Keywords  []string      `json:"keywords"`
	Metrics   []Metric      `json:"metrics"`
	IsHidden  bool          `json:"isHidden"`
	CreatedAt string        `json:"createdAt" validate:"omitempty,timestamp"`
	UpdatedAt string        `json:"updatedAt" validate:"omitempty,timestamp"`
}

// BackupProfile is the profile as carried in a backup document.
type BackupProfile struct {
	FullName string  `json:"fullName"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Location *string `json:"location"`
	LinkedIn *string `json:"linkedin"`
	GitHub   *string `json:"github"`
	Website  *string `json:"website"`
	Telegram *string `json:"telegram"`
}

// ImportErrorKind classifies an import failure.
type ImportErrorKind string

// Import error kinds
const (
	ImportErrorValidation ImportErrorKind = "validation"
	ImportErrorJob        ImportErrorKind = "job"
	ImportErrorHighlight  ImportErrorKind = "highlight"
	ImportErrorProfile    ImportErrorKind = "profile"
)

// ImportError is one entry in the import error ledger. Slug names the failing row,
// Field names the offending path for validation errors.
type ImportError struct {
	Kind    ImportErrorKind `json:"kind"`
	Slug    string          `json:"slug,omitempty"`
	Field   string          `json:"field,omitempty"`
	Message string          `json:"message"`
}

func (e ImportError) String() string {
	switch {
	case e.Field != "":
		return e.Field + ": " + e.Message
	case e.Slug != "":
		return string(e.Kind) + " " + e.Slug + ": " + e.Message
	default:
		return string(e.Kind) + ": " + e.Message
	}
}

// ImportResult summarizes an import. Success is true iff Errors is empty.
type ImportResult struct {
	Success            bool          `json:"success"`
	JobsImported       int           `json:"jobsImported"`
	JobsCreated        int           `json:"jobsCreated"`
	HighlightsImported int           `json:"highlightsImported"`
	HighlightsCreated  int           `json:"highlightsCreated"`
	ProfileImported    bool          `json:"profileImported"`
	Errors             []ImportError `json:"errors"`
}
