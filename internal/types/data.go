package types

// RawData is the id-keyed dump of a whole store that backup export projects from.
// Unlike BackupDocument it keeps store identifiers.
type RawData struct {
	Jobs       []Job       `json:"jobs"`
	Highlights []Highlight `json:"highlights"`
	Profile    *Profile    `json:"profile,omitempty"`
}

// IsEmpty reports whether the dump has no jobs, no highlights and no named profile.
func (d *RawData) IsEmpty() bool {
	if d == nil {
		return true
	}
	return len(d.Jobs) == 0 && len(d.Highlights) == 0 && (d.Profile == nil || d.Profile.FullName == "")
}

// ClearResult reports how many rows ClearDatabase removed.
type ClearResult struct {
	JobsDeleted       int `json:"jobs_deleted"`
	HighlightsDeleted int `json:"highlights_deleted"`
}
