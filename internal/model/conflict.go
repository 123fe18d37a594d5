package model

// ConflictField names the fact two candidates disagree on.
type ConflictField string

const (
	ConflictDate        ConflictField = "date"
	ConflictVenue       ConflictField = "venue"
	ConflictCompany     ConflictField = "company"
	ConflictAttribution ConflictField = "attribution"
)

// ConflictNote records a disagreement between two or more candidates about
// the same work. Both sides are preserved verbatim; notes are surfaced during
// validation and never auto-resolved.
type ConflictNote struct {
	ID                 string        `json:"id"`
	WorkTitle          string        `json:"work_title"`
	Field              ConflictField `json:"field"`
	Description        string        `json:"description"`
	CandidateIDs       []string      `json:"candidate_ids"`
	Candidates         []Candidate   `json:"candidates"`
	ProposedResolution string        `json:"proposed_resolution,omitempty"`
}
