package model

import "time"

// Verdict is the reviewer's call on a candidate.
type Verdict string

const (
	VerdictAccepted Verdict = "accepted"
	VerdictRejected Verdict = "rejected"
)

// Decision records one accept/reject by a reviewer. Decisions are append
// only; the latest decision per candidate id is the active one and earlier
// rows remain as history.
type Decision struct {
	ID          string    `json:"id"`
	CandidateID string    `json:"candidate_id"`
	Verdict     Verdict   `json:"verdict"`
	Reviewer    string    `json:"reviewer"`
	Comment     string    `json:"comment,omitempty"`
	DecidedAt   time.Time `json:"decided_at"`
}

// Supersedes reports whether d would change the outcome recorded by prev.
// Identical re-decisions are no-ops.
func (d Decision) Supersedes(prev *Decision) bool {
	if prev == nil {
		return true
	}
	return d.Verdict != prev.Verdict || d.Comment != prev.Comment
}
