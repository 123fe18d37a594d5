package integrate

import (
	"time"

	"github.com/item-teatro/comedia-cli/internal/model"
)

// Outcome classifies what integration did with one candidate.
type Outcome string

const (
	OutcomeInserted Outcome = "inserted"
	OutcomeUpdated  Outcome = "updated"
	OutcomeNoop     Outcome = "noop"
	OutcomeConflict Outcome = "conflict"
	OutcomeSkipped  Outcome = "skipped"
)

// RecordOutcome is the per-candidate line of the integration report.
type RecordOutcome struct {
	CandidateID string              `json:"candidate_id"`
	Type        model.CandidateType `json:"type"`
	Outcome     Outcome             `json:"outcome"`
	Detail      string              `json:"detail,omitempty"`
}

// Report enumerates every processed candidate and the run totals. A failed
// record never aborts the batch; it appears here as skipped with the
// underlying message.
type Report struct {
	Version   string               `json:"version,omitempty"`
	DryRun    bool                 `json:"dry_run"`
	StartedAt time.Time            `json:"started_at"`
	Records   []RecordOutcome      `json:"records"`
	Counts    map[Outcome]int      `json:"counts"`
	Conflicts []model.ConflictNote `json:"conflicts,omitempty"`
}

func (r *Report) add(id string, t model.CandidateType, outcome Outcome, detail string) {
	r.Records = append(r.Records, RecordOutcome{CandidateID: id, Type: t, Outcome: outcome, Detail: detail})
	r.Counts[outcome]++
}

// Mutations counts the outcomes that changed the store.
func (r *Report) Mutations() int {
	return r.Counts[OutcomeInserted] + r.Counts[OutcomeUpdated]
}
