package model

import "sort"

// CandidateType tags which variant a Candidate carries.
type CandidateType string

const (
	CandidateWork        CandidateType = "work"
	CandidatePerformance CandidateType = "performance"
	CandidatePlace       CandidateType = "place"
)

// Confidence grades how complete an extraction was.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank orders confidences for filtering; higher is better.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}

// Candidate is an extracted record awaiting validation. Exactly one of the
// typed payloads is set, matching Type. The ID is a deterministic hash of
// the provenance, stable across pipeline re-runs.
type Candidate struct {
	ID          string                `json:"id"`
	Type        CandidateType         `json:"type"`
	Confidence  Confidence            `json:"confidence"`
	Provenance  Provenance            `json:"provenance"`
	Work        *WorkCandidate        `json:"work,omitempty"`
	Performance *PerformanceCandidate `json:"performance,omitempty"`
	Place       *PlaceCandidate       `json:"place,omitempty"`
}

// NewCandidate builds a candidate envelope with its deterministic id.
func NewCandidate(t CandidateType, conf Confidence, prov Provenance) Candidate {
	return Candidate{
		ID:         prov.CandidateID(),
		Type:       t,
		Confidence: conf,
		Provenance: prov,
	}
}

// SortCandidates orders candidates by (source, page, candidate id), the
// stable ordering the validation queue and every listing surface use.
func SortCandidates(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Provenance.Source != cs[j].Provenance.Source {
			return cs[i].Provenance.Source < cs[j].Provenance.Source
		}
		if cs[i].Provenance.Page != cs[j].Provenance.Page {
			return cs[i].Provenance.Page < cs[j].Provenance.Page
		}
		return cs[i].ID < cs[j].ID
	})
}
