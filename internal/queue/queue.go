// Package queue materializes extracted candidates as the persistent
// validation queue: a JSON snapshot of human-readable syntheses grouped by
// candidate type. Re-running extraction regenerates the snapshot
// deterministically; reviewer decisions live in the store and are joined on
// candidate id, so they survive regeneration.
package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/item-teatro/comedia-cli/internal/model"
)

// Synthesis is one queue entry: the prose summary a reviewer reads plus the
// full candidate for the decision form.
type Synthesis struct {
	CandidateID string              `json:"candidate_id"`
	Type        model.CandidateType `json:"type"`
	Confidence  model.Confidence    `json:"confidence"`
	Source      model.Source        `json:"source"`
	Page        int                 `json:"page,omitempty"`
	ImageRef    string              `json:"image_ref,omitempty"`
	Text        string              `json:"text"`
	Candidate   model.Candidate     `json:"candidate"`
}

// Counts summarizes the snapshot for the report header.
type Counts struct {
	Total        int                         `json:"total"`
	ByType       map[model.CandidateType]int `json:"by_type"`
	ByConfidence map[model.Confidence]int    `json:"by_confidence"`
	BySource     map[model.Source]int        `json:"by_source"`
}

// Snapshot is the on-disk validation queue document.
type Snapshot struct {
	GeneratedAt time.Time                           `json:"generated_at"`
	InputPath   string                              `json:"input_path"`
	Counts      Counts                              `json:"counts"`
	Syntheses   map[model.CandidateType][]Synthesis `json:"syntheses"`
	Conflicts   []model.ConflictNote                `json:"conflicts,omitempty"`
}

// Build renders candidates into a snapshot. Candidates are sorted by
// (source, page, id) before grouping so the document is byte-stable across
// runs over the same input.
func Build(cands []model.Candidate, conflicts []model.ConflictNote, inputPath string, now time.Time) *Snapshot {
	sorted := append([]model.Candidate(nil), cands...)
	model.SortCandidates(sorted)

	snap := &Snapshot{
		GeneratedAt: now.UTC(),
		InputPath:   inputPath,
		Counts: Counts{
			ByType:       map[model.CandidateType]int{},
			ByConfidence: map[model.Confidence]int{},
			BySource:     map[model.Source]int{},
		},
		Syntheses: map[model.CandidateType][]Synthesis{},
		Conflicts: conflicts,
	}
	for _, c := range sorted {
		snap.Syntheses[c.Type] = append(snap.Syntheses[c.Type], Synthesize(c))
		snap.Counts.Total++
		snap.Counts.ByType[c.Type]++
		snap.Counts.ByConfidence[c.Confidence]++
		snap.Counts.BySource[c.Provenance.Source]++
	}
	return snap
}

// Append merges new candidates into an existing snapshot, deduplicating on
// candidate id. Existing entries win so earlier provenance is never rewritten.
func (s *Snapshot) Append(cands []model.Candidate, now time.Time) {
	seen := map[string]bool{}
	all := make([]model.Candidate, 0, s.Counts.Total+len(cands))
	for _, group := range s.Syntheses {
		for _, syn := range group {
			if !seen[syn.CandidateID] {
				seen[syn.CandidateID] = true
				all = append(all, syn.Candidate)
			}
		}
	}
	for _, c := range cands {
		if !seen[c.ID] {
			seen[c.ID] = true
			all = append(all, c)
		}
	}
	rebuilt := Build(all, s.Conflicts, s.InputPath, now)
	s.GeneratedAt = rebuilt.GeneratedAt
	s.Counts = rebuilt.Counts
	s.Syntheses = rebuilt.Syntheses
}

// All returns every synthesis in (source, page, id) order.
func (s *Snapshot) All() []Synthesis {
	var cands []model.Candidate
	for _, group := range s.Syntheses {
		for _, syn := range group {
			cands = append(cands, syn.Candidate)
		}
	}
	model.SortCandidates(cands)
	out := make([]Synthesis, len(cands))
	for i, c := range cands {
		out[i] = Synthesize(c)
	}
	return out
}

// Candidate looks up one candidate by id.
func (s *Snapshot) Candidate(id string) (model.Candidate, bool) {
	for _, group := range s.Syntheses {
		for _, syn := range group {
			if syn.CandidateID == id {
				return syn.Candidate, true
			}
		}
	}
	return model.Candidate{}, false
}

// Filter narrows a pending listing.
type Filter struct {
	Source        model.Source
	MinConfidence model.Confidence
	Limit         int
}

// ListPending returns the syntheses without an active decision, filtered and
// in stable (source, page, id) order. decided maps candidate id to the
// latest verdict.
func (s *Snapshot) ListPending(decided map[string]model.Verdict, f Filter) []Synthesis {
	var out []Synthesis
	for _, syn := range s.All() {
		if _, done := decided[syn.CandidateID]; done {
			continue
		}
		if f.Source != "" && syn.Source != f.Source {
			continue
		}
		if f.MinConfidence != "" && syn.Confidence.Rank() < f.MinConfidence.Rank() {
			continue
		}
		out = append(out, syn)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

// Save writes the snapshot as indented JSON, creating parent directories.
func (s *Snapshot) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "queue: create snapshot directory for %s", path)
	}
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return eris.Wrap(err, "queue: encode snapshot")
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return eris.Wrapf(err, "queue: write snapshot %s", path)
	}
	zap.L().Info("queue snapshot written",
		zap.String("path", path),
		zap.Int("candidates", s.Counts.Total))
	return nil
}

// Load reads a snapshot written by Save.
func Load(path string) (*Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "queue: read snapshot %s", path)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, eris.Wrapf(err, "queue: parse snapshot %s", path)
	}
	return &snap, nil
}
