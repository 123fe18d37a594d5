// Package fuse matches work candidates across sources by normalized title,
// merges their non-conflicting fields, and flags divergent performance facts
// as conflict notes. Nothing is ever dropped: conflicting candidates stay in
// the output stream and the note preserves both sides verbatim.
package fuse

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/item-teatro/comedia-cli/internal/model"
	"github.com/item-teatro/comedia-cli/internal/normalize"
)

// conflictWindow is how far apart two performance dates may sit and still be
// treated as the same staging event when other fields disagree.
const conflictWindow = 24 * time.Hour

// Result is the fused candidate stream plus the parallel conflict stream.
type Result struct {
	Candidates []model.Candidate    `json:"candidates"`
	Conflicts  []model.ConflictNote `json:"conflicts"`
}

// Fuse groups candidates by normalized work title and applies union semantics
// within each group: alternative titles accumulate, an attributed author fills
// an anonymous one, and every performance survives. Performances of the same
// work dated within a day of each other but disagreeing on company, venue or
// exact date produce one conflict note per disagreeing pair.
func Fuse(cands []model.Candidate) Result {
	groups := map[string][]model.Candidate{}
	var order []string
	var passthrough []model.Candidate

	for _, c := range cands {
		key := titleKeyOf(c)
		if key == "" {
			passthrough = append(passthrough, c)
			continue
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], c)
	}
	sort.Strings(order)

	var res Result
	res.Candidates = append(res.Candidates, passthrough...)
	for _, key := range order {
		fuseGroup(groups[key], &res)
	}

	model.SortCandidates(res.Candidates)
	sort.SliceStable(res.Conflicts, func(i, j int) bool { return res.Conflicts[i].ID < res.Conflicts[j].ID })

	zap.L().Info("fusion complete",
		zap.Int("titles", len(order)),
		zap.Int("candidates", len(res.Candidates)),
		zap.Int("conflicts", len(res.Conflicts)))
	return res
}

func titleKeyOf(c model.Candidate) string {
	switch {
	case c.Work != nil:
		return normalize.TitleKey(c.Work.Title)
	case c.Performance != nil:
		return normalize.TitleKey(c.Performance.WorkTitle)
	}
	return ""
}

func fuseGroup(group []model.Candidate, res *Result) {
	var works, performances []model.Candidate
	for _, c := range group {
		if c.Work != nil {
			works = append(works, c)
		} else {
			performances = append(performances, c)
		}
	}

	merged, attributionNote := mergeWorks(works)
	if merged != nil {
		res.Candidates = append(res.Candidates, *merged)
		for i := range performances {
			performances[i].Performance.WorkTitle = merged.Work.Title
		}
	}
	if attributionNote != nil {
		res.Conflicts = append(res.Conflicts, *attributionNote)
	}

	res.Candidates = append(res.Candidates, performances...)
	res.Conflicts = append(res.Conflicts, performanceConflicts(performances)...)
}

// mergeWorks folds a title group's work candidates into one. The base is the
// best-graded candidate; later ones contribute alternative titles, fill an
// anonymous author, and fill a missing genre. Two distinct attributed authors
// are a conflict, not a merge.
func mergeWorks(works []model.Candidate) (*model.Candidate, *model.ConflictNote) {
	if len(works) == 0 {
		return nil, nil
	}
	model.SortCandidates(works)
	sort.SliceStable(works, func(i, j int) bool {
		return works[i].Confidence.Rank() > works[j].Confidence.Rank()
	})

	base := works[0]
	wc := *base.Work
	wc.AlternativeTitles = append([]string(nil), wc.AlternativeTitles...)
	wc.CrossRefs = append([]model.CrossReference(nil), wc.CrossRefs...)

	var note *model.ConflictNote
	for _, other := range works[1:] {
		ow := other.Work
		if ow.Title != wc.Title {
			wc.AlternativeTitles = appendUniqueTitle(wc.AlternativeTitles, ow.Title, wc.Title)
		}
		for _, alt := range ow.AlternativeTitles {
			wc.AlternativeTitles = appendUniqueTitle(wc.AlternativeTitles, alt, wc.Title)
		}
		wc.CrossRefs = append(wc.CrossRefs, ow.CrossRefs...)
		if wc.Genre == "" {
			wc.Genre = ow.Genre
		}
		switch {
		case wc.Author == model.AuthorAnonymous:
			wc.Author = ow.Author
		case ow.Author != model.AuthorAnonymous && normalize.Fold(ow.Author) != normalize.Fold(wc.Author) && note == nil:
			note = attributionConflict(wc.Title, base, other)
		}
	}

	base.Work = &wc
	return &base, note
}

func attributionConflict(title string, a, b model.Candidate) *model.ConflictNote {
	return &model.ConflictNote{
		ID:        noteID(a.ID, b.ID),
		WorkTitle: title,
		Field:     model.ConflictAttribution,
		Description: fmt.Sprintf("Dos fuentes atribuyen «%s» a autores distintos: %s (%s) frente a %s (%s).",
			title, a.Work.Author, a.Provenance.Source, b.Work.Author, b.Provenance.Source),
		CandidateIDs: []string{a.ID, b.ID},
		Candidates:   []model.Candidate{a, b},
	}
}

// performanceConflicts compares every pair of a work's performances. A pair
// conflicts when both dates parsed, they fall within a day of each other, and
// the exact date, company, or venue diverges.
func performanceConflicts(performances []model.Candidate) []model.ConflictNote {
	var notes []model.ConflictNote
	for i := 0; i < len(performances); i++ {
		for j := i + 1; j < len(performances); j++ {
			if note := comparePair(performances[i], performances[j]); note != nil {
				notes = append(notes, *note)
			}
		}
	}
	return notes
}

func comparePair(a, b model.Candidate) *model.ConflictNote {
	pa, pb := a.Performance, b.Performance
	if !withinWindow(pa.Date, pb.Date) {
		return nil
	}

	var field model.ConflictField
	var detail string
	switch {
	case pa.Date.ISO != pb.Date.ISO:
		field = model.ConflictDate
		detail = fmt.Sprintf("la fecha: %s frente a %s", pa.Date.ISO, pb.Date.ISO)
	case divergent(pa.Company, pb.Company):
		field = model.ConflictCompany
		detail = fmt.Sprintf("la compañía: %s frente a %s", pa.Company, pb.Company)
	case divergent(pa.Venue.Name, pb.Venue.Name):
		field = model.ConflictVenue
		detail = fmt.Sprintf("el lugar: %s frente a %s", pa.Venue.Name, pb.Venue.Name)
	default:
		return nil
	}

	return &model.ConflictNote{
		ID:        noteID(a.ID, b.ID),
		WorkTitle: pa.WorkTitle,
		Field:     field,
		Description: fmt.Sprintf("Dos noticias de «%s» (%s p.%d y %s p.%d) discrepan en %s.",
			pa.WorkTitle, a.Provenance.Source, a.Provenance.Page, b.Provenance.Source, b.Provenance.Page, detail),
		CandidateIDs: []string{a.ID, b.ID},
		Candidates:   []model.Candidate{a, b},
	}
}

func withinWindow(a, b model.PerformanceDate) bool {
	ta, okA := parseISO(a.ISO)
	tb, okB := parseISO(b.ISO)
	if !okA || !okB {
		return false
	}
	d := ta.Sub(tb)
	if d < 0 {
		d = -d
	}
	return d <= conflictWindow
}

func parseISO(iso string) (time.Time, bool) {
	if iso == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", iso)
	return t, err == nil
}

// divergent reports a real disagreement: both values present and different
// under folded comparison. A missing value on one side is not a conflict.
func divergent(a, b string) bool {
	return a != "" && b != "" && normalize.Fold(a) != normalize.Fold(b)
}

func appendUniqueTitle(list []string, title, canonical string) []string {
	if title == "" || normalize.TitleKey(title) == normalize.TitleKey(canonical) {
		return list
	}
	for _, t := range list {
		if normalize.TitleKey(t) == normalize.TitleKey(title) {
			return list
		}
	}
	return append(list, title)
}

// noteID is a deterministic hash of the participating candidate ids, so
// re-running fusion over the same queue yields the same note ids.
func noteID(ids ...string) string {
	sort.Strings(ids)
	sum := sha256.Sum256([]byte(strings.Join(ids, "|")))
	return hex.EncodeToString(sum[:])[:16]
}
