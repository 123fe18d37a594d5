// Package integrate moves accepted candidates from the validation queue into
// the canonical store. The integrator is the only component that mutates
// persistent state: it processes candidates in decision-timestamp order,
// writes the audit row before every mutation, upserts by identity, and routes
// field divergence to conflict notes instead of overwriting. Dry-run computes
// the full diff without touching the store and is the default.
package integrate

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/item-teatro/comedia-cli/internal/model"
	"github.com/item-teatro/comedia-cli/internal/normalize"
	"github.com/item-teatro/comedia-cli/internal/queue"
	"github.com/item-teatro/comedia-cli/internal/store"
)

// Options controls an integration run.
type Options struct {
	DryRun  bool
	Version string
}

// Integrator applies accepted candidates to the store.
type Integrator struct {
	store store.Store
}

// New builds an integrator over the given store.
func New(st store.Store) *Integrator {
	return &Integrator{store: st}
}

// overlay tracks identities inserted during this run, so dry-run sees its
// own would-be writes and apply mode avoids duplicate supporting rows.
type overlay struct {
	works        map[string]*model.Work
	performances map[string]*model.Performance
	places       map[string]bool
	companies    map[string]bool
}

func newOverlay() *overlay {
	return &overlay{
		works:        map[string]*model.Work{},
		performances: map[string]*model.Performance{},
		places:       map[string]bool{},
		companies:    map[string]bool{},
	}
}

// Run integrates every candidate whose latest decision is accepted, in
// decision-timestamp order. Per-record failures are reported as skipped and
// never abort the batch.
func (it *Integrator) Run(ctx context.Context, snap *queue.Snapshot, opts Options) (*Report, error) {
	decisions, err := it.store.LatestDecisions(ctx)
	if err != nil {
		return nil, err
	}

	type job struct {
		candidate model.Candidate
		decision  model.Decision
	}
	var jobs []job
	for id, d := range decisions {
		if d.Verdict != model.VerdictAccepted {
			continue
		}
		c, ok := snap.Candidate(id)
		if !ok {
			continue
		}
		jobs = append(jobs, job{candidate: c, decision: d})
	}
	sort.SliceStable(jobs, func(i, j int) bool {
		if !jobs[i].decision.DecidedAt.Equal(jobs[j].decision.DecidedAt) {
			return jobs[i].decision.DecidedAt.Before(jobs[j].decision.DecidedAt)
		}
		return jobs[i].candidate.ID < jobs[j].candidate.ID
	})

	report := &Report{
		Version:   opts.Version,
		DryRun:    opts.DryRun,
		StartedAt: time.Now().UTC(),
		Counts:    map[Outcome]int{},
	}
	ov := newOverlay()

	for _, j := range jobs {
		outcome, detail, err := it.integrateOne(ctx, j.candidate, j.decision, opts, ov, report)
		if err != nil {
			report.add(j.candidate.ID, j.candidate.Type, OutcomeSkipped, err.Error())
			zap.L().Warn("candidate skipped",
				zap.String("candidate_id", j.candidate.ID),
				zap.Error(err))
			continue
		}
		report.add(j.candidate.ID, j.candidate.Type, outcome, detail)
	}

	zap.L().Info("integration run complete",
		zap.Bool("dry_run", opts.DryRun),
		zap.String("version", opts.Version),
		zap.Int("inserted", report.Counts[OutcomeInserted]),
		zap.Int("updated", report.Counts[OutcomeUpdated]),
		zap.Int("noop", report.Counts[OutcomeNoop]),
		zap.Int("conflict", report.Counts[OutcomeConflict]),
		zap.Int("skipped", report.Counts[OutcomeSkipped]))
	return report, nil
}

func (it *Integrator) integrateOne(ctx context.Context, c model.Candidate, d model.Decision, opts Options, ov *overlay, report *Report) (Outcome, string, error) {
	switch {
	case c.Work != nil:
		return it.integrateWork(ctx, c, d, opts, ov, report)
	case c.Performance != nil:
		return it.integratePerformance(ctx, c, d, opts, ov, report)
	case c.Place != nil:
		return it.integratePlace(ctx, c, d, opts, ov)
	}
	return OutcomeSkipped, "", fmt.Errorf("candidate %s carries no payload", c.ID)
}

func (it *Integrator) integrateWork(ctx context.Context, c model.Candidate, d model.Decision, opts Options, ov *overlay, report *Report) (Outcome, string, error) {
	wc := c.Work
	incoming := model.Work{
		Title:             wc.Title,
		AlternativeTitles: wc.AlternativeTitles,
		Author:            wc.Author,
		Genre:             wc.Genre,
	}

	existing, err := it.lookupWork(ctx, ov, wc.Title)
	if err != nil {
		return "", "", err
	}
	if existing == nil {
		if err := it.writeWork(ctx, c, d, opts, ov, incoming, nil); err != nil {
			return "", "", err
		}
		return OutcomeInserted, "", nil
	}

	merged, conflict := mergeWork(*existing, incoming)
	if conflict != nil {
		conflict.CandidateIDs = []string{c.ID}
		conflict.Candidates = []model.Candidate{c}
		report.Conflicts = append(report.Conflicts, *conflict)
		return OutcomeConflict, conflict.Description, nil
	}
	if workEqual(*existing, merged) {
		return OutcomeNoop, "", nil
	}
	if err := it.writeWork(ctx, c, d, opts, ov, merged, existing); err != nil {
		return "", "", err
	}
	return OutcomeUpdated, "", nil
}

func (it *Integrator) integratePerformance(ctx context.Context, c model.Candidate, d model.Decision, opts Options, ov *overlay, report *Report) (Outcome, string, error) {
	pc := c.Performance
	p := model.Performance{
		ID:           c.ID,
		WorkTitle:    pc.WorkTitle,
		Date:         pc.Date,
		Company:      pc.Company,
		Venue:        pc.Venue.Name,
		Patron:       pc.Patron,
		FunctionType: pc.FunctionType,
		Audience:     pc.Audience,
		Observations: pc.Observations,
		Provenance:   c.Provenance,
	}

	key := p.IdentityKey()
	existing, err := it.lookupPerformance(ctx, ov, key)
	if err != nil {
		return "", "", err
	}
	if existing != nil {
		if performanceEqual(*existing, p) {
			return OutcomeNoop, "", nil
		}
		note := model.ConflictNote{
			WorkTitle: p.WorkTitle,
			Field:     model.ConflictVenue,
			Description: fmt.Sprintf("La noticia %s coincide en identidad con un registro ya integrado pero difiere en otros campos; no se sobrescribe.",
				c.ID),
			CandidateIDs: []string{c.ID},
			Candidates:   []model.Candidate{c},
		}
		report.Conflicts = append(report.Conflicts, note)
		return OutcomeConflict, note.Description, nil
	}

	if err := it.ensureWork(ctx, c, d, opts, ov, pc.WorkTitle); err != nil {
		return "", "", err
	}
	if pc.Venue.Name != "" {
		if err := it.ensurePlace(ctx, c, d, opts, ov, pc.Venue); err != nil {
			return "", "", err
		}
	}
	if pc.Company != "" {
		if err := it.ensureCompany(ctx, c, d, opts, ov, pc.Company); err != nil {
			return "", "", err
		}
	}

	if err := it.audit(ctx, c, d, opts, "performances", nil, p); err != nil {
		return "", "", err
	}
	if !opts.DryRun {
		if err := it.store.InsertPerformance(ctx, p); err != nil {
			return "", "", err
		}
	}
	stored := p
	ov.performances[key] = &stored
	return OutcomeInserted, "", nil
}

func (it *Integrator) integratePlace(ctx context.Context, c model.Candidate, d model.Decision, opts Options, ov *overlay) (Outcome, string, error) {
	place := model.Place{
		Name:    c.Place.Name,
		Type:    c.Place.Type,
		City:    c.Place.City,
		Region:  c.Place.Region,
		Pending: true,
	}
	inserted, err := it.ensurePlaceRow(ctx, c, d, opts, ov, place)
	if err != nil {
		return "", "", err
	}
	if !inserted {
		return OutcomeNoop, "", nil
	}
	return OutcomeInserted, "", nil
}

// lookups consult the run overlay first so dry-run sees its own writes.

func (it *Integrator) lookupWork(ctx context.Context, ov *overlay, title string) (*model.Work, error) {
	if w, ok := ov.works[title]; ok {
		return w, nil
	}
	return it.store.GetWork(ctx, title)
}

func (it *Integrator) lookupPerformance(ctx context.Context, ov *overlay, key string) (*model.Performance, error) {
	if p, ok := ov.performances[key]; ok {
		return p, nil
	}
	return it.store.GetPerformance(ctx, key)
}

// writes

func (it *Integrator) writeWork(ctx context.Context, c model.Candidate, d model.Decision, opts Options, ov *overlay, w model.Work, before *model.Work) error {
	if err := it.audit(ctx, c, d, opts, "works", before, w); err != nil {
		return err
	}
	if !opts.DryRun {
		var err error
		if before == nil {
			err = it.store.InsertWork(ctx, w)
		} else {
			err = it.store.UpdateWork(ctx, w)
		}
		if err != nil {
			return err
		}
	}
	stored := w
	ov.works[w.Title] = &stored
	return nil
}

func (it *Integrator) ensureWork(ctx context.Context, c model.Candidate, d model.Decision, opts Options, ov *overlay, title string) error {
	existing, err := it.lookupWork(ctx, ov, title)
	if err != nil || existing != nil {
		return err
	}
	stub := model.Work{Title: title, Author: model.AuthorAnonymous}
	return it.writeWork(ctx, c, d, opts, ov, stub, nil)
}

func (it *Integrator) ensurePlace(ctx context.Context, c model.Candidate, d model.Decision, opts Options, ov *overlay, place model.Place) error {
	_, err := it.ensurePlaceRow(ctx, c, d, opts, ov, place)
	return err
}

func (it *Integrator) ensurePlaceRow(ctx context.Context, c model.Candidate, d model.Decision, opts Options, ov *overlay, place model.Place) (bool, error) {
	if ov.places[place.Name] {
		return false, nil
	}
	existing, err := it.store.GetPlace(ctx, place.Name)
	if err != nil {
		return false, err
	}
	if existing != nil {
		ov.places[place.Name] = true
		return false, nil
	}
	if err := it.audit(ctx, c, d, opts, "places", nil, place); err != nil {
		return false, err
	}
	if !opts.DryRun {
		if err := it.store.InsertPlace(ctx, place); err != nil {
			return false, err
		}
	}
	ov.places[place.Name] = true
	return true, nil
}

func (it *Integrator) ensureCompany(ctx context.Context, c model.Candidate, d model.Decision, opts Options, ov *overlay, name string) error {
	if ov.companies[name] {
		return nil
	}
	existing, err := it.store.GetCompany(ctx, name)
	if err != nil {
		return err
	}
	if existing != nil {
		ov.companies[name] = true
		return nil
	}
	company := model.Company{Name: name, Director: name}
	if err := it.audit(ctx, c, d, opts, "companies", nil, company); err != nil {
		return err
	}
	if !opts.DryRun {
		if err := it.store.InsertCompany(ctx, company); err != nil {
			return err
		}
	}
	ov.companies[name] = true
	return nil
}

// audit writes the audit row for an effective change. It runs before the
// mutation; in dry-run mode nothing is written, the row is only computed so
// encoding errors surface.
func (it *Integrator) audit(ctx context.Context, c model.Candidate, d model.Decision, opts Options, table string, before, after any) error {
	entry := store.AuditEntry{
		Timestamp:   time.Now().UTC(),
		Reviewer:    d.Reviewer,
		CandidateID: c.ID,
		Table:       table,
		RunVersion:  opts.Version,
	}
	if before != nil {
		raw, err := json.Marshal(before)
		if err != nil {
			return err
		}
		entry.Before = string(raw)
	}
	raw, err := json.Marshal(after)
	if err != nil {
		return err
	}
	entry.After = string(raw)

	if opts.DryRun {
		return nil
	}
	return it.store.AppendAudit(ctx, entry)
}

// mergeWork applies union semantics to an existing work: alternative titles
// accumulate, an attributed author fills an anonymous one, genre fills a
// blank. Two distinct attributed authors are a conflict.
func mergeWork(existing, incoming model.Work) (model.Work, *model.ConflictNote) {
	merged := existing
	for _, alt := range incoming.AlternativeTitles {
		if !containsTitle(merged.AlternativeTitles, alt) {
			merged.AlternativeTitles = append(merged.AlternativeTitles, alt)
		}
	}
	if merged.Genre == "" {
		merged.Genre = incoming.Genre
	}
	switch {
	case existing.Anonymous():
		merged.Author = incoming.Author
	case !incoming.Anonymous() && normalize.Fold(incoming.Author) != normalize.Fold(existing.Author):
		return existing, &model.ConflictNote{
			WorkTitle: existing.Title,
			Field:     model.ConflictAttribution,
			Description: fmt.Sprintf("«%s» ya está atribuida a %s; la noticia aceptada la atribuye a %s.",
				existing.Title, existing.Author, incoming.Author),
		}
	}
	return merged, nil
}

func workEqual(a, b model.Work) bool {
	if a.Title != b.Title || a.Author != b.Author || a.Genre != b.Genre {
		return false
	}
	if len(a.AlternativeTitles) != len(b.AlternativeTitles) {
		return false
	}
	for i := range a.AlternativeTitles {
		if a.AlternativeTitles[i] != b.AlternativeTitles[i] {
			return false
		}
	}
	return true
}

func performanceEqual(a, b model.Performance) bool {
	return a.Patron == b.Patron &&
		a.FunctionType == b.FunctionType &&
		a.Audience == b.Audience &&
		a.Observations == b.Observations
}

func containsTitle(list []string, title string) bool {
	for _, t := range list {
		if normalize.TitleKey(t) == normalize.TitleKey(title) {
			return true
		}
	}
	return false
}
