package integrate

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/item-teatro/comedia-cli/internal/model"
	"github.com/item-teatro/comedia-cli/internal/normalize"
	"github.com/item-teatro/comedia-cli/internal/queue"
	"github.com/item-teatro/comedia-cli/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func workCandidate(title, author string) model.Candidate {
	prov := model.Provenance{Source: model.SourceFuentesIX, Page: 51, Span: title}
	c := model.NewCandidate(model.CandidateWork, model.ConfidenceHigh, prov)
	c.Work = &model.WorkCandidate{Title: title, RawTitle: title, Author: author}
	return c
}

func perfCandidate(title, verbatimDate, company, venue string) model.Candidate {
	prov := model.Provenance{Source: model.SourceFuentesIX, Page: 51, Span: verbatimDate + ". " + company + ". " + venue}
	c := model.NewCandidate(model.CandidatePerformance, model.ConfidenceHigh, prov)
	c.Performance = &model.PerformanceCandidate{
		WorkTitle: title,
		Date:      normalize.ParseDate(verbatimDate),
		Company:   company,
		Venue:     model.Place{Name: venue, Type: model.PlacePalace, City: "Madrid"},
	}
	return c
}

func accept(t *testing.T, st store.Store, id string, at time.Time) {
	t.Helper()
	require.NoError(t, st.AppendDecision(context.Background(), model.Decision{
		CandidateID: id,
		Verdict:     model.VerdictAccepted,
		Reviewer:    "rgarcia",
		DecidedAt:   at,
	}))
}

func reject(t *testing.T, st store.Store, id string, at time.Time) {
	t.Helper()
	require.NoError(t, st.AppendDecision(context.Background(), model.Decision{
		CandidateID: id,
		Verdict:     model.VerdictRejected,
		Reviewer:    "rgarcia",
		DecidedAt:   at,
	}))
}

func snapshotOf(cands ...model.Candidate) *queue.Snapshot {
	return queue.Build(cands, nil, "", time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
}

func TestRun_DryRunThenApplyThenNoop(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	work := workCandidate("El Pastor Fido", "Antonio Coello")
	perf := perfCandidate("El Pastor Fido", "22 de enero de 1651", "Agustín Manuel", "Buen Retiro")
	snap := snapshotOf(work, perf)
	accept(t, st, work.ID, base)
	accept(t, st, perf.ID, base.Add(time.Minute))

	it := New(st)

	dry, err := it.Run(ctx, snap, Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 2, dry.Counts[OutcomeInserted])
	assert.Equal(t, 0, dry.Counts[OutcomeNoop])

	// Dry-run touched nothing.
	w, err := st.GetWork(ctx, "El Pastor Fido")
	require.NoError(t, err)
	assert.Nil(t, w)
	audit, err := st.ListAuditSince(ctx, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, audit)

	applied, err := it.Run(ctx, snap, Options{Version: "v1"})
	require.NoError(t, err)
	assert.Equal(t, 2, applied.Counts[OutcomeInserted])

	again, err := it.Run(ctx, snap, Options{Version: "v2"})
	require.NoError(t, err)
	assert.Equal(t, 0, again.Mutations())
	assert.Equal(t, 2, again.Counts[OutcomeNoop])
}

func TestRun_AuditBeforeMutation(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	perf := perfCandidate("La Dama duende", "4 de octubre de 1685", "Manuel de Mosquera", "Corral del Príncipe")
	snap := snapshotOf(perf)
	accept(t, st, perf.ID, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	_, err := New(st).Run(ctx, snap, Options{Version: "v1"})
	require.NoError(t, err)

	audit, err := st.ListAuditSince(ctx, time.Time{})
	require.NoError(t, err)
	// Stub work, place, company, then the performance itself.
	require.Len(t, audit, 4)
	tables := map[string]bool{}
	for _, e := range audit {
		tables[e.Table] = true
		assert.Equal(t, perf.ID, e.CandidateID)
		assert.Equal(t, "rgarcia", e.Reviewer)
		assert.Equal(t, "v1", e.RunVersion)
	}
	assert.True(t, tables["works"])
	assert.True(t, tables["places"])
	assert.True(t, tables["companies"])
	assert.True(t, tables["performances"])
}

func TestRun_ConflictInsteadOfOverwrite(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	first := perfCandidate("La Dama duende", "4 de octubre de 1685", "Manuel de Mosquera", "Corral del Príncipe")
	snap := snapshotOf(first)
	accept(t, st, first.ID, base)
	_, err := New(st).Run(ctx, snap, Options{})
	require.NoError(t, err)

	// Same identity tuple, different patron.
	second := perfCandidate("La Dama duende", "4 de octubre de 1685", "Manuel de Mosquera", "Corral del Príncipe")
	second.Provenance.Page = 52
	second.ID = second.Provenance.CandidateID()
	second.Performance.Patron = "el Duque de Osuna"
	snap2 := snapshotOf(first, second)
	accept(t, st, second.ID, base.Add(time.Hour))

	report, err := New(st).Run(ctx, snap2, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts[OutcomeConflict])
	require.Len(t, report.Conflicts, 1)

	// The stored row kept its original fields.
	p := first.Performance
	stored, err := st.GetPerformance(ctx, model.Performance{
		WorkTitle:  p.WorkTitle,
		Date:       p.Date,
		Company:    p.Company,
		Venue:      p.Venue.Name,
		Provenance: first.Provenance,
	}.IdentityKey())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Empty(t, stored.Patron)
}

func TestRun_DecisionSupersession(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	work := workCandidate("El Mágico prodigioso", "Calderón de la Barca")
	snap := snapshotOf(work)

	accept(t, st, work.ID, base)
	reject(t, st, work.ID, base.Add(time.Minute))
	accept(t, st, work.ID, base.Add(2*time.Minute))

	report, err := New(st).Run(ctx, snap, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts[OutcomeInserted])

	history, err := st.DecisionHistory(ctx, work.ID)
	require.NoError(t, err)
	assert.Len(t, history, 3)

	w, err := st.GetWork(ctx, "El Mágico prodigioso")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, "Calderón de la Barca", w.Author)
}

func TestRun_RejectedNeverIntegrated(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()

	work := workCandidate("La Renegada de Valladolid", model.AuthorAnonymous)
	snap := snapshotOf(work)
	reject(t, st, work.ID, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	report, err := New(st).Run(ctx, snap, Options{})
	require.NoError(t, err)
	assert.Empty(t, report.Records)

	w, err := st.GetWork(ctx, "La Renegada de Valladolid")
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestRun_WorkUpdateFillsAnonymous(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	anon := workCandidate("El Pastor Fido", model.AuthorAnonymous)
	snap := snapshotOf(anon)
	accept(t, st, anon.ID, base)
	_, err := New(st).Run(ctx, snap, Options{})
	require.NoError(t, err)

	attributed := workCandidate("El Pastor Fido", "Antonio Coello")
	attributed.Provenance.Source = model.SourceCATCOM
	attributed.Provenance.Page = 0
	attributed.ID = attributed.Provenance.CandidateID()
	snap2 := snapshotOf(anon, attributed)
	accept(t, st, attributed.ID, base.Add(time.Hour))

	report, err := New(st).Run(ctx, snap2, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts[OutcomeUpdated])
	assert.Equal(t, 1, report.Counts[OutcomeNoop])

	w, err := st.GetWork(ctx, "El Pastor Fido")
	require.NoError(t, err)
	assert.Equal(t, "Antonio Coello", w.Author)
}
