package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/item-teatro/comedia-cli/internal/model"
	"github.com/item-teatro/comedia-cli/internal/normalize"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func samplePerformance() model.Performance {
	return model.Performance{
		ID:        "p-1",
		WorkTitle: "El Pastor Fido",
		Date:      normalize.ParseDate("22 de enero de 1651"),
		Company:   "Agustín Manuel",
		Venue:     "Buen Retiro",
		Provenance: model.Provenance{
			Source: model.SourceFuentesIX,
			Page:   51,
			Span:   "(1) 22 de enero de 1651. compañía de Agustín Manuel. Buen Retiro (Fuentes V)",
		},
	}
}

func TestSQLite_WorkRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()

	got, err := s.GetWork(ctx, "El Pastor Fido")
	require.NoError(t, err)
	assert.Nil(t, got)

	w := model.Work{Title: "El Pastor Fido", Author: "Antonio Coello", Genre: "comedia"}
	require.NoError(t, s.InsertWork(ctx, w))

	got, err = s.GetWork(ctx, "El Pastor Fido")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, w, *got)

	w.AlternativeTitles = []string{"El Pastor de Arcadia"}
	require.NoError(t, s.UpdateWork(ctx, w))
	got, err = s.GetWork(ctx, "El Pastor Fido")
	require.NoError(t, err)
	assert.Equal(t, w.AlternativeTitles, got.AlternativeTitles)
}

func TestSQLite_UpdateMissingWork(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)

	err := s.UpdateWork(context.Background(), model.Work{Title: "Ausente"})
	assert.Error(t, err)
}

func TestSQLite_PerformanceIdentity(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.InsertWork(ctx, model.Work{Title: "El Pastor Fido", Author: model.AuthorAnonymous}))

	p := samplePerformance()
	require.NoError(t, s.InsertPerformance(ctx, p))

	got, err := s.GetPerformance(ctx, p.IdentityKey())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.Company, got.Company)
	assert.Equal(t, "1651-01-22", got.Date.ISO)

	// Same identity tuple cannot be inserted twice.
	assert.Error(t, s.InsertPerformance(ctx, p))
}

func TestSQLite_PlacesAndCompanies(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()

	place := model.Place{Name: "Buen Retiro", Type: model.PlacePalace, City: "Madrid"}
	require.NoError(t, s.InsertPlace(ctx, place))
	gotPlace, err := s.GetPlace(ctx, "Buen Retiro")
	require.NoError(t, err)
	assert.Equal(t, place, *gotPlace)

	company := model.Company{Name: "Agustín Manuel", Director: "Agustín Manuel"}
	require.NoError(t, s.InsertCompany(ctx, company))
	gotCompany, err := s.GetCompany(ctx, "Agustín Manuel")
	require.NoError(t, err)
	assert.Equal(t, company, *gotCompany)

	missing, err := s.GetPlace(ctx, "Ausente")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLite_DecisionSupersession(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	decide := func(verdict model.Verdict, at time.Time) {
		require.NoError(t, s.AppendDecision(ctx, model.Decision{
			CandidateID: "cand-1",
			Verdict:     verdict,
			Reviewer:    "rgarcia",
			DecidedAt:   at,
		}))
	}
	decide(model.VerdictAccepted, base)
	decide(model.VerdictRejected, base.Add(time.Minute))
	decide(model.VerdictAccepted, base.Add(2*time.Minute))

	latest, err := s.LatestDecisions(ctx)
	require.NoError(t, err)
	require.Contains(t, latest, "cand-1")
	assert.Equal(t, model.VerdictAccepted, latest["cand-1"].Verdict)

	history, err := s.DecisionHistory(ctx, "cand-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, model.VerdictAccepted, history[0].Verdict)
	assert.Equal(t, model.VerdictRejected, history[1].Verdict)
	assert.Equal(t, model.VerdictAccepted, history[2].Verdict)
}

func TestSQLite_AuditTrail(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.AppendAudit(ctx, AuditEntry{
			Timestamp:   base.Add(time.Duration(i) * time.Second),
			Reviewer:    "rgarcia",
			CandidateID: "cand-1",
			Table:       "performances",
			After:       `{"company":"Agustín Manuel"}`,
			RunVersion:  "v1",
		}))
	}

	all, err := s.ListAuditSince(ctx, base)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "performances", all[0].Table)
	assert.Equal(t, "v1", all[0].RunVersion)

	later, err := s.ListAuditSince(ctx, base.Add(2*time.Second))
	require.NoError(t, err)
	assert.Len(t, later, 1)
}
