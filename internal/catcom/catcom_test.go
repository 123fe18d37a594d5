package catcom

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/item-teatro/comedia-cli/internal/model"
	"github.com/item-teatro/comedia-cli/internal/normalize"
)

func testResolver() *normalize.PlaceResolver {
	return normalize.NewPlaceResolver(&normalize.Catalog{
		Categories: map[string]normalize.Category{
			"palacios": {
				Name: "Palacios reales",
				Type: model.PlacePalace,
				Places: map[string]normalize.CatalogPlace{
					"coliseo": {CanonicalName: "Coliseo del Buen Retiro", City: "Madrid", Region: "Madrid"},
				},
			},
		},
	})
}

func TestWork_FullNotice(t *testing.T) {
	t.Parallel()

	wf := WorkFile{
		MainTitle:   "Alcázar del secreto, El",
		Attribution: "Antonio de Solís",
		Genre:       "Comedia",
		Performances: []PerformanceNote{{
			Lugar:   "Madrid",
			Espacio: "Coliseo del Buen Retiro",
			Noticia: "El 2 de diciembre de 1674 la compañía de Antonio Escamilla representó la obra en el Coliseo del Buen Retiro.",
		}},
	}

	cands := New(testResolver()).Work(wf)
	require.Len(t, cands, 2)

	work := cands[0]
	require.NotNil(t, work.Work)
	assert.Equal(t, "El Alcázar del secreto", work.Work.Title)
	assert.Equal(t, "Antonio de Solís", work.Work.Author)
	assert.Equal(t, "comedia", work.Work.Genre)
	assert.Equal(t, model.ConfidenceHigh, work.Confidence)
	assert.Equal(t, model.SourceCATCOM, work.Provenance.Source)

	perf := cands[1]
	require.NotNil(t, perf.Performance)
	assert.Equal(t, "1674-12-02", perf.Performance.Date.ISO)
	assert.Equal(t, model.PrecisionDay, perf.Performance.Date.Precision)
	assert.Equal(t, "Antonio Escamilla", perf.Performance.Company)
	assert.Equal(t, "Coliseo del Buen Retiro", perf.Performance.Venue.Name)
	assert.Equal(t, "corte", perf.Performance.Audience)
	assert.Equal(t, model.ConfidenceHigh, perf.Confidence)
	assert.Equal(t, "El Alcázar del secreto | "+wf.Performances[0].Noticia, perf.Provenance.Span)
}

func TestWork_SameNoticiaDifferentWorksKeepDistinctIDs(t *testing.T) {
	t.Parallel()

	note := PerformanceNote{Noticia: "Se representó en palacio en 1680."}
	adapter := New(testResolver())

	a := adapter.Work(WorkFile{MainTitle: "Primera, La", Performances: []PerformanceNote{note}})
	b := adapter.Work(WorkFile{MainTitle: "Segunda, La", Performances: []PerformanceNote{note}})
	require.Len(t, a, 2)
	require.Len(t, b, 2)

	assert.NotEqual(t, a[1].ID, b[1].ID)
}

func TestWork_ApproximateBeforeDate(t *testing.T) {
	t.Parallel()

	wf := WorkFile{
		Title: "Renegado de Francia, El",
		Performances: []PerformanceNote{{
			Lugar:   "Ø",
			Noticia: "Se representó antes del 4 de octubre de 1685.",
		}},
	}

	cands := New(testResolver()).Work(wf)
	require.Len(t, cands, 2)

	perf := cands[1]
	assert.Equal(t, "1685-10-04", perf.Performance.Date.ISO)
	assert.Equal(t, model.PrecisionApproxBefore, perf.Performance.Date.Precision)
	assert.True(t, perf.Performance.Venue.Pending)
	assert.Equal(t, model.ConfidenceMedium, perf.Confidence)
}

func TestWork_AnonymousAttribution(t *testing.T) {
	t.Parallel()

	wf := WorkFile{MainTitle: "Fiera, el rayo y la piedra, La", Attribution: "Anónimo"}
	cands := New(testResolver()).Work(wf)
	require.Len(t, cands, 1)
	assert.Equal(t, model.AuthorAnonymous, cands[0].Work.Author)
	assert.Equal(t, model.ConfidenceMedium, cands[0].Confidence)
}

func TestWork_EspacioFillsVenueType(t *testing.T) {
	t.Parallel()

	wf := WorkFile{
		MainTitle: "Dama duende, La",
		Performances: []PerformanceNote{{
			Lugar:   "Valencia",
			Espacio: "corral de la Olivera",
			Noticia: "Representación en Valencia en 1624.",
		}},
	}

	cands := New(testResolver()).Work(wf)
	require.Len(t, cands, 2)
	perf := cands[1].Performance
	assert.True(t, perf.Venue.Pending)
	assert.Equal(t, model.PlaceCorral, perf.Venue.Type)
	assert.Equal(t, "pueblo", perf.Audience)
}

func writeWorkFile(t *testing.T, dir, name string, wf WorkFile) {
	t.Helper()
	raw, err := json.Marshal(wf)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), raw, 0o644))
}

func TestLoadDir_DeterministicOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeWorkFile(t, dir, "work_002.json", WorkFile{MainTitle: "Segunda, La"})
	writeWorkFile(t, dir, "work_001.json", WorkFile{MainTitle: "Primera, La"})
	writeWorkFile(t, dir, "work_003.json", WorkFile{MainTitle: "Tercera, La"})

	adapter := New(testResolver())
	a, err := LoadDir(context.Background(), dir, adapter)
	require.NoError(t, err)
	b, err := LoadDir(context.Background(), dir, adapter)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	require.Len(t, a, 3)
	assert.Equal(t, "La Primera", a[0].Work.Title)
	assert.Equal(t, "La Segunda", a[1].Work.Title)
	assert.Equal(t, "La Tercera", a[2].Work.Title)
}

func TestLoadDir_EmptyDir(t *testing.T) {
	t.Parallel()

	_, err := LoadDir(context.Background(), t.TempDir(), New(testResolver()))
	assert.Error(t, err)
}

func TestLoadDir_SkipsUntitled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeWorkFile(t, dir, "work_001.json", WorkFile{MainTitle: "Primera, La"})
	writeWorkFile(t, dir, "work_002.json", WorkFile{})

	cands, err := LoadDir(context.Background(), dir, New(testResolver()))
	require.NoError(t, err)
	require.Len(t, cands, 1)
}
