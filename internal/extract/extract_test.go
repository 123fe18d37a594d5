package extract

import (
	"strings"
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
					"buen_retiro": {CanonicalName: "Buen Retiro", Variants: []string{"Retiro"}, City: "Madrid", Region: "Madrid"},
				},
			},
			"corrales": {
				Name: "Corrales",
				Type: model.PlaceCorral,
				Places: map[string]normalize.CatalogPlace{
					"principe": {CanonicalName: "Corral del Príncipe", City: "Madrid"},
				},
			},
		},
	})
}

func pastorFidoBlock() model.EntryBlock {
	return model.EntryBlock{
		Title: "Pastor Fido, El",
		Lines: []model.Line{
			{Text: "Comedia de Antonio Coello.", Page: 51},
			{Text: "(1) 22 de enero de 1651. compañía de Agustín Manuel. Buen Retiro (Fuentes V).", Page: 51},
			{Text: "(2) 4 de octubre de 1685. Rosendo López. Corral del Príncipe (Fuentes IX).", Page: 52},
		},
		Pages:    []int{51, 52},
		PartFile: "FUENTES IX 1_part_003.txt",
	}
}

func TestBlock_WorkAndPerformances(t *testing.T) {
	t.Parallel()

	e := New(testResolver())
	res := e.Block(pastorFidoBlock(), model.SourceFuentesIX)

	work := res.Work
	require.NotNil(t, work.Work)
	assert.Equal(t, "El Pastor Fido", work.Work.Title)
	assert.Equal(t, "Pastor Fido, El", work.Work.RawTitle)
	assert.Equal(t, "Antonio Coello", work.Work.Author)
	assert.Equal(t, "comedia", work.Work.Genre)
	assert.Equal(t, model.ConfidenceHigh, work.Confidence)
	assert.Equal(t, 51, work.Provenance.Page)

	require.Len(t, res.Performances, 2)
	first := res.Performances[0]
	require.NotNil(t, first.Performance)
	assert.Equal(t, "1651-01-22", first.Performance.Date.ISO)
	assert.Equal(t, "Agustín Manuel", first.Performance.Company)
	assert.Equal(t, "Buen Retiro", first.Performance.Venue.Name)
	assert.Equal(t, model.PlacePalace, first.Performance.Venue.Type)
	assert.Equal(t, "Madrid", first.Performance.Venue.City)
	assert.Equal(t, "V", first.Performance.SourceVolume)
	assert.Equal(t, "corte", first.Performance.Audience)
	assert.Equal(t, model.ConfidenceHigh, first.Confidence)
	assert.Equal(t, 51, first.Provenance.Page)

	second := res.Performances[1]
	assert.Equal(t, "1685-10-04", second.Performance.Date.ISO)
	assert.Equal(t, "Rosendo López", second.Performance.Company)
	assert.Equal(t, "pueblo", second.Performance.Audience)
	assert.Equal(t, 52, second.Provenance.Page)
}

func TestBlock_SpanIsSubstringOfBody(t *testing.T) {
	t.Parallel()

	e := New(testResolver())
	block := pastorFidoBlock()
	res := e.Block(block, model.SourceFuentesIX)

	body := block.Body()
	for _, c := range res.Performances {
		assert.True(t, strings.Contains(body, c.Provenance.Span),
			"span %q not found in block body", c.Provenance.Span)
	}
}

func TestBlock_DeterministicIDs(t *testing.T) {
	t.Parallel()

	e := New(testResolver())
	a := e.Block(pastorFidoBlock(), model.SourceFuentesIX)
	b := e.Block(pastorFidoBlock(), model.SourceFuentesIX)

	assert.Equal(t, a.Work.ID, b.Work.ID)
	require.Equal(t, len(a.Performances), len(b.Performances))
	for i := range a.Performances {
		assert.Equal(t, a.Performances[i].ID, b.Performances[i].ID)
	}
}

func TestBlock_CrossReferenceOnly(t *testing.T) {
	t.Parallel()

	block := model.EntryBlock{
		Title:        "Fuerza del natural, La",
		Lines:        []model.Line{{Text: "Véase Empeños de un acaso, Los.", Page: 60}},
		Pages:        []int{60},
		CrossRefOnly: true,
	}

	e := New(testResolver())
	res := e.Block(block, model.SourceFuentesIX)

	assert.Empty(t, res.Performances)
	require.Len(t, res.Work.Work.CrossRefs, 1)
	assert.Equal(t, "Empeños de un acaso, Los", res.Work.Work.CrossRefs[0].ToTitle)
	assert.Equal(t, "La Fuerza del natural", res.Work.Work.CrossRefs[0].FromTitle)
}

func TestBlock_PendingVenueBecomesPlaceCandidate(t *testing.T) {
	t.Parallel()

	block := model.EntryBlock{
		Title: "Dama duende, La",
		Lines: []model.Line{
			{Text: "(1) 1674. Antonio Escamilla. Casa del Tesoro (Fuentes I).", Page: 70},
		},
		Pages: []int{70},
	}

	e := New(testResolver())
	res := e.Block(block, model.SourceFuentesIX)

	require.Len(t, res.Performances, 1)
	assert.True(t, res.Performances[0].Performance.Venue.Pending)
	require.Len(t, res.Places, 1)
	assert.Equal(t, "Casa del Tesoro", res.Places[0].Place.Name)
	assert.Equal(t, model.ConfidenceLow, res.Places[0].Confidence)
}

func TestBlock_AmbiguousEntryIsLowWorkOnly(t *testing.T) {
	t.Parallel()

	block := model.EntryBlock{
		Title: "Renegada de Valladolid, La",
		Lines: []model.Line{{Text: "Texto corrupto sin estructura reconocible", Page: 80}},
		Pages: []int{80},
	}

	e := New(testResolver())
	res := e.Block(block, model.SourceFuentesIX)

	assert.Empty(t, res.Performances)
	assert.Equal(t, model.ConfidenceLow, res.Work.Confidence)
}

func TestBlock_SingleWordAuthorIsLow(t *testing.T) {
	t.Parallel()

	block := model.EntryBlock{
		Title: "Vida es sueño, La",
		Lines: []model.Line{
			{Text: "Comedia de Figurón.", Page: 90},
			{Text: "(1) 3 de mayo de 1680. compañía de Prado. Buen Retiro (Fuentes IV).", Page: 90},
		},
		Pages: []int{90},
	}

	e := New(testResolver())
	res := e.Block(block, model.SourceFuentesIX)

	// "Comedia de Figurón" captures a common noun, not an author.
	assert.Equal(t, model.ConfidenceLow, res.Work.Confidence)
	assert.Equal(t, "Figurón", res.Work.Work.Author)
}

func TestBlock_PatronStaysWithItsRecord(t *testing.T) {
	t.Parallel()

	block := model.EntryBlock{
		Title: "Pastor Fido, El",
		Lines: []model.Line{
			{Text: "(1) 22 de enero de 1651. compañía de Agustín Manuel. Buen Retiro (Fuentes V), para celebrar los años de la Reina Madre.", Page: 51},
			{Text: "(2) 4 de octubre de 1685. Rosendo López. Corral del Príncipe (Fuentes IX).", Page: 52},
		},
		Pages: []int{51, 52},
	}

	e := New(testResolver())
	res := e.Block(block, model.SourceFuentesIX)

	require.Len(t, res.Performances, 2)
	assert.Equal(t, "Reina Madre", res.Performances[0].Performance.Patron)
	assert.Empty(t, res.Performances[1].Performance.Patron)
}

func TestConfidencePolicy(t *testing.T) {
	t.Parallel()

	day := normalize.ParseDate("22 de enero de 1651")
	yearOnly := normalize.ParseDate("1674")
	unparsed := normalize.ParseDate("fecha ilegible")

	tests := []struct {
		name string
		pc   model.PerformanceCandidate
		want model.Confidence
	}{
		{
			"all fields with day date",
			model.PerformanceCandidate{Date: day, Company: "A", Venue: model.Place{Name: "B"}, SourceVolume: "V"},
			model.ConfidenceHigh,
		},
		{
			"all fields with year-only date",
			model.PerformanceCandidate{Date: yearOnly, Company: "A", Venue: model.Place{Name: "B"}, SourceVolume: "V"},
			model.ConfidenceMedium,
		},
		{
			"three fields with day date",
			model.PerformanceCandidate{Date: day, Venue: model.Place{Name: "B"}, SourceVolume: "V"},
			model.ConfidenceMedium,
		},
		{
			"unparsed date",
			model.PerformanceCandidate{Date: unparsed, Company: "A", Venue: model.Place{Name: "B"}, SourceVolume: "V"},
			model.ConfidenceLow,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Confidence(tt.pc))
		})
	}
}

func TestBlock_AlternativeTitles(t *testing.T) {
	t.Parallel()

	block := model.EntryBlock{
		Title: "Pastor Fido, El",
		Lines: []model.Line{
			{Text: "También se intitula Fiera, el rayo y la piedra, La.", Page: 51},
		},
		Pages: []int{51},
	}

	e := New(testResolver())
	res := e.Block(block, model.SourceFuentesIX)
	require.Len(t, res.Work.Work.AlternativeTitles, 1)
	assert.Equal(t, "La Fiera, el rayo y la piedra", res.Work.Work.AlternativeTitles[0])
}
