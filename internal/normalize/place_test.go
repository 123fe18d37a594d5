package normalize

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/item-teatro/comedia-cli/internal/model"
)

func testCatalog() *Catalog {
	return &Catalog{
		Categories: map[string]Category{
			"palacios": {
				Name: "Palacios reales",
				Type: model.PlacePalace,
				Places: map[string]CatalogPlace{
					"buen_retiro": {
						CanonicalName: "Buen Retiro",
						Variants:      []string{"Retiro", "Palacio del Buen Retiro"},
						City:          "Madrid",
						Region:        "Madrid",
						Country:       "España",
					},
					"coliseo": {
						CanonicalName: "Coliseo del Buen Retiro",
						Variants:      []string{"Coliseo"},
						City:          "Madrid",
						Region:        "Madrid",
					},
				},
			},
			"corrales": {
				Name: "Corrales de comedias",
				Type: model.PlaceCorral,
				Places: map[string]CatalogPlace{
					"principe": {
						CanonicalName: "Corral del Príncipe",
						Variants:      []string{"Principe", "corral del Principe"},
						City:          "Madrid",
					},
				},
			},
		},
	}
}

func TestPlaceResolver_VariantsResolveToTheirPlace(t *testing.T) {
	t.Parallel()

	cat := testCatalog()
	r := NewPlaceResolver(cat)

	// Every listed variant resolves to its owning place.
	for _, category := range cat.Categories {
		for _, cp := range category.Places {
			for _, v := range append([]string{cp.CanonicalName}, cp.Variants...) {
				got := r.Resolve(v)
				assert.Equal(t, cp.CanonicalName, got.Name, "variant %q", v)
				assert.False(t, got.Pending)
			}
		}
	}
}

func TestPlaceResolver_NormalizedComparison(t *testing.T) {
	t.Parallel()

	r := NewPlaceResolver(testCatalog())

	tests := []struct {
		input string
		want  string
	}{
		{"buen retiro", "Buen Retiro"},
		{"BUEN RETIRO", "Buen Retiro"},
		{"Buen  Retiro.", "Buen Retiro"},
		{"corral del principe", "Corral del Príncipe"},
		{"Corral del Príncipe", "Corral del Príncipe"},
	}
	for _, tt := range tests {
		got := r.Resolve(tt.input)
		assert.Equal(t, tt.want, got.Name, "input %q", tt.input)
	}
}

func TestPlaceResolver_SubstringStagePrefersLongestVariant(t *testing.T) {
	t.Parallel()

	r := NewPlaceResolver(testCatalog())

	got := r.Resolve("en el Coliseo del Buen Retiro de Madrid")
	assert.Equal(t, "Coliseo del Buen Retiro", got.Name)
	assert.Equal(t, model.PlacePalace, got.Type)
}

func TestPlaceResolver_RegionalFallback(t *testing.T) {
	t.Parallel()

	// Empty catalog: only the hard-coded regional map can answer.
	r := NewPlaceResolver(&Catalog{})

	got := r.Resolve("Salón Dorado")
	assert.Equal(t, "Salón Dorado del Alcázar", got.Name)
	assert.Equal(t, model.PlacePalace, got.Type)
	assert.Equal(t, "Madrid", got.City)
}

func TestPlaceResolver_MissReturnsPendingVerbatim(t *testing.T) {
	t.Parallel()

	r := NewPlaceResolver(testCatalog())

	got := r.Resolve("Casa de la Villa de Toledo")
	assert.True(t, got.Pending)
	assert.Equal(t, "Casa de la Villa de Toledo", got.Name)
	assert.Empty(t, got.Type)
	assert.Empty(t, got.Region)
}

func TestLoadCatalog(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "places.json")
	raw, err := json.Marshal(testCatalog())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	cat, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Len(t, cat.Categories, 2)

	_, err = LoadCatalog(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err = LoadCatalog(path)
	assert.Error(t, err)
}
