package normalize

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/item-teatro/comedia-cli/internal/model"
)

// Catalog is the curated place hierarchy: categories of theatrical venues,
// each holding named places with their known spelling variants. It is the
// authority for place resolution and is immutable during a run.
type Catalog struct {
	Categories map[string]Category `json:"categories"`
}

// Category groups venues of one type (palaces, corrales, churches, ...).
type Category struct {
	Name   string                  `json:"name"`
	Type   model.PlaceType         `json:"type"`
	Places map[string]CatalogPlace `json:"places"`
}

// CatalogPlace is one canonical venue and its variants.
type CatalogPlace struct {
	CanonicalName string          `json:"canonical_name"`
	Variants      []string        `json:"variants,omitempty"`
	City          string          `json:"city,omitempty"`
	Region        string          `json:"region,omitempty"`
	Country       string          `json:"country,omitempty"`
	Type          model.PlaceType `json:"type,omitempty"`
}

// LoadCatalog reads the place catalog JSON from path.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "normalize: read place catalog %s", path)
	}
	var cat Catalog
	if err := json.Unmarshal(raw, &cat); err != nil {
		return nil, eris.Wrapf(err, "normalize: parse place catalog %s", path)
	}
	return &cat, nil
}

type variantEntry struct {
	folded string
	place  model.Place
}

// PlaceResolver resolves free-text venue strings against the catalog. The
// variant index is built once per run; the resolver itself is read-only.
type PlaceResolver struct {
	exact    map[string]model.Place
	variants []variantEntry
}

// NewPlaceResolver indexes every canonical name and variant under its folded
// comparison form.
func NewPlaceResolver(cat *Catalog) *PlaceResolver {
	r := &PlaceResolver{exact: make(map[string]model.Place)}
	if cat == nil {
		return r
	}
	for _, categoryID := range sortedKeys(cat.Categories) {
		category := cat.Categories[categoryID]
		for _, placeID := range sortedKeys(category.Places) {
			cp := category.Places[placeID]
			place := model.Place{
				Name:    cp.CanonicalName,
				Type:    cp.Type,
				City:    cp.City,
				Region:  cp.Region,
				Country: cp.Country,
			}
			if place.Type == "" {
				place.Type = category.Type
			}
			for _, name := range append([]string{cp.CanonicalName}, cp.Variants...) {
				folded := Fold(name)
				if folded == "" {
					continue
				}
				if _, dup := r.exact[folded]; !dup {
					r.exact[folded] = place
					r.variants = append(r.variants, variantEntry{folded: folded, place: place})
				}
			}
		}
	}
	// Longest variants first so substring matching prefers "coliseo del buen
	// retiro" over "buen retiro".
	sort.SliceStable(r.variants, func(i, j int) bool {
		return len(r.variants[i].folded) > len(r.variants[j].folded)
	})
	return r
}

// regionalFallbacks covers the handful of court venues the volumes cite so
// often that a catalog miss would be pure noise for reviewers.
var regionalFallbacks = []struct {
	key   string
	place model.Place
}{
	{"coliseo del buen retiro", model.Place{Name: "Coliseo del Buen Retiro", Type: model.PlacePalace, City: "Madrid", Region: "Madrid", Country: "España"}},
	{"buen retiro", model.Place{Name: "Buen Retiro", Type: model.PlacePalace, City: "Madrid", Region: "Madrid", Country: "España"}},
	{"alcazar", model.Place{Name: "Alcázar de Madrid", Type: model.PlacePalace, City: "Madrid", Region: "Madrid", Country: "España"}},
	{"salon dorado", model.Place{Name: "Salón Dorado del Alcázar", Type: model.PlacePalace, City: "Madrid", Region: "Madrid", Country: "España"}},
	{"cuarto de la reina", model.Place{Name: "Cuarto de la Reina", Type: model.PlacePalace, City: "Madrid", Region: "Madrid", Country: "España"}},
	{"corral del principe", model.Place{Name: "Corral del Príncipe", Type: model.PlaceCorral, City: "Madrid", Region: "Madrid", Country: "España"}},
	{"corral de la cruz", model.Place{Name: "Corral de la Cruz", Type: model.PlaceCorral, City: "Madrid", Region: "Madrid", Country: "España"}},
	{"pardo", model.Place{Name: "El Pardo", Type: model.PlacePalace, City: "Madrid", Region: "Madrid", Country: "España"}},
	{"aranjuez", model.Place{Name: "Palacio de Aranjuez", Type: model.PlacePalace, City: "Aranjuez", Region: "Madrid", Country: "España"}},
}

// Resolve maps a free-text place string to a catalog place. Lookup stages:
// exact variant match, substring match in either direction, then the
// hard-coded regional map. On a miss the input is returned verbatim as a
// pending place with empty type; the resolver never invents a venue.
func (r *PlaceResolver) Resolve(raw string) model.Place {
	name := CollapseSpaces(raw)
	folded := Fold(name)
	if folded == "" {
		return model.Place{Name: name, Pending: true}
	}

	if place, ok := r.exact[folded]; ok {
		return place
	}

	for _, v := range r.variants {
		if strings.Contains(folded, v.folded) || strings.Contains(v.folded, folded) {
			return v.place
		}
	}

	for _, fb := range regionalFallbacks {
		if strings.Contains(folded, fb.key) {
			return fb.place
		}
	}

	return model.Place{Name: name, Pending: true}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
