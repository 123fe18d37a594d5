// Package catcom adapts the web-scraped CATCOM work files to the candidate
// schema. Each performance arrives as {lugar, espacio, noticia} where noticia
// is a free-text Spanish paragraph; the same date/company/place grammar used
// for the printed volume is applied to it, with the structured lugar and
// espacio fields as fallback when patterns miss.
package catcom

import (
	"regexp"
	"strings"

	"github.com/item-teatro/comedia-cli/internal/model"
	"github.com/item-teatro/comedia-cli/internal/normalize"
)

// WorkFile is one scraped CATCOM work.
type WorkFile struct {
	MainTitle         string            `json:"main_title"`
	Title             string            `json:"title"`
	AlternativeTitles []string          `json:"alternative_titles"`
	Attribution       string            `json:"attribution"`
	Genre             string            `json:"genre,omitempty"`
	URL               string            `json:"url,omitempty"`
	Performances      []PerformanceNote `json:"performances"`
}

// PerformanceNote is one scraped performance record.
type PerformanceNote struct {
	Lugar   string `json:"lugar"`
	Espacio string `json:"espacio"`
	Noticia string `json:"noticia"`
}

// properName matches a run of capitalized words with optional Spanish
// particles between them, so prose after the name is not swept up.
const properName = `([A-ZÁÉÍÓÚÑ][a-záéíóúñü]+(?:\s+(?:de\s+la\s+|de\s+|del\s+|y\s+|e\s+)?[A-ZÁÉÍÓÚÑ][a-záéíóúñü]+)*)`

var companyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i:compañías?\s+de)\s+` + properName),
	regexp.MustCompile(properName + `\s+(?:representó|hizo|representaron|hicieron)`),
}

var genreMap = map[string]string{
	"Comedia":  "comedia",
	"Auto":     "auto",
	"Zarzuela": "zarzuela",
	"Entremés": "entremes",
	"Tragedia": "tragedia",
	"Loa":      "loa",
	"Sainete":  "sainete",
	"Baile":    "baile",
}

// Adapter extracts candidates from CATCOM work files.
type Adapter struct {
	places *normalize.PlaceResolver
}

// New builds an adapter over the given place resolver.
func New(places *normalize.PlaceResolver) *Adapter {
	return &Adapter{places: places}
}

// Work yields one work candidate plus a performance candidate per note.
// Provenance source is CATCOM; performance spans carry the work title ahead
// of the noticia text.
func (a *Adapter) Work(wf WorkFile) []model.Candidate {
	title := wf.MainTitle
	if title == "" {
		title = wf.Title
	}
	canonical := normalize.Title(title)

	wc := model.WorkCandidate{
		RawTitle: title,
		Title:    canonical,
		Author:   model.AuthorAnonymous,
		Genre:    genreMap[wf.Genre],
	}
	for _, alt := range wf.AlternativeTitles {
		if n := normalize.Title(alt); n != "" && n != canonical {
			wc.AlternativeTitles = append(wc.AlternativeTitles, n)
		}
	}

	workConfidence := model.ConfidenceMedium
	if attr := strings.TrimSpace(wf.Attribution); attr != "" && !strings.Contains(attr, "Anónim") {
		if author := normalize.Name(attr); author != "" {
			wc.Author = author
			workConfidence = model.ConfidenceHigh
		}
	}

	prov := model.Provenance{Source: model.SourceCATCOM, Span: title}
	work := model.NewCandidate(model.CandidateWork, workConfidence, prov)
	work.Work = &wc

	out := []model.Candidate{work}
	for _, note := range wf.Performances {
		if c, ok := a.performance(note, canonical); ok {
			out = append(out, c)
		}
	}
	return out
}

func (a *Adapter) performance(note PerformanceNote, workTitle string) (model.Candidate, bool) {
	noticia := strings.TrimSpace(note.Noticia)
	if noticia == "" {
		return model.Candidate{}, false
	}

	pc := model.PerformanceCandidate{
		WorkTitle:    workTitle,
		Date:         normalize.ParseDate(noticia),
		Company:      extractCompany(noticia),
		Venue:        a.resolveVenue(noticia, note),
		VenueRaw:     strings.TrimSpace(note.Lugar),
		FunctionType: "representación",
		Observations: clip(noticia, 500),
	}
	pc.Audience = audienceFor(pc.Venue.Type)

	// The title prefix keeps ids distinct when two works carry the same
	// noticia text; CATCOM has no page axis to tell them apart.
	prov := model.Provenance{Source: model.SourceCATCOM, Span: workTitle + " | " + noticia}
	c := model.NewCandidate(model.CandidatePerformance, confidence(pc), prov)
	c.Performance = &pc
	return c, true
}

// resolveVenue tries the noticia prose first, then the structured lugar
// field; espacio fills the venue type when the catalog could not.
func (a *Adapter) resolveVenue(noticia string, note PerformanceNote) model.Place {
	venue := a.places.Resolve(noticia)
	if venue.Pending {
		lugar := strings.TrimSpace(note.Lugar)
		if lugar == "" || lugar == "Ø" {
			return model.Place{Pending: true}
		}
		venue = a.places.Resolve(lugar)
	}
	if venue.Type == "" {
		venue.Type = espacioType(note.Espacio)
	}
	return venue
}

// confidence mirrors the extractor policy minus the source-volume citation
// CATCOM never carries: high needs date, company and venue with a day-level
// date; a date resolving to at least a year keeps medium; anything weaker
// is low.
func confidence(pc model.PerformanceCandidate) model.Confidence {
	switch {
	case pc.Date.HasDay() && pc.Company != "" && pc.Venue.Name != "":
		return model.ConfidenceHigh
	case pc.Date.Year != 0:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

func extractCompany(noticia string) string {
	for _, re := range companyPatterns {
		if m := re.FindStringSubmatch(noticia); m != nil {
			return normalize.CompanyName(m[1])
		}
	}
	return ""
}

func espacioType(espacio string) model.PlaceType {
	folded := normalize.Fold(espacio)
	switch {
	case strings.Contains(folded, "palacio"):
		return model.PlacePalace
	case strings.Contains(folded, "corral"):
		return model.PlaceCorral
	}
	return ""
}

func audienceFor(t model.PlaceType) string {
	switch t {
	case model.PlacePalace:
		return "corte"
	case model.PlaceCorral:
		return "pueblo"
	}
	return ""
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
