package queue

import (
	"fmt"
	"strings"

	"github.com/item-teatro/comedia-cli/internal/model"
)

// confidenceES renders the confidence tag the way the review client shows it.
var confidenceES = map[model.Confidence]string{
	model.ConfidenceHigh:   "alta",
	model.ConfidenceMedium: "media",
	model.ConfidenceLow:    "baja",
}

// Synthesize renders one candidate as a one-paragraph Spanish summary plus
// the pointer back to the originating page image.
func Synthesize(c model.Candidate) Synthesis {
	syn := Synthesis{
		CandidateID: c.ID,
		Type:        c.Type,
		Confidence:  c.Confidence,
		Source:      c.Provenance.Source,
		Page:        c.Provenance.Page,
		ImageRef:    imageRef(c.Provenance),
		Candidate:   c,
	}

	switch {
	case c.Performance != nil:
		syn.Text = performanceText(c)
	case c.Work != nil:
		syn.Text = workText(c)
	case c.Place != nil:
		syn.Text = placeText(c)
	}
	return syn
}

func performanceText(c model.Candidate) string {
	p := c.Performance
	var b strings.Builder

	switch {
	case p.Date.Parsed():
		fmt.Fprintf(&b, "El %s (%s)", p.Date.Verbatim, p.Date.ISO)
	case p.Date.Verbatim != "":
		fmt.Fprintf(&b, "En fecha sin resolver («%s»)", p.Date.Verbatim)
	default:
		b.WriteString("En fecha desconocida")
	}

	if p.Company != "" {
		fmt.Fprintf(&b, " la compañía de %s representó", p.Company)
	} else {
		b.WriteString(" se representó")
	}
	fmt.Fprintf(&b, " «%s»", p.WorkTitle)

	switch {
	case p.Venue.Name != "" && !p.Venue.Pending:
		fmt.Fprintf(&b, " en %s", p.Venue.Name)
		if p.Venue.City != "" {
			fmt.Fprintf(&b, " (%s)", p.Venue.City)
		}
	case p.Venue.Name != "":
		fmt.Fprintf(&b, " en un lugar sin resolver («%s»)", p.Venue.Name)
	}

	if p.Patron != "" {
		fmt.Fprintf(&b, ", para festejar a %s", p.Patron)
	}
	b.WriteString(".")
	appendCitation(&b, c)
	return b.String()
}

func workText(c model.Candidate) string {
	w := c.Work
	var b strings.Builder

	fmt.Fprintf(&b, "Obra «%s»", w.Title)
	if w.Author == model.AuthorAnonymous {
		b.WriteString(", de autor anónimo")
	} else {
		fmt.Fprintf(&b, ", atribuida a %s", w.Author)
	}
	if w.Genre != "" {
		fmt.Fprintf(&b, " (%s)", w.Genre)
	}
	if len(w.AlternativeTitles) > 0 {
		fmt.Fprintf(&b, "; también se intitula %s", strings.Join(quoteAll(w.AlternativeTitles), ", "))
	}
	for _, ref := range w.CrossRefs {
		fmt.Fprintf(&b, "; véase «%s»", ref.ToTitle)
	}
	b.WriteString(".")
	appendCitation(&b, c)
	return b.String()
}

func placeText(c model.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Lugar sin resolver «%s»; no figura en el catálogo de lugares y requiere curación.", c.Place.Name)
	appendCitation(&b, c)
	return b.String()
}

func appendCitation(b *strings.Builder, c model.Candidate) {
	if c.Provenance.Page > 0 {
		fmt.Fprintf(b, " Fuente: %s, pág. %d.", c.Provenance.Source, c.Provenance.Page)
	} else {
		fmt.Fprintf(b, " Fuente: %s.", c.Provenance.Source)
	}
	fmt.Fprintf(b, " Confianza: %s.", confidenceES[c.Confidence])
}

// imageRef points at the page image the external renderer serves. CATCOM
// records have no page image.
func imageRef(prov model.Provenance) string {
	if prov.Source != model.SourceFuentesIX || prov.Page == 0 {
		return ""
	}
	return fmt.Sprintf("paginas/pagina_%03d.png", prov.Page)
}

func quoteAll(titles []string) []string {
	out := make([]string, len(titles))
	for i, t := range titles {
		out[i] = "«" + t + "»"
	}
	return out
}
