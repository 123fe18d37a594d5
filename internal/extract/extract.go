// Package extract turns entry blocks into candidate records using the fixed
// pattern grammar of the printed volume: a title line, an optional authorship
// sentence, then numbered performance records of the form
//
//	(N) <fecha>. <compañía>. <lugar> (Fuentes <roman>)
//
// All patterns live in this file's table; adding a new form is one entry
// plus one test.
package extract

import (
	"regexp"
	"strings"

	"github.com/item-teatro/comedia-cli/internal/model"
	"github.com/item-teatro/comedia-cli/internal/normalize"
)

var (
	performancePattern = regexp.MustCompile(`\((\d+)\)\s+([^.]+?)\.\s+([^.]+?)\.\s+([^(]+?)\s*\(Fuentes\s+([IVX]+)\)`)
	authorPattern      = regexp.MustCompile(`(Comedia|Obra|Zarzuela|Auto)\s+(?:de|del|de la)\s+([A-ZÁÉÍÓÚÑ][^,.(]+)`)
	crossRefPattern    = regexp.MustCompile(`Véase\s+(.+?)(?:\.|$)`)
	altTitlePattern    = regexp.MustCompile(`(?i)(?:también se intitula|con el título de|título alternativo)\s+([^.]+)`)
	patronPattern      = regexp.MustCompile(`(?i)(?:para celebrar|festejar|en celebridad|en honor)[^.]*?(?:de|del|de la)\s+([A-ZÁÉÍÓÚÑ][^.]+)`)
)

// genreByKeyword maps the authorship keyword to the work's genre.
var genreByKeyword = map[string]string{
	"Comedia":  "comedia",
	"Zarzuela": "zarzuela",
	"Auto":     "auto",
}

// Extractor produces candidates from entry blocks. It holds the place
// resolver as immutable state; everything else is pure.
type Extractor struct {
	places *normalize.PlaceResolver
}

// New builds an extractor over the given place resolver.
func New(places *normalize.PlaceResolver) *Extractor {
	return &Extractor{places: places}
}

// BlockResult is everything one entry block yields.
type BlockResult struct {
	Work         model.Candidate
	Performances []model.Candidate
	Places       []model.Candidate
}

// All returns the block's candidates in queue order: work first, then
// performances, then pending places.
func (r BlockResult) All() []model.Candidate {
	out := make([]model.Candidate, 0, 1+len(r.Performances)+len(r.Places))
	out = append(out, r.Work)
	out = append(out, r.Performances...)
	out = append(out, r.Places...)
	return out
}

// Block extracts one work candidate, zero or more performance candidates,
// and a pending-place candidate per unresolved venue.
func (e *Extractor) Block(block model.EntryBlock, source model.Source) BlockResult {
	body := block.Body()

	work := e.extractWork(block, body, source)
	performances, places := e.extractPerformances(block, body, source, work.Work.Title)

	if len(performances) == 0 && !block.CrossRefOnly && work.Confidence != model.ConfidenceLow {
		// An entry that looks like a work but yielded no grammar matches is
		// surfaced low for human attention rather than fabricated.
		if len(work.Work.CrossRefs) == 0 {
			work.Confidence = model.ConfidenceLow
		}
	}

	return BlockResult{Work: work, Performances: performances, Places: places}
}

func (e *Extractor) extractWork(block model.EntryBlock, body string, source model.Source) model.Candidate {
	wc := model.WorkCandidate{
		RawTitle: block.Title,
		Title:    normalize.Title(block.Title),
		Author:   model.AuthorAnonymous,
	}

	confidence := model.ConfidenceMedium
	if m := authorPattern.FindStringSubmatch(body); m != nil {
		author := normalize.Name(m[2])
		if author != "" {
			wc.Author = author
			wc.Genre = genreByKeyword[m[1]]
			confidence = model.ConfidenceHigh
			// A single captured word after "Comedia de" is as likely a common
			// noun as a surname; keep it but flag for review.
			if len(strings.Fields(author)) == 1 {
				confidence = model.ConfidenceLow
			}
		}
	}

	for _, m := range altTitlePattern.FindAllStringSubmatch(body, -1) {
		alt := normalize.Title(strings.TrimSpace(m[1]))
		if alt != "" {
			wc.AlternativeTitles = append(wc.AlternativeTitles, alt)
		}
	}

	for _, m := range crossRefPattern.FindAllStringSubmatch(body, -1) {
		// The referenced title keeps its catalog form; resolution to a Work
		// happens at query time against the canonical store.
		wc.CrossRefs = append(wc.CrossRefs, model.CrossReference{
			FromTitle: wc.Title,
			ToTitle:   strings.TrimSpace(m[1]),
			Page:      block.FirstPage(),
		})
	}

	prov := model.Provenance{
		Source:   source,
		Page:     block.FirstPage(),
		Span:     block.Title,
		PartFile: block.PartFile,
	}
	c := model.NewCandidate(model.CandidateWork, confidence, prov)
	c.Work = &wc
	return c
}

func (e *Extractor) extractPerformances(block model.EntryBlock, body string, source model.Source, workTitle string) (performances, places []model.Candidate) {
	seenPlaces := map[string]bool{}

	matches := performancePattern.FindAllStringSubmatchIndex(body, -1)
	for i, idx := range matches {
		group := func(k int) string { return body[idx[2*k]:idx[2*k+1]] }
		span := strings.TrimSpace(group(0))
		dateRaw := strings.TrimSpace(group(2))
		companyRaw := strings.TrimSpace(group(3))
		venueRaw := strings.TrimSpace(group(4))
		volume := group(5)

		// A record's text runs up to the next numbered record; trailing
		// prose like a patron phrase belongs to this record alone.
		recordEnd := len(body)
		if i+1 < len(matches) {
			recordEnd = matches[i+1][0]
		}
		record := body[idx[0]:recordEnd]

		pc := model.PerformanceCandidate{
			WorkTitle:    workTitle,
			Number:       atoi(group(1)),
			Date:         normalize.ParseDate(dateRaw),
			Company:      normalize.CompanyName(companyRaw),
			VenueRaw:     venueRaw,
			Venue:        e.places.Resolve(venueRaw),
			SourceVolume: volume,
			FunctionType: "representación",
		}
		pc.Audience = audienceFor(pc.Venue.Type)
		if pm := patronPattern.FindStringSubmatch(record); pm != nil {
			pc.Patron = normalize.Name(strings.TrimSpace(pm[1]))
		}

		prov := model.Provenance{
			Source:   source,
			Page:     pageOf(block, group(0)),
			Span:     span,
			PartFile: block.PartFile,
		}
		c := model.NewCandidate(model.CandidatePerformance, Confidence(pc), prov)
		c.Performance = &pc
		performances = append(performances, c)

		if pc.Venue.Pending && !seenPlaces[pc.Venue.Name] {
			seenPlaces[pc.Venue.Name] = true
			placeProv := prov
			placeProv.Span = venueRaw
			place := model.NewCandidate(model.CandidatePlace, model.ConfidenceLow, placeProv)
			place.Place = &model.PlaceCandidate{Name: pc.Venue.Name}
			places = append(places, place)
		}
	}
	return performances, places
}

// Confidence applies the grading policy: high when all four positional
// fields are present and the date resolved to a valid ISO form, medium when
// three of four are present and at least the year resolved, low otherwise.
func Confidence(pc model.PerformanceCandidate) model.Confidence {
	fields := 0
	if pc.Date.Verbatim != "" {
		fields++
	}
	if pc.Company != "" {
		fields++
	}
	if pc.Venue.Name != "" {
		fields++
	}
	if pc.SourceVolume != "" {
		fields++
	}

	switch {
	case fields == 4 && pc.Date.HasDay():
		return model.ConfidenceHigh
	case fields >= 3 && pc.Date.Year != 0:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

// audienceFor infers the audience from the venue type: court venues played
// for the court, corrales for the paying public.
func audienceFor(t model.PlaceType) string {
	switch t {
	case model.PlacePalace:
		return "corte"
	case model.PlaceCorral:
		return "pueblo"
	}
	return ""
}

// pageOf finds the page of the block line containing the start of span,
// falling back to the block's first page.
func pageOf(block model.EntryBlock, span string) int {
	head := span
	if idx := strings.IndexByte(head, ' '); idx > 0 {
		head = head[:idx]
	}
	for _, ln := range block.Lines {
		if strings.Contains(ln.Text, head) && strings.Contains(ln.Text, firstWords(span, 3)) {
			return ln.Page
		}
	}
	for _, ln := range block.Lines {
		if strings.HasPrefix(ln.Text, head) {
			return ln.Page
		}
	}
	return block.FirstPage()
}

func firstWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
