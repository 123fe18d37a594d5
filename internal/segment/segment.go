// Package segment splits per-page OCR text into entry blocks: one block per
// work, first line the catalog title, body holding the numbered performance
// records. Every line keeps the page it was read from.
package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/item-teatro/comedia-cli/internal/model"
)

// maxTitleLen rejects body prose that happens to start a line uppercase.
const maxTitleLen = 150

// runningHeaders are the repeated page headers of the printed volume.
var runningHeaders = []string{
	"COMEDIAS",
	"FUENTES",
	"LISTA",
}

var titleSuffixes = []string{", El", ", La", ", Los", ", Las"}

// ErrUnsortedPages reports input pages out of order.
var ErrUnsortedPages = eris.New("segment: pages not strictly increasing")

// Segment walks the pages in order and produces entry blocks. It is a pure
// function of its input: same pages, same blocks. Pages must be sorted by
// global number.
func Segment(pages []model.Page) ([]model.EntryBlock, error) {
	lines, err := flatten(pages)
	if err != nil {
		return nil, err
	}

	var blocks []model.EntryBlock
	var open *model.EntryBlock

	flush := func() {
		if open == nil {
			return
		}
		finishBlock(open)
		blocks = append(blocks, *open)
		open = nil
	}

	for i := 0; i < len(lines); i++ {
		ln := lines[i]
		text := strings.TrimSpace(ln.Text)
		if text == "" || isRunningHeader(text) {
			continue
		}

		if isTitleLine(text, nextBodyLine(lines, i+1)) {
			flush()
			open = &model.EntryBlock{
				Title:    text,
				Pages:    []int{ln.Page},
				PartFile: ln.PartFile,
			}
			continue
		}

		if open == nil {
			// Prose before the first title; nothing to attach it to.
			continue
		}
		open.Lines = append(open.Lines, model.Line{Text: text, Page: ln.Page})
		open.Pages = appendPage(open.Pages, ln.Page)
	}
	flush()

	return blocks, nil
}

type pageLine struct {
	Text     string
	Page     int
	PartFile string
}

func flatten(pages []model.Page) ([]pageLine, error) {
	var lines []pageLine
	last := 0
	for _, p := range pages {
		if p.Number <= last {
			return nil, eris.Wrapf(ErrUnsortedPages, "page %d after %d", p.Number, last)
		}
		last = p.Number
		for _, text := range strings.Split(p.Text, "\n") {
			lines = append(lines, pageLine{Text: text, Page: p.Number, PartFile: p.PartFile})
		}
	}
	return lines, nil
}

func finishBlock(b *model.EntryBlock) {
	if len(b.Lines) > 0 && strings.HasPrefix(b.Lines[0].Text, "Véase") {
		b.CrossRefOnly = true
	}
}

// isTitleLine applies the title heuristics: uppercase start, short, not a
// header, and either a suffix article or a capitalized phrase whose body
// opens with a cross-reference or the first numbered performance.
func isTitleLine(text, nextBody string) bool {
	if text == "" || len(text) <= 3 || len(text) >= maxTitleLen {
		return false
	}
	first, _ := utf8.DecodeRuneInString(text)
	if !unicode.IsUpper(first) {
		return false
	}
	if strings.HasPrefix(text, "(") || strings.HasPrefix(text, "---") {
		return false
	}
	// Cross-reference lines quote the target title, suffix article included
	// ("Véase Empeños de un acaso, Los."). They are body, never titles.
	if strings.HasPrefix(text, "Véase") {
		return false
	}
	if isRunningHeader(text) {
		return false
	}
	for _, suffix := range titleSuffixes {
		if strings.HasSuffix(strings.TrimSuffix(text, "."), suffix) {
			return true
		}
	}
	// Single-line capitalized phrase directly followed by a cross-reference
	// or by performance (1).
	if strings.HasPrefix(nextBody, "Véase") || strings.HasPrefix(nextBody, "(1)") {
		return !strings.ContainsAny(text, ".") && capitalizedPhrase(text)
	}
	return false
}

// capitalizedPhrase keeps title detection away from mid-sentence fragments:
// no digits, and the line must not start lowercase after its first word.
func capitalizedPhrase(text string) bool {
	for _, r := range text {
		if unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// nextBodyLine returns the next non-empty, non-header line starting at i.
func nextBodyLine(lines []pageLine, i int) string {
	for ; i < len(lines); i++ {
		text := strings.TrimSpace(lines[i].Text)
		if text == "" || isRunningHeader(text) {
			continue
		}
		return text
	}
	return ""
}

func isRunningHeader(text string) bool {
	for _, h := range runningHeaders {
		if strings.HasPrefix(text, h) {
			return true
		}
	}
	return false
}

func appendPage(pages []int, page int) []int {
	for _, p := range pages {
		if p == page {
			return pages
		}
	}
	return append(pages, page)
}
