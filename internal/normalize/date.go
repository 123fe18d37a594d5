package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/item-teatro/comedia-cli/internal/model"
)

// Performance dates in the corpus fall between the birth of the comedia
// nueva and the end of the Habsburg repertoire records.
const (
	MinYear = 1500
	MaxYear = 1800
)

// spanishMonths maps the closed month lexicon to month numbers. "setiembre"
// is the historical spelling of September that the volumes actually use.
var spanishMonths = map[string]time.Month{
	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"setiembre":  time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

const monthAlt = `enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|setiembre|octubre|noviembre|diciembre`

// datePattern pairs a compiled pattern with the handler that turns its
// capture groups into a PerformanceDate. Patterns are tried in order; adding
// a new date form is one entry here plus one test case.
type datePattern struct {
	name  string
	re    *regexp.Regexp
	build func(groups []string) (model.PerformanceDate, bool)
}

var datePatterns = []datePattern{
	{
		name: "between",
		re:   regexp.MustCompile(`(?i)entre\s+(?:el\s+)?(\d{1,2})\s+de\s+(` + monthAlt + `)\s+de\s+(\d{4})\s+y\s+(?:el\s+)?(\d{1,2})\s+de\s+(` + monthAlt + `)\s+de\s+(\d{4})`),
		build: func(g []string) (model.PerformanceDate, bool) {
			start, ok := isoDate(g[3], g[2], g[1])
			if !ok {
				return model.PerformanceDate{}, false
			}
			end, _ := isoDate(g[6], g[5], g[4])
			return model.PerformanceDate{
				ISO:       start,
				Year:      atoi(g[3]),
				Precision: model.PrecisionApproxBetween,
				RangeEnd:  end,
			}, true
		},
	},
	{
		name: "before",
		re:   regexp.MustCompile(`(?i)antes\s+del?\s+(\d{1,2})\s+de\s+(` + monthAlt + `)\s+de\s+(\d{4})`),
		build: func(g []string) (model.PerformanceDate, bool) {
			iso, ok := isoDate(g[3], g[2], g[1])
			if !ok {
				return model.PerformanceDate{}, false
			}
			return model.PerformanceDate{ISO: iso, Year: atoi(g[3]), Precision: model.PrecisionApproxBefore}, true
		},
	},
	{
		name: "day-range",
		re:   regexp.MustCompile(`(?i)(\d{1,2})\s*(?:-|y)\s*(\d{1,2})\s+de\s+(` + monthAlt + `)\s+de\s+(\d{4})`),
		build: func(g []string) (model.PerformanceDate, bool) {
			start, ok := isoDate(g[4], g[3], g[1])
			if !ok {
				return model.PerformanceDate{}, false
			}
			end, _ := isoDate(g[4], g[3], g[2])
			return model.PerformanceDate{
				ISO:       start,
				Year:      atoi(g[4]),
				Precision: model.PrecisionDay,
				RangeEnd:  end,
			}, true
		},
	},
	{
		name: "day",
		re:   regexp.MustCompile(`(?i)(\d{1,2})\s+de\s+(` + monthAlt + `)\s+de\s+(\d{4})`),
		build: func(g []string) (model.PerformanceDate, bool) {
			iso, ok := isoDate(g[3], g[2], g[1])
			if !ok {
				return model.PerformanceDate{}, false
			}
			return model.PerformanceDate{ISO: iso, Year: atoi(g[3]), Precision: model.PrecisionDay}, true
		},
	},
	{
		name: "month-year",
		re:   regexp.MustCompile(`(?i)\b(` + monthAlt + `)\s+de\s+(\d{4})`),
		build: func(g []string) (model.PerformanceDate, bool) {
			iso, ok := isoDate(g[2], g[1], "1")
			if !ok {
				return model.PerformanceDate{}, false
			}
			return model.PerformanceDate{ISO: iso, Year: atoi(g[2]), Precision: model.PrecisionMonth}, true
		},
	},
	{
		name: "year",
		re:   regexp.MustCompile(`\b(\d{4})\b`),
		build: func(g []string) (model.PerformanceDate, bool) {
			year := atoi(g[1])
			if !validYear(year) {
				return model.PerformanceDate{}, false
			}
			return model.PerformanceDate{
				ISO:       fmt.Sprintf("%04d-01-01", year),
				Year:      year,
				Precision: model.PrecisionYear,
			}, true
		},
	},
}

// ParseDate parses a Spanish date phrase against the pattern table. The
// verbatim phrase is always preserved; on no match the result has the
// unparsed precision and an empty ISO form. Years outside [1500, 1800] are
// rejected even when syntactically valid.
func ParseDate(phrase string) model.PerformanceDate {
	verbatim := CollapseSpaces(phrase)
	for _, p := range datePatterns {
		m := p.re.FindStringSubmatch(verbatim)
		if m == nil {
			continue
		}
		d, ok := p.build(m)
		if !ok {
			continue
		}
		d.Verbatim = verbatim
		return d
	}
	return model.PerformanceDate{Verbatim: verbatim, Precision: model.PrecisionUnparsed}
}

// isoDate validates and formats year/month-name/day into YYYY-MM-DD.
// Returns false for unknown months, out-of-window years, or impossible days.
func isoDate(yearStr, monthName, dayStr string) (string, bool) {
	month, ok := spanishMonths[strings.ToLower(monthName)]
	if !ok {
		return "", false
	}
	year := atoi(yearStr)
	day := atoi(dayStr)
	if !validYear(year) || day < 1 || day > 31 {
		return "", false
	}
	// Round-trip through time.Date to reject days the month does not have.
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

func validYear(y int) bool {
	return y >= MinYear && y <= MaxYear
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
