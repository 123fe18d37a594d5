package model

// DatePrecision classifies how much of a performance date could be recovered
// from the Spanish prose it was written in.
type DatePrecision string

const (
	PrecisionDay           DatePrecision = "day"
	PrecisionMonth         DatePrecision = "month"
	PrecisionYear          DatePrecision = "year"
	PrecisionApproxBefore  DatePrecision = "approximate-before"
	PrecisionApproxBetween DatePrecision = "approximate-between"
	PrecisionUnparsed      DatePrecision = "unparsed"
)

// PerformanceDate is a Spanish date phrase plus whatever ISO form could be
// parsed out of it. Verbatim is always kept; ISO is empty when the phrase was
// unparseable. For ranges ISO holds the start day and RangeEnd the end day.
type PerformanceDate struct {
	Verbatim  string        `json:"verbatim"`
	ISO       string        `json:"iso,omitempty"`
	Year      int           `json:"year,omitempty"`
	Precision DatePrecision `json:"precision"`
	RangeEnd  string        `json:"range_end,omitempty"`
}

// Parsed reports whether any ISO form was recovered.
func (d PerformanceDate) Parsed() bool {
	return d.ISO != "" && d.Precision != PrecisionUnparsed
}

// HasDay reports whether the date is precise to the day.
func (d PerformanceDate) HasDay() bool {
	switch d.Precision {
	case PrecisionDay, PrecisionApproxBefore, PrecisionApproxBetween:
		return d.ISO != ""
	}
	return false
}
