package model

// Performance is a single staging event of a Work in the canonical store.
// Identity is the tuple (work, ISO date, company, venue, source).
type Performance struct {
	ID           string          `json:"id"`
	WorkTitle    string          `json:"work_title"`
	Date         PerformanceDate `json:"date"`
	Company      string          `json:"company,omitempty"`
	Venue        string          `json:"venue,omitempty"`
	Patron       string          `json:"patron,omitempty"`
	FunctionType string          `json:"function_type,omitempty"`
	Audience     string          `json:"audience,omitempty"`
	Observations string          `json:"observations,omitempty"`
	Provenance   Provenance      `json:"provenance"`
}

// PerformanceCandidate is an extracted, not-yet-validated performance.
type PerformanceCandidate struct {
	WorkTitle    string          `json:"work_title"`
	Number       int             `json:"number,omitempty"`
	Date         PerformanceDate `json:"date"`
	Company      string          `json:"company,omitempty"`
	Venue        Place           `json:"venue"`
	VenueRaw     string          `json:"venue_raw,omitempty"`
	Patron       string          `json:"patron,omitempty"`
	FunctionType string          `json:"function_type,omitempty"`
	Audience     string          `json:"audience,omitempty"`
	Observations string          `json:"observations,omitempty"`
	SourceVolume string          `json:"source_volume,omitempty"`
}

// IdentityKey builds the upsert identity tuple for a performance.
func (p Performance) IdentityKey() string {
	return p.WorkTitle + "|" + p.Date.ISO + "|" + p.Company + "|" + p.Venue + "|" + string(p.Provenance.Source)
}
