package model

// AuthorAnonymous is the canonical author value for unattributed works.
const AuthorAnonymous = "Anónimo"

// Work is a canonical theatrical work. Identity is the canonical title
// (leading article restored, whitespace collapsed). Never deleted; every
// change goes through the audit log.
type Work struct {
	Title             string   `json:"title"`
	AlternativeTitles []string `json:"alternative_titles,omitempty"`
	Author            string   `json:"author"`
	Genre             string   `json:"genre,omitempty"`
	Subgenre          string   `json:"subgenre,omitempty"`
	EstimatedYear     int      `json:"estimated_year,omitempty"`
}

// Anonymous reports whether the work has no attributed author.
func (w Work) Anonymous() bool {
	return w.Author == "" || w.Author == AuthorAnonymous
}

// WorkCandidate is an extracted, not-yet-validated work.
type WorkCandidate struct {
	Title             string           `json:"title"`
	RawTitle          string           `json:"raw_title"`
	Author            string           `json:"author"`
	Genre             string           `json:"genre,omitempty"`
	AlternativeTitles []string         `json:"alternative_titles,omitempty"`
	CrossRefs         []CrossReference `json:"cross_refs,omitempty"`
}

// CrossReference is a named edge to another work ("Véase …"). The referenced
// title stays a string; resolution to a Work happens at query time.
type CrossReference struct {
	FromTitle string `json:"from_title"`
	ToTitle   string `json:"to_title"`
	Page      int    `json:"page,omitempty"`
}
