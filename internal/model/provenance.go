package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Source identifies which of the two bibliographic sources a record came from.
type Source string

const (
	SourceFuentesIX Source = "FUENTES_IX"
	SourceCATCOM    Source = "CATCOM"
)

// Provenance points back at the exact origin of an extracted record: the
// source, the global page number in that source, and the verbatim text span
// the record was read from. It is preserved through fusion and integration.
type Provenance struct {
	Source   Source `json:"source"`
	Page     int    `json:"page"`
	Span     string `json:"span"`
	PartFile string `json:"part_file,omitempty"`
}

// CandidateID derives the temporary candidate id from provenance. It is a
// pure function of its input, so re-running extraction over the same pages
// yields the same ids and recorded decisions can be joined back on.
func (p Provenance) CandidateID() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", p.Source, p.Page, p.Span)))
	return hex.EncodeToString(sum[:])[:16]
}
