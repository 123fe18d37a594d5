package model

// PlaceType categorizes a theatrical venue.
type PlaceType string

const (
	PlacePalace       PlaceType = "palacio"
	PlaceCorral       PlaceType = "corral"
	PlaceChurch       PlaceType = "iglesia"
	PlaceSquare       PlaceType = "plaza"
	PlacePrivateHouse PlaceType = "casa_particular"
	PlaceUniversity   PlaceType = "universidad"
	PlaceConvent      PlaceType = "convento"
	PlaceOther        PlaceType = "otro"
)

// Place is a canonical venue from the place catalog, or a pending place when
// resolution missed. Identity is the canonical name.
type Place struct {
	Name    string    `json:"name"`
	Type    PlaceType `json:"type,omitempty"`
	City    string    `json:"city,omitempty"`
	Region  string    `json:"region,omitempty"`
	Country string    `json:"country,omitempty"`
	// Pending marks a place string that did not resolve against the catalog
	// and is preserved verbatim for human curation.
	Pending bool `json:"pending,omitempty"`
}

// PlaceCandidate is an unresolved venue proposed for addition to the catalog.
type PlaceCandidate struct {
	Name   string    `json:"name"`
	Type   PlaceType `json:"type,omitempty"`
	City   string    `json:"city,omitempty"`
	Region string    `json:"region,omitempty"`
}
