package model

// Page is one OCR'd page of a source volume. Identity is (volume, number)
// with Number global across the volume. Pages are immutable after ingest;
// the pipeline only reads them.
type Page struct {
	Volume    string `json:"volume"`
	Number    int    `json:"number"`
	PartFile  string `json:"part_file"`
	Text      string `json:"text"`
	ImagePath string `json:"image_path,omitempty"`
}

// Line is one line of page text tagged with the page it was read from.
type Line struct {
	Text string `json:"text"`
	Page int    `json:"page"`
}

// EntryBlock is a contiguous span of lines describing one work and its
// numbered performances. Produced by the segmenter, consumed by the
// extractor, never persisted.
type EntryBlock struct {
	Title    string `json:"title"`
	Lines    []Line `json:"lines"`
	Pages    []int  `json:"pages"`
	PartFile string `json:"part_file,omitempty"`
	// CrossRefOnly marks blocks whose body is just a "Véase …" pointer.
	CrossRefOnly bool `json:"cross_ref_only,omitempty"`
}

// Body joins the block's body lines (everything after the title) into one
// whitespace-separated string, the form the field extractor matches against.
func (b EntryBlock) Body() string {
	var out string
	for i, ln := range b.Lines {
		if i > 0 {
			out += " "
		}
		out += ln.Text
	}
	return out
}

// FirstPage returns the lowest page in the block's page set, 0 when unknown.
func (b EntryBlock) FirstPage() int {
	if len(b.Pages) == 0 {
		return 0
	}
	first := b.Pages[0]
	for _, p := range b.Pages[1:] {
		if p < first {
			first = p
		}
	}
	return first
}
