package segment

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/item-teatro/comedia-cli/internal/model"
)

// ChunkPageCount is how many pages each OCR chunk covers. The observed
// volumes were OCR'd in uniform 25-page chunks; the manifest isolates this
// assumption so a future volume can ship an explicit chunk table instead.
const ChunkPageCount = 25

// ErrMalformedPageMarker reports a missing or non-increasing page marker.
var ErrMalformedPageMarker = eris.New("segment: malformed page marker")

var (
	partPattern   = regexp.MustCompile(`(?i)_part_(\d+)`)
	markerPattern = regexp.MustCompile(`^---\s*PÁGINA\s+(\d+)\s*---$`)
)

// Chunk is one OCR text file and its position in the volume.
type Chunk struct {
	Path   string
	Part   int
	Offset int
}

// ChunkManifest lists the discovered chunks of a volume in part order, plus
// any gaps in the part numbering.
type ChunkManifest struct {
	Dir          string
	Chunks       []Chunk
	MissingParts []int
}

// DiscoverChunks finds `*_part_<nnn>*.txt` files under dir and builds the
// offset table. Gaps between chunks are recorded, not fatal; the caller
// decides whether to proceed.
func DiscoverChunks(dir string) (*ChunkManifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "segment: read chunk dir %s", dir)
	}

	m := &ChunkManifest{Dir: dir}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		match := partPattern.FindStringSubmatch(e.Name())
		if match == nil {
			continue
		}
		part, err := strconv.Atoi(match[1])
		if err != nil || part < 1 {
			continue
		}
		m.Chunks = append(m.Chunks, Chunk{
			Path:   filepath.Join(dir, e.Name()),
			Part:   part,
			Offset: (part - 1) * ChunkPageCount,
		})
	}
	if len(m.Chunks) == 0 {
		return nil, eris.Errorf("segment: no OCR chunks found in %s", dir)
	}

	sort.Slice(m.Chunks, func(i, j int) bool { return m.Chunks[i].Part < m.Chunks[j].Part })

	seen := make(map[int]bool, len(m.Chunks))
	for _, c := range m.Chunks {
		seen[c.Part] = true
	}
	for p := m.Chunks[0].Part; p <= m.Chunks[len(m.Chunks)-1].Part; p++ {
		if !seen[p] {
			m.MissingParts = append(m.MissingParts, p)
		}
	}
	if len(m.MissingParts) > 0 {
		zap.L().Warn("gaps in OCR chunk coverage",
			zap.String("dir", dir),
			zap.Ints("missing_parts", m.MissingParts),
		)
	}
	return m, nil
}

// ReadChunk parses one chunk file into pages with global page numbers.
// Markers carry chunk-local numbers; the chunk offset translates them.
// A chunk without any marker, or with non-increasing local numbers, fails
// with ErrMalformedPageMarker.
func ReadChunk(c Chunk) ([]model.Page, error) {
	raw, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "segment: read chunk %s", c.Path)
	}
	return parsePages(string(raw), filepath.Base(c.Path), c.Offset)
}

func parsePages(text, partFile string, offset int) ([]model.Page, error) {
	var pages []model.Page
	var current *model.Page
	lastLocal := 0

	for i, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if match := markerPattern.FindStringSubmatch(trimmed); match != nil {
			local, _ := strconv.Atoi(match[1])
			if local <= lastLocal {
				return nil, eris.Wrapf(ErrMalformedPageMarker,
					"%s line %d: page %d after page %d", partFile, i+1, local, lastLocal)
			}
			lastLocal = local
			pages = append(pages, model.Page{
				Number:   offset + local,
				PartFile: partFile,
			})
			current = &pages[len(pages)-1]
			continue
		}
		if current == nil {
			// Preamble before the first marker is OCR noise.
			continue
		}
		if current.Text != "" {
			current.Text += "\n"
		}
		current.Text += line
	}

	if len(pages) == 0 {
		return nil, eris.Wrapf(ErrMalformedPageMarker, "%s: no page markers", partFile)
	}
	return pages, nil
}
