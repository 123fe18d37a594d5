package catcom

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/item-teatro/comedia-cli/internal/model"
)

const loadWorkers = 8

// LoadDir parses every CATCOM work file under dir concurrently and returns
// the extracted candidates in deterministic order regardless of scheduling:
// files are processed in parallel but results are keyed by filename, sorted,
// then flattened.
func LoadDir(ctx context.Context, dir string, adapter *Adapter) ([]model.Candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "catcom: read directory %s", dir)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return nil, eris.Errorf("catcom: no work files in %s", dir)
	}
	sort.Strings(names)

	var mu sync.Mutex
	byFile := make(map[string][]model.Candidate, len(names))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(loadWorkers)
	for _, name := range names {
		name := name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cands, err := loadFile(filepath.Join(dir, name), adapter)
			if err != nil {
				return err
			}
			mu.Lock()
			byFile[name] = cands
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []model.Candidate
	for _, name := range names {
		out = append(out, byFile[name]...)
	}
	zap.L().Info("catcom load complete",
		zap.Int("files", len(names)),
		zap.Int("candidates", len(out)))
	return out, nil
}

func loadFile(path string, adapter *Adapter) ([]model.Candidate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catcom: read %s", path)
	}
	var wf WorkFile
	if err := json.Unmarshal(raw, &wf); err != nil {
		return nil, eris.Wrapf(err, "catcom: parse %s", path)
	}
	if wf.MainTitle == "" && wf.Title == "" {
		zap.L().Warn("catcom work file without title, skipping", zap.String("file", filepath.Base(path)))
		return nil, nil
	}
	return adapter.Work(wf), nil
}
