package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/item-teatro/comedia-cli/internal/catcom"
	"github.com/item-teatro/comedia-cli/internal/model"
	"github.com/item-teatro/comedia-cli/internal/normalize"
	"github.com/item-teatro/comedia-cli/internal/queue"
)

var (
	extractCatcomInput  string
	extractCatcomOutput string
)

var extractCatcomCmd = &cobra.Command{
	Use:   "extract-catcom",
	Short: "Extract candidates from scraped CATCOM work files",
	Long:  "Parses the per-work JSON files scraped from CATCOM and merges the resulting candidates into the validation queue. Existing queue entries are kept.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		input := extractCatcomInput
		if input == "" {
			input = cfg.Inputs.CatcomDir
		}

		catalog, err := normalize.LoadCatalog(cfg.Inputs.PlaceCatalog)
		if err != nil {
			return err
		}
		adapter := catcom.New(normalize.NewPlaceResolver(catalog))

		cands, err := catcom.LoadDir(ctx, input, adapter)
		if err != nil {
			return err
		}

		path := snapshotPath(extractCatcomOutput)
		snap, err := queue.Load(path)
		switch {
		case err == nil:
			snap.Append(cands, time.Now())
		case eris.Is(err, os.ErrNotExist):
			snap = queue.Build(cands, nil, input, time.Now())
		default:
			return err
		}

		if err := snap.Save(path); err != nil {
			return err
		}
		zap.L().Info("catcom candidates merged",
			zap.Int("new", len(cands)),
			zap.Int("total", snap.Counts.Total))

		fmt.Printf("Merged %d CATCOM candidates, queue now holds %d\n", len(cands), snap.Counts.Total)
		printTypeCounts(snap.Counts)
		return nil
	},
}

func printTypeCounts(counts queue.Counts) {
	for _, t := range []model.CandidateType{model.CandidateWork, model.CandidatePerformance, model.CandidatePlace} {
		if n := counts.ByType[t]; n > 0 {
			fmt.Printf("  %-12s %d\n", t, n)
		}
	}
}

func init() {
	extractCatcomCmd.Flags().StringVar(&extractCatcomInput, "input", "", "directory of CATCOM JSON files (defaults to inputs.catcom_dir)")
	extractCatcomCmd.Flags().StringVar(&extractCatcomOutput, "output", "", "queue snapshot path (defaults to queue.snapshot_path)")
	rootCmd.AddCommand(extractCatcomCmd)
}
