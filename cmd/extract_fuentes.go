package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/item-teatro/comedia-cli/internal/extract"
	"github.com/item-teatro/comedia-cli/internal/model"
	"github.com/item-teatro/comedia-cli/internal/normalize"
	"github.com/item-teatro/comedia-cli/internal/queue"
	"github.com/item-teatro/comedia-cli/internal/segment"
)

var (
	extractFuentesInput  string
	extractFuentesOutput string
)

var extractFuentesCmd = &cobra.Command{
	Use:   "extract-fuentes",
	Short: "Extract candidates from the OCR'd FUENTES IX chunk files",
	RunE: func(cmd *cobra.Command, args []string) error {
		input := extractFuentesInput
		if input == "" {
			input = cfg.Inputs.FuentesDir
		}

		catalog, err := normalize.LoadCatalog(cfg.Inputs.PlaceCatalog)
		if err != nil {
			return err
		}
		resolver := normalize.NewPlaceResolver(catalog)

		manifest, err := segment.DiscoverChunks(input)
		if err != nil {
			return err
		}
		if len(manifest.MissingParts) > 0 {
			zap.L().Warn("chunk sequence has gaps",
				zap.Ints("missing_parts", manifest.MissingParts))
		}

		var pages []model.Page
		for _, chunk := range manifest.Chunks {
			chunkPages, err := segment.ReadChunk(chunk)
			if err != nil {
				if eris.Is(err, segment.ErrMalformedPageMarker) {
					zap.L().Warn("skipping malformed chunk",
						zap.String("path", chunk.Path),
						zap.Error(err))
					continue
				}
				return err
			}
			pages = append(pages, chunkPages...)
		}

		blocks, err := segment.Segment(pages)
		if err != nil {
			return err
		}
		zap.L().Info("volume segmented",
			zap.Int("pages", len(pages)),
			zap.Int("entries", len(blocks)))

		extractor := extract.New(resolver)
		var cands []model.Candidate
		for _, block := range blocks {
			cands = append(cands, extractor.Block(block, model.SourceFuentesIX).All()...)
		}

		snap := queue.Build(cands, nil, input, time.Now())
		if err := snap.Save(snapshotPath(extractFuentesOutput)); err != nil {
			return err
		}

		fmt.Printf("Extracted %d candidates from %d entries (%d pages)\n",
			snap.Counts.Total, len(blocks), len(pages))
		printTypeCounts(snap.Counts)
		return nil
	},
}

func init() {
	extractFuentesCmd.Flags().StringVar(&extractFuentesInput, "input", "", "directory of OCR chunk files (defaults to inputs.fuentes_dir)")
	extractFuentesCmd.Flags().StringVar(&extractFuentesOutput, "output", "", "queue snapshot path (defaults to queue.snapshot_path)")
	rootCmd.AddCommand(extractFuentesCmd)
}
