package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/item-teatro/comedia-cli/internal/fuse"
	"github.com/item-teatro/comedia-cli/internal/model"
	"github.com/item-teatro/comedia-cli/internal/queue"
)

var fuseSnapshot string

var fuseCmd = &cobra.Command{
	Use:   "fuse",
	Short: "Merge candidates that describe the same work across sources",
	Long:  "Groups queue candidates by normalized title, merges duplicate works, and flags divergent performance notices as conflicts for review.",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := snapshotPath(fuseSnapshot)
		snap, err := queue.Load(path)
		if err != nil {
			return err
		}
		before := snap.Counts.Total

		var cands []model.Candidate
		for _, syn := range snap.All() {
			cands = append(cands, syn.Candidate)
		}
		res := fuse.Fuse(cands)

		fused := queue.Build(res.Candidates, res.Conflicts, snap.InputPath, time.Now())
		if err := fused.Save(path); err != nil {
			return err
		}
		zap.L().Info("queue fused",
			zap.Int("before", before),
			zap.Int("after", fused.Counts.Total),
			zap.Int("conflicts", len(res.Conflicts)))

		fmt.Printf("Fused %d candidates into %d (%d merged away, %d conflicts)\n",
			before, fused.Counts.Total, before-fused.Counts.Total, len(res.Conflicts))
		printTypeCounts(fused.Counts)
		return nil
	},
}

func init() {
	fuseCmd.Flags().StringVar(&fuseSnapshot, "snapshot", "", "queue snapshot path (defaults to queue.snapshot_path)")
	rootCmd.AddCommand(fuseCmd)
}
