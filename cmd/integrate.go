package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/item-teatro/comedia-cli/internal/integrate"
	"github.com/item-teatro/comedia-cli/internal/queue"
)

var (
	integrateApply    bool
	integrateVersion  string
	integrateSnapshot string
)

var integrateCmd = &cobra.Command{
	Use:   "integrate",
	Short: "Integrate accepted candidates into the canonical catalog",
	Long:  "Joins accepted decisions against the validation queue and writes the resulting works, performances, places and companies to the store. Runs as a dry run by default; pass --apply to mutate the catalog. Divergent existing records produce conflict notes instead of overwrites.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		snap, err := queue.Load(snapshotPath(integrateSnapshot))
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		report, err := integrate.New(st).Run(ctx, snap, integrate.Options{
			DryRun:  !integrateApply,
			Version: integrateVersion,
		})
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		if report.DryRun {
			fmt.Fprintf(cmd.OutOrStdout(), "Dry run: %d mutations pending, re-run with --apply to write them\n", report.Mutations())
		}
		return nil
	},
}

func init() {
	integrateCmd.Flags().BoolVar(&integrateApply, "apply", false, "write changes to the store instead of reporting them")
	integrateCmd.Flags().StringVar(&integrateVersion, "version", "", "pipeline version recorded in the audit trail")
	integrateCmd.Flags().StringVar(&integrateSnapshot, "snapshot", "", "queue snapshot path (defaults to queue.snapshot_path)")
	rootCmd.AddCommand(integrateCmd)
}
