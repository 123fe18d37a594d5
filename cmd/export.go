package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/item-teatro/comedia-cli/internal/export"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the canonical catalog as an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := export.Catalog(ctx, st, exportOutput); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Catalog written to %s\n", exportOutput)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOutput, "output", "catalogo.xlsx", "output workbook path")
	rootCmd.AddCommand(exportCmd)
}
