package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/item-teatro/comedia-cli/internal/normalize"
	"github.com/item-teatro/comedia-cli/internal/store"
)

var seedPlacesCmd = &cobra.Command{
	Use:   "seed-places",
	Short: "Seed the store with the curated place catalog",
	Long:  "Upserts every canonical place from the place catalog into the store so integration can link performances to venues that were never extracted on their own.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		catalog, err := normalize.LoadCatalog(cfg.Inputs.PlaceCatalog)
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		var seeded int64
		if pg, ok := st.(*store.PostgresStore); ok {
			seeded, err = pg.SeedPlaces(ctx, catalog)
			if err != nil {
				return err
			}
		} else {
			seeded, err = seedPlacesOneByOne(cmd, st, catalog)
			if err != nil {
				return err
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d places\n", seeded)
		return nil
	},
}

// seedPlacesOneByOne inserts catalog places individually for backends without
// bulk upsert, skipping names already present.
func seedPlacesOneByOne(cmd *cobra.Command, st store.Store, catalog *normalize.Catalog) (int64, error) {
	ctx := cmd.Context()
	resolver := normalize.NewPlaceResolver(catalog)

	var seeded int64
	for _, category := range catalog.Categories {
		for _, cp := range category.Places {
			place := resolver.Resolve(cp.CanonicalName)
			if place.Pending {
				continue
			}
			existing, err := st.GetPlace(ctx, place.Name)
			if err != nil {
				return seeded, err
			}
			if existing != nil {
				continue
			}
			if err := st.InsertPlace(ctx, place); err != nil {
				return seeded, err
			}
			seeded++
		}
	}
	return seeded, nil
}

func init() {
	rootCmd.AddCommand(seedPlacesCmd)
}
