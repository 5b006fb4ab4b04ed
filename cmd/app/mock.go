package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/freshcart/storefront/internal/mockdata"
)

func mockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Manage the fallback mock dataset",
	}

	var (
		seed     int64
		products int
	)
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate the mock dataset and store it in postgres",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			opts := mockdata.Options{Seed: cfg.Mock.Seed, Products: cfg.Mock.Products}
			if cmd.Flags().Changed("seed") {
				opts.Seed = seed
			}
			if cmd.Flags().Changed("products") {
				opts.Products = products
			}
			d, err := mockdata.Generate(opts)
			if err != nil {
				return err
			}

			if cfg.Database.URL == "" {
				log.Warn("database.url is not set, dataset generated but not stored")
			} else {
				db, err := openDB(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := mockdata.NewPostgresStore(db, "").Save(cmd.Context(), d); err != nil {
					return err
				}
				log.Info("mock dataset stored", zap.Int64("seed", d.Seed))
			}

			counts := d.Counts()
			names := make([]string, 0, len(counts))
			for name := range counts {
				names = append(names, name)
			}
			sort.Strings(names)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "seed %d\n", d.Seed)
			for _, name := range names {
				fmt.Fprintf(out, "%-12s %d\n", name, counts[name])
			}
			return nil
		},
	}
	seedCmd.Flags().Int64Var(&seed, "seed", mockdata.DefaultSeed, "faker seed")
	seedCmd.Flags().IntVar(&products, "products", mockdata.DefaultProducts, "number of products")

	cmd.AddCommand(seedCmd)
	return cmd
}
