package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/datatable/internal/core"
	"github.com/spf13/cobra"
)

func newSeedCommand() *cobra.Command {
	var (
		rows int
		seed uint64
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert generated demo tasks into the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := databaseConfig()
			if err != nil {
				return err
			}
			if rows <= 0 {
				rows = cfg.Database.SeedRows
			}
			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}

			ctx := cmd.Context()
			pool, err := openPool(ctx, cfg.Database)
			if err != nil {
				return err
			}
			store := core.NewPgStore(pool)
			defer store.Close()

			written, err := core.NewService(store).Seed(ctx, rows, seed)
			if err != nil {
				return err
			}
			slog.Info("seeded tasks", "rows", written, "seed", seed)
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d tasks\n", written)
			return nil
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 0, "number of tasks (default: DB_SEED_ROWS)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (default: current time)")

	return cmd
}
