package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/vytor/memcore/internal/models"
)

const simulationRating = models.RatingEasy

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	days := -1
	var seedPath string
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Review every due card day by day with rating 3",
		Long: `Restore state (seeding it when no snapshot exists), then for each day
from 0 through --days review every due card of every seeded user with
rating 3. Each review is logged; a snapshot is taken at the end.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.Config
			if days >= 0 {
				cfg.SimulationDays = days
			}
			if seedPath != "" {
				cfg.SeedPath = seedPath
			}

			a, err := openApp(cfg, nil, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.bootstrap(cmd.Context()); err != nil {
				return err
			}
			return a.simulate(cmd.Context(), cmd.OutOrStdout(), cfg.SimulationDays)
		},
	}
	cmd.Flags().IntVar(&days, "days", -1, "last simulated day, overrides SIMULATION_DAYS")
	cmd.Flags().StringVar(&seedPath, "seed", "", "seed YAML file, overrides SEED_PATH")
	return cmd
}

func (a *app) simulate(ctx context.Context, out io.Writer, lastDay int) error {
	users := a.seed.UserIDs()
	for day := 0; day <= lastDay; day++ {
		fmt.Fprintf(out, "Day: %d\n", day)
		for _, uid := range users {
			due := a.svc.DueCards(ctx, uid, models.Date(day), models.AllTopics)
			if len(users) > 1 {
				fmt.Fprintf(out, "User: %d\n", uid)
			}
			fmt.Fprintf(out, "Due count: %d\n", len(due))
			for _, cid := range due {
				card, err := a.svc.ReviewCard(ctx, uid, cid, simulationRating)
				if err != nil {
					return fmt.Errorf("review card %d for user %d: %w", cid, uid, err)
				}
				fmt.Fprintf(out, "Reviewing Card: %d (next review day %d)\n", cid, card.NextReviewDate)
			}
		}
		fmt.Fprintln(out, "-----------------------")
	}
	return a.svc.Snapshot(ctx)
}
