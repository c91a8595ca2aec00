// planctl operates the planner directly against the configured store: plan a
// day, reconcile the index, audit ownership, seed fixtures. It reads the same
// LODESTONE_ environment variables as the service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lodestone-app/lodestone/internal/api/validate"
	"github.com/lodestone-app/lodestone/internal/config"
	"github.com/lodestone-app/lodestone/internal/factory"
	"github.com/lodestone-app/lodestone/internal/logger"
	"github.com/lodestone-app/lodestone/internal/seed"
	"github.com/lodestone-app/lodestone/internal/services"
	storepkg "github.com/lodestone-app/lodestone/internal/store"
)

var (
	ownerFlag string
	dayFlag   string
	rootCmd   = &cobra.Command{
		Use:   "planctl",
		Short: "Operate the Lodestone planner against the configured store",
	}
)

// openStore resolves config and builds the store selected by DB_DRIVER.
func openStore(ctx context.Context) (storepkg.Store, *config.Config, error) {
	log := logger.New("planctl")
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}
	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return st, cfg, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan one owner's day and print the resulting assignments",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validate.OwnerID(ownerFlag); err != nil {
				return err
			}
			ctx := cmd.Context()
			st, cfg, err := openStore(ctx)
			if err != nil {
				return err
			}
			loc := cfg.Location()
			day := time.Now().In(loc)
			if dayFlag != "" {
				if day, err = validate.DayKey(dayFlag, loc); err != nil {
					return err
				}
			}
			result, err := services.NewPlanningService(st, logger.New("planctl")).PlanDay(ctx, ownerFlag, day, loc)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	planCmd.Flags().StringVarP(&ownerFlag, "owner", "o", "", "Owner ID (required)")
	planCmd.Flags().StringVarP(&dayFlag, "day", "d", "", "Day to plan, YYYY-MM-DD (default today)")
	_ = planCmd.MarkFlagRequired("owner")
	rootCmd.AddCommand(planCmd)

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run index reconciliation and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ownerFlag != "" {
				if err := validate.OwnerID(ownerFlag); err != nil {
					return err
				}
			}
			ctx := cmd.Context()
			st, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			rep, err := services.NewReconcileService(st, logger.New("planctl")).Reconcile(ctx, ownerFlag)
			if err != nil {
				return err
			}
			return printJSON(rep)
		},
	}
	reconcileCmd.Flags().StringVarP(&ownerFlag, "owner", "o", "", "Owner ID (default: all owners)")
	rootCmd.AddCommand(reconcileCmd)

	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "List items with no owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			rep, err := services.NewAuditService(st, logger.New("planctl")).Unowned(ctx)
			if err != nil {
				return err
			}
			return printJSON(rep)
		},
	}
	rootCmd.AddCommand(auditCmd)

	seedCmd := &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load items and blocks from a YAML fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			fixture, err := seed.Load(args[0])
			if err != nil {
				return err
			}
			items, blocks, err := fixture.Apply(ctx, st)
			if err != nil {
				return err
			}
			fmt.Printf("seeded %d items, %d blocks\n", items, blocks)
			return nil
		},
	}
	rootCmd.AddCommand(seedCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
