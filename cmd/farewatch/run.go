package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"farewatch-service/internal/domain/entity"
	"farewatch-service/internal/usecase"

	"github.com/spf13/cobra"
)

func directCmd(o *overrides) *cobra.Command {
	return &cobra.Command{
		Use:   "direct",
		Short: "Record the cheapest fare per airline for one travel date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, o, usecase.ModeDirect)
		},
	}
}

func monthlyCmd(o *overrides) *cobra.Command {
	return &cobra.Command{
		Use:   "monthly",
		Short: "Record the cheapest fare of each month over the horizon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, o, usecase.ModeMonthly)
		},
	}
}

func runOnce(cmd *cobra.Command, o *overrides, mode string) error {
	cfg, log, err := loadConfig(cmd, o)
	if err != nil {
		return err
	}
	defer log.Sync()

	if mode == usecase.ModeDirect && cfg.TravelDate == "" {
		return errors.New("direct mode needs a travel date (--date or TRAVEL_DATE)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := runMode(ctx, a.collector, mode)
	if err != nil {
		return err
	}
	if failed := report.Count(entity.OutcomeFailed); failed > 0 {
		return fmt.Errorf("%d of %d candidates failed", failed, len(report.Results))
	}
	return nil
}

func runMode(ctx context.Context, collector *usecase.FareCollector, mode string) (*usecase.RunReport, error) {
	if mode == usecase.ModeMonthly {
		return collector.RunMonthly(ctx)
	}
	return collector.RunDirect(ctx)
}
