package main

import (
	"fmt"

	"github.com/andresuchdata/ddmrp/internal/domain"
	"github.com/andresuchdata/ddmrp/pkg/logger"
	"github.com/urfave/cli/v2"
)

func filterFrom(c *cli.Context) domain.ItemFilter {
	return domain.ItemFilter{LocationID: c.String("location")}
}

func runRecompute(c *cli.Context) error {
	services, err := appFrom(c)
	if err != nil {
		return err
	}

	result, err := services.Buffers.RecomputeAll(c.Context, filterFrom(c))
	if err != nil {
		return fmt.Errorf("recompute failed: %w", err)
	}

	logger.Log.Info().
		Int64("run_id", result.RunID).
		Int("total", result.Total).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Int("degraded", result.Degraded).
		Msg("recompute finished")
	for _, f := range result.Failures {
		logger.Log.Warn().Str("item_id", f.ItemID).Str("error", f.Error).Msg("item not recomputed")
	}

	if c.Bool("export") {
		if key := services.Reports.ExportAfterRecompute(c.Context, filterFrom(c), result.RunID); key != "" {
			logger.Log.Info().Str("key", key).Msg("report uploaded")
		}
	}
	return nil
}

func runActivateConfig(c *cli.Context) error {
	services, err := appFrom(c)
	if err != nil {
		return err
	}

	cfg := &domain.BufferFactorConfig{
		ShortLeadTimeFactor:     c.Float64("short-factor"),
		MediumLeadTimeFactor:    c.Float64("medium-factor"),
		LongLeadTimeFactor:      c.Float64("long-factor"),
		ShortLeadTimeThreshold:  c.Int("short-threshold"),
		MediumLeadTimeThreshold: c.Int("medium-threshold"),
		ReplenishmentTimeFactor: c.Float64("replenishment-factor"),
		GreenZoneFactor:         c.Float64("green-factor"),
		CreatedBy:               c.String("created-by"),
	}
	if err := services.Config.Activate(c.Context, cfg); err != nil {
		return err
	}

	fmt.Printf("activated configuration %d\n", cfg.ID)
	return nil
}

func runPlanOrders(c *cli.Context) error {
	services, err := appFrom(c)
	if err != nil {
		return err
	}

	result, err := services.Replenishment.PlanAll(c.Context, filterFrom(c))
	if err != nil {
		return fmt.Errorf("planning failed: %w", err)
	}

	failed := 0
	if result.Batch != nil {
		failed = result.Batch.Failed
	}
	logger.Log.Info().
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("failed", failed).
		Msg("draft orders planned")
	return nil
}

func runExport(c *cli.Context) error {
	services, err := appFrom(c)
	if err != nil {
		return err
	}

	key, err := services.Reports.ExportBufferStatus(c.Context, filterFrom(c))
	if err != nil {
		return err
	}
	fmt.Println(key)
	return nil
}

func runListRuns(c *cli.Context) error {
	services, err := appFrom(c)
	if err != nil {
		return err
	}

	list := services.Buffers.Runs
	if c.Bool("plan-orders") {
		list = services.Replenishment.Runs
	}
	runs, err := list(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Printf("%d\t%s\t%s\t%d/%d ok\t%d failed\tdegraded=%t\t%s\n",
			r.ID, r.Name, r.Status, r.SucceededItems, r.TotalItems, r.FailedItems, r.Degraded,
			r.StartedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
