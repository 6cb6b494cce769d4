package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"

	"neurontrace/internal/models"
	"neurontrace/pkg/config"
	"neurontrace/pkg/swc"
	"neurontrace/pkg/tracer"
	"neurontrace/pkg/visualization"
	"neurontrace/pkg/volumeio"
)

func runTrace(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(somaCentre) != 3 {
		return fmt.Errorf("--soma needs three coordinates, got %d", len(somaCentre))
	}
	soma := r3.Vec{X: somaCentre[0], Y: somaCentre[1], Z: somaCentre[2]}

	level := slog.LevelInfo
	if cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	fmt.Println("================================")
	fmt.Println("NEURON TRACING BY ITERATIVE BACKTRACKING")
	fmt.Println("================================")

	tmap, err := volumeio.ReadFile(tmapPath)
	if err != nil {
		return fmt.Errorf("failed to load time-crossing map: %w", err)
	}
	mask, err := loadMask(maskPath, maskLevel)
	if err != nil {
		return fmt.Errorf("failed to load mask: %w", err)
	}
	fmt.Printf("Loaded volume with dimensions %dx%dx%d\n", tmap.Width, tmap.Height, tmap.Depth)
	fmt.Printf("Soma at (%.1f, %.1f, %.1f), radius %.1f\n", soma.X, soma.Y, soma.Z, somaRadius)

	params := &tracer.Params{
		TimeMap:    tmap,
		Mask:       mask,
		Soma:       soma,
		SomaRadius: somaRadius,
		Config:     cfg.Tracing,
		Logger:     logger,
	}

	var renderer *visualization.Renderer
	if cfg.Output.Render {
		if renderer, err = visualization.NewRenderer(cfg.Output.RenderAxis, soma, somaRadius); err != nil {
			return err
		}
		params.Renderer = renderer
	}

	lastPercent := -10
	params.Progress = func(coverage float64, iteration int) {
		if percent := int(coverage * 100); percent/10 != lastPercent/10 {
			lastPercent = percent
			fmt.Printf("Coverage %3d%% after %d iterations\n", percent, iteration)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println("Starting trace...")
	startTime := time.Now()
	res, err := tracer.Trace(ctx, params)
	if err != nil {
		return fmt.Errorf("tracing failed: %w", err)
	}
	processingTime := time.Since(startTime)

	comment := fmt.Sprintf("traced by neurontrace from %s, coverage %.3f", tmapPath, res.Stats.Coverage)
	if err := swc.WriteFile(outputPath, res.Records, comment); err != nil {
		return err
	}

	if renderer != nil {
		if err := renderer.Save(cfg.Output.RenderFile); err != nil {
			logger.Warn("failed to save projection", "file", cfg.Output.RenderFile, "error", err)
		} else {
			fmt.Printf("Projection saved to: %s\n", cfg.Output.RenderFile)
		}
	}

	printSummary(res.Stats, processingTime)
	fmt.Printf("SWC tree saved to: %s\n", outputPath)
	return nil
}

// applyFlags copies explicitly set command line flags over the configuration
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("coverage") {
		cfg.Tracing.Coverage = coverage
	}
	if flags.Changed("length") {
		cfg.Tracing.LengthThreshold = lengthThresh
	}
	if flags.Changed("render") {
		cfg.Output.Render = renderPath != ""
		cfg.Output.RenderFile = renderPath
	}
	if flags.Changed("axis") {
		cfg.Output.RenderAxis = renderAxis
	}
	if verbose {
		cfg.Output.Verbose = true
	}
}

// loadMask reads a raw mask volume, or thresholds a directory of slices
func loadMask(path string, level float64) (*models.Volume, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return volumeio.ReadFile(path)
	}

	slices, err := volumeio.ReadSlices(path)
	if err != nil {
		return nil, err
	}
	return volumeio.Threshold(slices, level), nil
}

func printSummary(stats tracer.Stats, elapsed time.Duration) {
	fmt.Printf("\nTracing completed in %.2f seconds!\n\n", elapsed.Seconds())
	fmt.Printf("Trace Statistics:\n")
	fmt.Printf("=================\n")
	fmt.Printf("Iterations: %d (%d accepted, %d rejected, %d absorbed by soma)\n",
		stats.Iterations, stats.Accepted, stats.Rejected, stats.Absorbed)
	fmt.Printf("Coverage: %.2f%% (stopped on %s)\n", stats.Coverage*100, stats.Reason)
	fmt.Printf("Repaired connections: %d\n", stats.Repaired)
	fmt.Printf("Unconnected branches: %d\n", stats.Artifacts)
	fmt.Printf("Pruned nodes: %d\n", stats.Pruned)
	fmt.Printf("Nodes written: %d\n", stats.Nodes)
	fmt.Printf("Mean branch length: %.1f nodes\n", stats.MeanBranchLength)
	fmt.Printf("Mean radius: %.2f voxels\n", stats.MeanRadius)
}

func runConfigInit(_ *cobra.Command, args []string) error {
	path := configPath
	if len(args) == 1 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.CreateDefaultConfigFile(path); err != nil {
		return err
	}
	fmt.Printf("Default configuration written to: %s\n", path)
	return nil
}
