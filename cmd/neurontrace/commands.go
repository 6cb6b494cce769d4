package main

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool

	// trace flags
	tmapPath     string
	maskPath     string
	maskLevel    float64
	somaCentre   []float64
	somaRadius   float64
	outputPath   string
	renderPath   string
	renderAxis   string
	coverage     float64
	lengthThresh int

	rootCmd = &cobra.Command{
		Use:   "neurontrace",
		Short: "Trace neuron morphologies from a time-crossing map",
		Long: `neurontrace backtracks from the furthest unexplained foreground voxel of
a geodesic time-crossing map toward the soma, and writes the resulting
tree in SWC format.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	traceCmd = &cobra.Command{
		Use:   "trace",
		Short: "Trace a tree from a time-crossing map and a foreground mask",
		Args:  cobra.NoArgs,
		RunE:  runTrace, // Defined in trace.go
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage the tracer configuration file",
	}
	configInitCmd = &cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file with the default settings",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConfigInit, // Defined in trace.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "neurontrace.yaml",
		"YAML configuration file; missing files fall back to defaults")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every branch")

	rootCmd.AddCommand(traceCmd)
	traceCmd.Flags().StringVar(&tmapPath, "tmap", "", "Time-crossing map in raw volume format")
	traceCmd.Flags().StringVar(&maskPath, "mask", "", "Foreground mask: a raw volume file or a directory of image slices")
	traceCmd.Flags().Float64Var(&maskLevel, "mask-level", 0.5, "Grey level above which an image slice pixel is foreground")
	traceCmd.Flags().Float64SliceVar(&somaCentre, "soma", nil, "Soma centre as x,y,z in voxels")
	traceCmd.Flags().Float64Var(&somaRadius, "soma-radius", 0, "Soma radius in voxels")
	traceCmd.Flags().StringVarP(&outputPath, "out", "o", "trace.swc", "Output SWC file")
	traceCmd.Flags().StringVar(&renderPath, "render", "", "Save a projection of the traced branches to this image")
	traceCmd.Flags().StringVar(&renderAxis, "axis", "", "Projection axis for --render (x, y or z)")
	traceCmd.Flags().Float64Var(&coverage, "coverage", 0, "Override the target coverage")
	traceCmd.Flags().IntVar(&lengthThresh, "length", 0, "Override the branch length threshold")
	traceCmd.MarkFlagRequired("tmap")
	traceCmd.MarkFlagRequired("mask")
	traceCmd.MarkFlagRequired("soma")
	traceCmd.MarkFlagRequired("soma-radius")

	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
}
