package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/nonplanar/internal/config"
	"github.com/aretw0/nonplanar/internal/logging"
	"github.com/aretw0/nonplanar/pkg/transform"
)

var rootCmd = &cobra.Command{
	Use:   "nonplanar",
	Short: "Nonplanar is a G-code and mesh reprojection toolkit",
	Long: `Nonplanar bends planar 3D-printing toolpaths through a spatial transform
(conical, parabolic or custom expressions) and maps meshes the other way, so that
a model can be sliced flat and printed on curved layers.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

// settings holds the resolved job file shared by every command.
var settings config.File

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Job file (YAML or JSON); defaults to ./"+config.DefaultFile+" when present")
	rootCmd.PersistentFlags().StringP("transform", "t", "", "Transform spec overriding the job file, e.g. conical:30, parabolic, custom:x;y;z+0.1*x")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit JSON logs")
	rootCmd.PersistentFlags().String("store", "", "Job store overriding the job file: none, memory, file or redis")
}

// loadSettings reads the job file, applies flag overrides and installs the logger.
func loadSettings(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if spec, _ := cmd.Flags().GetString("transform"); spec != "" {
		tc, err := transform.ParseSpec(spec)
		if err != nil {
			return err
		}
		cfg.Transform = tc
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if cmd.Flags().Changed("log-json") {
		cfg.Log.JSON, _ = cmd.Flags().GetBool("log-json")
	}
	if kind, _ := cmd.Flags().GetString("store"); kind != "" {
		cfg.Store.Kind = kind
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	slog.SetDefault(logging.NewWithWriter(os.Stderr, level, cfg.Log.JSON))

	settings = cfg
	return nil
}
