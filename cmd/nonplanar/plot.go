package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/nonplanar/internal/plot"
	"github.com/aretw0/nonplanar/pkg/gcode"
)

var plotCmd = &cobra.Command{
	Use:   "plot <input.gcode>...",
	Short: "Render toolpaths as an image",
	Long: `Draws the toolpath of each G-code file in one projection, so a planar program
and its reprojection can be compared side by side. The output extension selects the
format (png, svg, pdf).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		view, _ := cmd.Flags().GetString("view")
		proj, err := plot.ParseProjection(view)
		if err != nil {
			return err
		}

		series := make([]plot.Series, 0, len(args))
		for _, path := range args {
			text, err := readInput(path)
			if err != nil {
				return err
			}
			series = append(series, plot.Series{
				Name:   filepath.Base(path),
				Points: gcode.Points(gcode.Parse(text)),
			})
		}

		title, _ := cmd.Flags().GetString("title")
		if title == "" {
			title = strings.ToUpper(view) + " toolpath"
		}
		p, err := plot.Toolpath(title, proj, series...)
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("output")
		if err := plot.SaveFile(out, p); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Toolpath written to %s\n", out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(plotCmd)
	plotCmd.Flags().StringP("output", "o", "toolpath.png", "Output image")
	plotCmd.Flags().String("view", "xz", "Projection: xy, xz or yz")
	plotCmd.Flags().String("title", "", "Plot title")
}
