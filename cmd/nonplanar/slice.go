package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/nonplanar"
	"github.com/aretw0/nonplanar/pkg/adapters/process"
	"github.com/aretw0/nonplanar/pkg/adapters/stl"
	"github.com/aretw0/nonplanar/pkg/domain"
	"github.com/aretw0/nonplanar/pkg/transform"
)

var sliceCmd = &cobra.Command{
	Use:   "slice <input.stl>",
	Short: "Run the full nonplanar pipeline through an external slicer",
	Long: `Refines the mesh, maps it through the inverse transform, slices it flat with an
allow-listed slicer from the job file (or --tools), then resegments and reprojects the
resulting G-code.

Slicer arguments may use the {input} and {output} placeholders; the same paths are
exported as NONPLANAR_INPUT and NONPLANAR_OUTPUT. The slicer must keep model
coordinates (no auto-arrange) so the transform frame survives slicing. The centre
option of the job file does not apply: the frame is fixed before the G-code exists.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("slicer")
		toolsPath, _ := cmd.Flags().GetString("tools")
		out, _ := cmd.Flags().GetString("output")
		keep, _ := cmd.Flags().GetBool("keep")
		applyGCodeFlags(cmd)

		tools := process.ByName(settings.Slicers)
		if toolsPath != "" {
			extra, err := process.LoadTools(toolsPath)
			if err != nil {
				return err
			}
			for k, v := range extra {
				tools[k] = v
			}
		}
		runner := process.NewRunner(process.WithTools(tools), process.WithLogger(slog.Default()))
		if name == "" {
			if len(runner.Tools()) != 1 {
				return fmt.Errorf("choose a slicer with --slicer (configured: %v)", runner.Tools())
			}
			name = runner.Tools()[0]
		}

		m, solid, err := stl.ReadFile(args[0])
		if err != nil {
			return err
		}
		eng, closeStore, err := newEngine(nil)
		if err != nil {
			return err
		}
		defer closeStore()
		ctx := cmd.Context()

		work, err := os.MkdirTemp("", "nonplanar-slice-")
		if err != nil {
			return err
		}
		if keep {
			slog.Info("Keeping intermediate files", "dir", work)
		} else {
			defer os.RemoveAll(work)
		}

		refined, err := eng.RefineMesh(ctx, m, settings.MaxEdge)
		if err != nil {
			return err
		}
		// The mesh is pulled back in the same shifted frame the G-code is reprojected in.
		offset := settings.OffsetPoint()
		framed := eng.With(transform.Translated{T: eng.Transform(), Offset: offset})
		flattened, err := framed.TransformMesh(ctx, refined.Mesh, nonplanar.Inverse)
		if err != nil {
			return err
		}
		meshPath := filepath.Join(work, "transformed.stl")
		if err := stl.WriteFile(meshPath, flattened.Mesh, solid, false); err != nil {
			return err
		}

		flatPath := filepath.Join(work, "planar.gcode")
		if _, err := runner.Run(ctx, name, map[string]string{"input": meshPath, "output": flatPath}); err != nil {
			return err
		}
		flat, err := readInput(flatPath)
		if err != nil {
			return fmt.Errorf("slicer %s produced no G-code: %w", name, err)
		}

		fine, err := eng.Resegment(ctx, flat, settings.MaxSegment, selection())
		if err != nil {
			return err
		}
		job, err := eng.Reproject(ctx, fine.Output, nonplanar.MotionOptions{
			Selection: selection(),
			Offset:    offset,
			ZFloor:    settings.ZFloor,
		})
		if report, _ := cmd.Flags().GetBool("report"); report {
			for _, j := range []*domain.Job{refined, flattened, fine, job} {
				printReport(j)
			}
		}
		if err != nil {
			return err
		}
		return writeOutput(out, job.Output)
	},
}

func init() {
	rootCmd.AddCommand(sliceCmd)
	sliceCmd.Flags().StringP("output", "o", "-", "Output G-code file (- for stdout)")
	sliceCmd.Flags().String("slicer", "", "Slicer name from the job file or tools file")
	sliceCmd.Flags().String("tools", "", "Extra tools file (YAML or JSON) with a top-level tools list")
	sliceCmd.Flags().Bool("keep", false, "Keep the intermediate STL and G-code")
	sliceCmd.Flags().Bool("report", false, "Print job summaries on stderr")
	sliceCmd.Flags().Float64Slice("offset", nil, "Transform origin as x,y,z")
	sliceCmd.Flags().Float64("z-floor", 0, "Clamp reprojected Z from below")
}
