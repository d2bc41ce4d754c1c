package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/nonplanar"
	"github.com/aretw0/nonplanar/pkg/adapters/stl"
	"github.com/aretw0/nonplanar/pkg/domain"
	"github.com/aretw0/nonplanar/pkg/geom"
	"github.com/aretw0/nonplanar/pkg/mesh"
)

var refineCmd = &cobra.Command{
	Use:   "refine <input.stl>",
	Short: "Subdivide a mesh until no edge is longer than --max-edge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, name, err := stl.ReadFile(args[0])
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("max-edge") {
			settings.MaxEdge, _ = cmd.Flags().GetFloat64("max-edge")
		}
		return runMesh(cmd, name, args[0], "refined", func(eng *nonplanar.Engine) (*domain.Job, error) {
			return eng.RefineMesh(cmd.Context(), m, settings.MaxEdge)
		})
	},
}

var meshCmd = &cobra.Command{
	Use:   "mesh <input.stl>",
	Short: "Map a mesh through the transform",
	Long: `Maps every vertex forward through the transform, or back through its inverse with
--inverse. Pass --refine to subdivide first so long edges bend with the surface.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, name, err := stl.ReadFile(args[0])
		if err != nil {
			return err
		}
		dir := nonplanar.Forward
		if inverse, _ := cmd.Flags().GetBool("inverse"); inverse {
			dir = nonplanar.Inverse
		}
		if cmd.Flags().Changed("max-edge") {
			settings.MaxEdge, _ = cmd.Flags().GetFloat64("max-edge")
		}
		refine, _ := cmd.Flags().GetBool("refine")
		return runMesh(cmd, name, args[0], string(dir), func(eng *nonplanar.Engine) (*domain.Job, error) {
			if refine {
				job, err := eng.RefineMesh(cmd.Context(), m, settings.MaxEdge)
				if err != nil {
					return job, err
				}
				m = job.Mesh
			}
			return eng.TransformMesh(cmd.Context(), m, dir)
		})
	},
}

var layerCmd = &cobra.Command{
	Use:   "layer",
	Short: "Write the shape of one nonplanar layer as an STL surface",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		size, _ := cmd.Flags().GetFloat64("size")
		divisions, _ := cmd.Flags().GetInt("divisions")
		z, _ := cmd.Flags().GetFloat64("z")
		return runMesh(cmd, "layer", "layer.stl", "", func(eng *nonplanar.Engine) (*domain.Job, error) {
			return eng.LayerSurface(cmd.Context(), size, divisions, z)
		})
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Measure how well the inverse undoes the transform",
	Long: `Samples a grid over a box centred on the origin, inverts the transform at each
sample and reports the largest round-trip error.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		size, _ := cmd.Flags().GetFloat64("size")
		height, _ := cmd.Flags().GetFloat64("height")
		n, _ := cmd.Flags().GetInt("samples")

		box := geom.Box{Min: geom.Pt(-size/2, -size/2, 0), Max: geom.Pt(size/2, size/2, height)}
		eng, closeStore, err := newEngine(nil)
		if err != nil {
			return err
		}
		defer closeStore()

		job, err := eng.Check(cmd.Context(), nonplanar.GridSamples(box, n))
		printReport(job)
		if err != nil {
			return err
		}
		tol, _ := cmd.Flags().GetFloat64("tolerance")
		if job.Stats.MaxError > tol {
			return fmt.Errorf("round-trip error %.3g exceeds tolerance %g", job.Stats.MaxError, tol)
		}
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{refineCmd, meshCmd, layerCmd} {
		cmd.Flags().StringP("output", "o", "", "Output STL file (defaults next to the input)")
		cmd.Flags().Bool("ascii", false, "Write ASCII STL instead of binary")
		cmd.Flags().Bool("report", false, "Print a job summary on stderr")
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{refineCmd, meshCmd} {
		cmd.Flags().Float64("max-edge", 0, "Maximum edge length in mm (overrides the job file)")
	}
	meshCmd.Flags().Bool("inverse", false, "Map through the inverse transform")
	meshCmd.Flags().Bool("refine", false, "Refine before mapping")

	layerCmd.Flags().Float64("size", 100, "Edge length of the square layer in mm")
	layerCmd.Flags().Int("divisions", 50, "Grid cells per side")
	layerCmd.Flags().Float64("z", 0, "Planar height of the layer")

	checkCmd.Flags().Float64("size", 100, "Width of the sampled box in mm")
	checkCmd.Flags().Float64("height", 50, "Height of the sampled box in mm")
	checkCmd.Flags().Int("samples", 11, "Samples per axis")
	checkCmd.Flags().Float64("tolerance", 1e-6, "Largest acceptable round-trip error in mm")
	rootCmd.AddCommand(checkCmd)
}

// runMesh runs a mesh job and writes the result as STL.
func runMesh(cmd *cobra.Command, name, input, suffix string, run func(*nonplanar.Engine) (*domain.Job, error)) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	eng, closeStore, err := newEngine(nil)
	if err != nil {
		return err
	}
	defer closeStore()

	job, err := run(eng)
	if report, _ := cmd.Flags().GetBool("report"); report {
		printReport(job)
	}
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		out = derivedPath(input, suffix)
	}
	ascii, _ := cmd.Flags().GetBool("ascii")
	if err := stl.WriteFile(out, mesh.Mesh(job.Mesh), name, ascii); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d triangles written to %s\n", job.Kind, job.Stats.Triangles, out)
	return nil
}

// derivedPath turns "part.stl" into "part.<suffix>.stl".
func derivedPath(input, suffix string) string {
	if suffix == "" {
		return input
	}
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "." + suffix + ext
}
