package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/nonplanar"
	"github.com/aretw0/nonplanar/pkg/domain"
)

var resegmentCmd = &cobra.Command{
	Use:   "resegment [input.gcode]",
	Short: "Split long moves so they can follow a curved surface",
	Long: `Splits every selected G1 move into pieces no longer than --max-segment millimetres.
Extrusion is shared equally between the pieces. Reads stdin when no input is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(firstArg(args))
		if err != nil {
			return err
		}
		applyGCodeFlags(cmd)
		return withEngine(func(eng *nonplanar.Engine) (*domain.Job, error) {
			return eng.Resegment(cmd.Context(), text, settings.MaxSegment, selection())
		}, cmd)
	},
}

var reprojectCmd = &cobra.Command{
	Use:   "reproject [input.gcode]",
	Short: "Bend planar G-code onto nonplanar layers",
	Long: `Maps every selected move through the transform and scales its extrusion by the
Jacobian determinant. A model mapped through the inverse (see mesh --inverse), sliced flat
and then reprojected prints in its original shape on curved layers. Resegment first so
long moves bend with the surface.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMotion(cmd, args, (*nonplanar.Engine).Reproject)
	},
}

var unprojectCmd = &cobra.Command{
	Use:   "unproject [input.gcode]",
	Short: "Flatten nonplanar G-code back onto planar layers",
	Long:  `Pulls every selected move back through the inverse transform, undoing reproject.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMotion(cmd, args, (*nonplanar.Engine).Unproject)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{resegmentCmd, reprojectCmd, unprojectCmd} {
		cmd.Flags().StringP("output", "o", "-", "Output file (- for stdout)")
		cmd.Flags().Int("start-offset", 0, "Motion moves to leave untouched at the start")
		cmd.Flags().Int("end-offset", 0, "Motion moves to leave untouched at the end")
		cmd.Flags().Bool("report", false, "Print a job summary on stderr")
		rootCmd.AddCommand(cmd)
	}
	resegmentCmd.Flags().Float64("max-segment", 0, "Maximum move length in mm (overrides the job file)")

	for _, cmd := range []*cobra.Command{reprojectCmd, unprojectCmd} {
		cmd.Flags().Float64Slice("offset", nil, "Transform origin as x,y,z")
		cmd.Flags().Bool("center", false, "Centre the transform on the selected moves")
		cmd.Flags().Float64("z-floor", 0, "Clamp reprojected Z from below")
	}
}

type motionFunc func(*nonplanar.Engine, context.Context, string, nonplanar.MotionOptions) (*domain.Job, error)

func runMotion(cmd *cobra.Command, args []string, fn motionFunc) error {
	text, err := readInput(firstArg(args))
	if err != nil {
		return err
	}
	applyGCodeFlags(cmd)
	opts := nonplanar.MotionOptions{
		Selection: selection(),
		Offset:    settings.OffsetPoint(),
		Center:    settings.Center,
		ZFloor:    settings.ZFloor,
	}
	return withEngine(func(eng *nonplanar.Engine) (*domain.Job, error) {
		return fn(eng, cmd.Context(), text, opts)
	}, cmd)
}

// applyGCodeFlags copies explicitly set flags over the job file settings.
func applyGCodeFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("start-offset") {
		settings.Range.StartOffset, _ = flags.GetInt("start-offset")
	}
	if flags.Changed("end-offset") {
		settings.Range.EndOffset, _ = flags.GetInt("end-offset")
	}
	if flags.Changed("max-segment") {
		settings.MaxSegment, _ = flags.GetFloat64("max-segment")
	}
	if flags.Changed("offset") {
		settings.Offset, _ = flags.GetFloat64Slice("offset")
	}
	if flags.Changed("center") {
		settings.Center, _ = flags.GetBool("center")
	}
	if flags.Changed("z-floor") {
		floor, _ := flags.GetFloat64("z-floor")
		settings.ZFloor = &floor
	}
}

func selection() nonplanar.Selection {
	return nonplanar.Selection{StartOffset: settings.Range.StartOffset, EndOffset: settings.Range.EndOffset}
}

// withEngine runs a G-code job and writes its output.
func withEngine(run func(*nonplanar.Engine) (*domain.Job, error), cmd *cobra.Command) error {
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
	return writeOutput(out, job.Output)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
