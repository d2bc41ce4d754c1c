/*
Package nonplanar reprojects 3D printing toolpaths and meshes through nonlinear
spatial transforms, so a print sliced with flat layers can be deposited on curved
(for example conical) surfaces.

# Concept

A transform F maps slicer space to machine space. The workflow has three steps:

  - Map the model back through F⁻¹ (Engine.TransformMesh with Inverse) and slice the
    result with any planar slicer.
  - Split long moves of the sliced G-code (Engine.Resegment) so they can follow the
    curve.
  - Push every move through F (Engine.Reproject). Extrusion is scaled by the Jacobian
    determinant so the deposited volume stays right.

Engine.Unproject and Engine.Check map results back to verify them.

# Usage

	eng, err := nonplanar.New(
		nonplanar.WithTransformConfig(transform.Config{Kind: "conical", Angle: 30}),
		nonplanar.WithStore(memory.NewStore()),
	)
	if err != nil {
		log.Fatal(err)
	}

	job, err := eng.Reproject(ctx, gcodeText, nonplanar.MotionOptions{Center: true})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(job.Output)

# Packages

  - pkg/geom: points, 3×3 matrices and numeric errors.
  - pkg/transform: transforms, Jacobians and Newton inversion.
  - pkg/gcode: G-code parsing, resegmentation and reprojection.
  - pkg/mesh: triangle-soup buffers and adaptive refinement.
  - pkg/adapters: job stores, STL files, HTTP and MCP servers.
*/
package nonplanar
