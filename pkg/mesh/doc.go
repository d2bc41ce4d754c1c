/*
Package mesh holds triangle-soup geometry as a flat vertex buffer and the operations
applied to it before and after a nonplanar transform.

A Mesh is a []float64 with stride 3; every nine values form one triangle. Triangles
share no vertices, so a refinement can split one face without touching its neighbours.

# Operations

  - Refine: bisect longest edges until no edge exceeds a limit.
  - Forward / Inverse: push every vertex through a transform or its numeric inverse.
  - Plane: a flat square grid, used to preview how a layer surface bends.
*/
package mesh
