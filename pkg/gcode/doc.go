/*
Package gcode models the subset of G-code needed to re-plan a print: linear and
arc moves with optional X, Y, Z, extrusion (E) and feed rate (F). Every other line
is kept verbatim as a passthrough and re-emitted unchanged by every stage.

A Program is parsed fresh from text for each pass; Resegment, Reproject and
Unproject each return a new Program and never modify their input.

	prog := gcode.Parse(text)
	fine, _, err := gcode.Resegment(prog, 1.0, gcode.All())
	bent, _, err := gcode.Reproject(fine, transform.NewConical(30),
		gcode.WithZFloor(0.2))
	fmt.Println(bent.String())

Range selectors count motion moves only (zero based), so comments and other
commands never shift the selection.
*/
package gcode
