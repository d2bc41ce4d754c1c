/*
Package geom holds the small value types shared by the transform, G-code and mesh
packages: a 3D point and a 3x3 matrix.

Both are plain values. Operations return new values and never alias their
receivers, so they can be passed around and copied freely.
*/
package geom
