/*
Package ports defines the driven ports (interfaces) of the nonplanar engine.

These interfaces decouple the engine from storage backends, so the same pipeline can
keep its job history in memory, in Redis or nowhere at all.

# Key Interfaces

  - JobStore: persists and loads finished jobs.
*/
package ports
