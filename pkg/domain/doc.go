/*
Package domain contains the records the nonplanar engine produces and persists.

It is kept free of I/O so stores, transports and the engine can share the same types.

# Key Entities

  - Job: the outcome of one pipeline run (resegment, reproject, refine...) with its
    parameters, statistics and output.
  - JobEvent: emitted when a job starts and finishes, for hosts that want to observe
    the engine.
*/
package domain
