// Package box holds the shared state of the parcel box.
//
// State is the single aggregate every component reads and mutates: the
// status of the two flaps and the delivery door, the status of the two
// flap motors, and the quiet window during which motor switching noise
// on the non-critical inputs is ignored.
//
// One mutex guards all fields. Setters are unconditional writes; queries
// evaluate several fields under the same lock so they never observe a
// half-applied change. Code that needs several values consistently should
// take a Snapshot.
//
// ERROR is sticky by convention: nothing in this package refuses to
// overwrite it, but only the recovery path is expected to.
package box
