// Package fingers owns the finger identity and kinematics tracker.
//
// Responsibilities: reconciling complete per-frame contact snapshots into an
// index-stable slot table, and deriving position, delta, velocity, duration
// and force for a slot on demand.
// Key types: Contact, Finger, Property, Tracker.
//
// Slot rules: a touch keeps its slot from touch-down to lift; new touches
// always append past the current end of the table; a lifted slot becomes
// empty and only trailing empty slots are trimmed. Slot indices are 0-based
// in the table and 1-based at the query boundary.
//
// Platform identifiers are reused after release, so an identifier that is
// not currently bound to a slot is always treated as a new touch-down.
package fingers
