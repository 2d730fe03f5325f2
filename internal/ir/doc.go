// Package ir defines the data model shared by the engine, the action log,
// and the trace builder: the constrained value types carried in action
// inputs and outputs, the ActionRecord log entry, compiled sync rules, and
// concept manifests.
//
// Values are deliberately restricted to string, int, bool, array, and
// object. Floats are rejected everywhere - record identity is computed by
// hashing canonical JSON, and float formatting is not stable enough to be
// part of an identity.
package ir
