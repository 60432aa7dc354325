// Package ir provides the literal value types shared by every absql layer.
//
// Values flow through three places: parameter literals collected while
// compiling an abstract query, raw column values read back from a driver,
// and the nested objects produced by the merge engine. All of them use the
// same sealed Value interface so the layers never exchange bare interface{}.
//
// This package imports nothing internal. Every other internal package may
// import ir.
//
// Key design constraints:
//   - Value is sealed; only the types in this package implement it
//   - Null is an explicit value, never a nil interface
//   - Object key iteration goes through SortedKeys (RFC 8785 order)
//   - MarshalCanonical is the only serialization used for golden output
package ir
