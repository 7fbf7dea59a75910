// Package ir provides the JSON value model shared by every other package.
//
// Payloads checked by the matcher, rows fetched from the database and the
// reshaped results handed back to callers are all ir.Value trees. ir imports
// nothing internal.
//
// Key constraints:
//   - Value is sealed: Null, String, Number, Bool, Array, Object
//   - Numbers keep their literal text (no float64 round trip)
//   - MarshalCanonical (RFC 8785) is the only encoding used for fingerprints
package ir
