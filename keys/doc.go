// Package keys generates RSA key pairs and owns the active signing pair.
//
// Manager publishes its active pair as an immutable snapshot, so verifiers
// always observe either the pre-rotation or the post-rotation pair, never a
// mix. Rotation re-signs every tracked token that still verifies under the old
// pair; tokens that no longer verify are dropped from the result.
package keys
