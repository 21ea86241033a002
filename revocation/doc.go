// Package revocation holds the set of revoked token identities (jti).
//
// A Registry is an explicit handle: whoever verifies tokens is given the
// registry to consult, and whoever revokes is given the same one. Memory keeps
// the set in process; Redis shares it between processes through a Redis
// instance. Neither sweeps entries: a revoked jti stays revoked until Clear.
package revocation
