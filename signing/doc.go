// Package signing produces and checks token signatures for the closed set of
// supported algorithms.
//
// The algorithm is always chosen by the caller, never inferred from key shape.
// HMAC algorithms take a shared secret; RSA algorithms take PEM key material.
package signing
