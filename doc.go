// Package goToken issues and verifies compact signed tokens of the form
// header.payload.signature with HMAC and RSA signatures over SHA-256/384/512.
//
// The package is the facade over the codec, signing, claims, token, keys and
// revocation sub-packages. An [Engine] is assembled once through [Builder.Build]
// and is safe for concurrent use afterwards.
//
// # Architecture boundaries
//
// goToken owns configuration, metrics, audit dispatch and the revocation registry
// instance. Token assembly and verification live in package token, which is pure
// and never logs. Key rotation state lives in package keys.
//
// # What this package must NOT do
//
//   - Accept a token whose header names an algorithm other than the one the caller expects.
//   - Consult the registry before a token's signature has been verified.
//   - Mutate a caller's payload map.
package goToken
