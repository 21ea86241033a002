// Package token assembles and verifies compact signed tokens.
//
// Encode builds header and payload, signs the literal "header.payload" string
// and joins the three base64url segments. Decode runs the full verification
// pipeline: structure, header, algorithm, signature, claims, revocation. Both
// functions are pure apart from the optional revocation lookup and may run in
// parallel without coordination.
package token
