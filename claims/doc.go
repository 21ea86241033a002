// Package claims defines the token payload type and enforces its temporal and
// identity constraints.
package claims
