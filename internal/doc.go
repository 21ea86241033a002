// Package internal contains helpers private to goToken: secure random secrets and
// token identifiers.
//
// # What this package must NOT do
//
//   - Export types that appear in the public goToken API.
//   - Be imported by any package outside the goToken module.
package internal
