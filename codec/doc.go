// Package codec converts token header and payload structures to and from their
// compact base64url text form.
//
// The package performs no cryptography. EncodeSegment and DecodeSegment are exact
// inverses for every JSON-compatible value.
package codec
