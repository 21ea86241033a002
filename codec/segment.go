package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformedSegment is returned when a segment is not valid padded-or-unpadded
// base64url, or when its decoded bytes are not valid JSON for the destination.
var ErrMalformedSegment = errors.New("malformed segment")

// strict decoding rejects non-zero trailing bits, so two different segment
// strings never decode to the same bytes.
var segmentEncoding = base64.URLEncoding.Strict()

// EncodeSegment serializes v to JSON and encodes it as base64url with the
// trailing '=' padding stripped.
func EncodeSegment(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode segment: %w", err)
	}
	return EncodeBytes(raw), nil
}

// DecodeSegment restores padding, base64url-decodes text and unmarshals the
// JSON result into dst.
//
// Numbers landing in interface values decode as json.Number, so integers
// beyond 2^53 survive a decode and re-encode unchanged.
func DecodeSegment(text string, dst any) error {
	raw, err := DecodeBytes(text)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedSegment, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: trailing data after JSON value", ErrMalformedSegment)
	}
	return nil
}

// EncodeBytes encodes raw bytes (a signature, for instance) as unpadded base64url.
func EncodeBytes(raw []byte) string {
	return strings.TrimRight(segmentEncoding.EncodeToString(raw), "=")
}

// DecodeBytes is the inverse of EncodeBytes. Input that already carries padding
// is accepted as long as the padding is well formed.
func DecodeBytes(text string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedSegment)
	}
	if rem := len(text) % 4; rem != 0 {
		text += strings.Repeat("=", 4-rem)
	}
	raw, err := segmentEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSegment, err)
	}
	return raw, nil
}
