package signing

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrUnsupportedAlgorithm is returned for any algorithm outside the closed set.
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	// ErrMissingKeyMaterial is returned when the key required by the algorithm family is empty.
	ErrMissingKeyMaterial = errors.New("missing key material")
	// ErrInvalidKey is returned when PEM key material cannot be parsed.
	ErrInvalidKey = errors.New("invalid key material")
)

// Algorithm identifies a signature algorithm. The zero value is not a valid algorithm.
type Algorithm uint8

const (
	// AlgorithmUnknown is the zero value and is rejected everywhere.
	AlgorithmUnknown Algorithm = iota
	// HS256 is HMAC with SHA-256.
	HS256
	// HS384 is HMAC with SHA-384.
	HS384
	// HS512 is HMAC with SHA-512.
	HS512
	// RS256 is RSASSA-PKCS1-v1_5 with SHA-256.
	RS256
	// RS384 is RSASSA-PKCS1-v1_5 with SHA-384.
	RS384
	// RS512 is RSASSA-PKCS1-v1_5 with SHA-512.
	RS512
)

// Family groups algorithms that share key material shape.
type Family uint8

const (
	// FamilyUnknown is returned for invalid algorithms.
	FamilyUnknown Family = iota
	// FamilyHMAC algorithms use a shared secret.
	FamilyHMAC
	// FamilyRSA algorithms use a PEM private key to sign and a PEM public key to verify.
	FamilyRSA
)

// Algorithms lists every supported algorithm in declaration order.
func Algorithms() []Algorithm {
	return []Algorithm{HS256, HS384, HS512, RS256, RS384, RS512}
}

// ParseAlgorithm maps a header "alg" value to an Algorithm. Matching is exact
// and case-sensitive.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "HS256":
		return HS256, nil
	case "HS384":
		return HS384, nil
	case "HS512":
		return HS512, nil
	case "RS256":
		return RS256, nil
	case "RS384":
		return RS384, nil
	case "RS512":
		return RS512, nil
	default:
		return AlgorithmUnknown, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, name)
	}
}

// String returns the header "alg" value.
func (a Algorithm) String() string {
	switch a {
	case HS256:
		return "HS256"
	case HS384:
		return "HS384"
	case HS512:
		return "HS512"
	case RS256:
		return "RS256"
	case RS384:
		return "RS384"
	case RS512:
		return "RS512"
	default:
		return fmt.Sprintf("Algorithm(%d)", uint8(a))
	}
}

// Valid reports whether a belongs to the closed set.
func (a Algorithm) Valid() bool {
	return a.Family() != FamilyUnknown
}

// Family returns the key family of a.
func (a Algorithm) Family() Family {
	switch a {
	case HS256, HS384, HS512:
		return FamilyHMAC
	case RS256, RS384, RS512:
		return FamilyRSA
	default:
		return FamilyUnknown
	}
}

func (a Algorithm) method() (jwt.SigningMethod, error) {
	switch a {
	case HS256:
		return jwt.SigningMethodHS256, nil
	case HS384:
		return jwt.SigningMethodHS384, nil
	case HS512:
		return jwt.SigningMethodHS512, nil
	case RS256:
		return jwt.SigningMethodRS256, nil
	case RS384:
		return jwt.SigningMethodRS384, nil
	case RS512:
		return jwt.SigningMethodRS512, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, a)
	}
}
