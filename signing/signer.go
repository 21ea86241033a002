package signing

import (
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Sign computes the raw signature over input.
//
// For HMAC algorithms key is the shared secret. For RSA algorithms key is a PEM
// encoded private key (PKCS#1 or PKCS#8).
func Sign(input string, alg Algorithm, key []byte) ([]byte, error) {
	method, err := alg.method()
	if err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: %s signing key", ErrMissingKeyMaterial, alg)
	}

	var signKey any
	switch alg.Family() {
	case FamilyHMAC:
		signKey = key
	case FamilyRSA:
		priv, err := ParsePrivateKey(key)
		if err != nil {
			return nil, err
		}
		signKey = priv
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, alg)
	}

	sig, err := method.Sign(input, signKey)
	if err != nil {
		return nil, fmt.Errorf("sign %s: %w", alg, err)
	}
	return sig, nil
}

// Verify reports whether sig is a valid signature over input.
//
// HMAC signatures are compared in constant time. Every failure, whether an
// unparsable key, a key of the wrong family, or a bad signature, yields false
// with no further detail.
func Verify(input string, sig []byte, alg Algorithm, key []byte) bool {
	method, err := alg.method()
	if err != nil || len(key) == 0 || len(sig) == 0 {
		return false
	}

	switch alg.Family() {
	case FamilyHMAC:
		return method.Verify(input, sig, key) == nil
	case FamilyRSA:
		pub, err := ParsePublicKey(key)
		if err != nil {
			return false
		}
		return method.Verify(input, sig, pub) == nil
	default:
		return false
	}
}

// ParsePrivateKey parses a PEM encoded RSA private key.
func ParsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: rsa private key: %v", ErrInvalidKey, err)
	}
	return priv, nil
}

// ParsePublicKey parses a PEM encoded RSA public key (SubjectPublicKeyInfo,
// PKCS#1 or certificate).
func ParsePublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	pub, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: rsa public key: %v", ErrInvalidKey, err)
	}
	return pub, nil
}
