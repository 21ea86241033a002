package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// RSABits is the modulus size of generated keys.
const RSABits = 2048

// KeyPair holds PEM encoded RSA key material: PKCS#1 private key and
// SubjectPublicKeyInfo public key.
type KeyPair struct {
	PrivateKey []byte
	PublicKey  []byte
}

// GenerateKeyPair returns a fresh 2048-bit RSA pair.
func GenerateKeyPair() (KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, RSABits)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate rsa key: %w", err)
	}
	return encodeKeyPair(priv)
}

func encodeKeyPair(priv *rsa.PrivateKey) (KeyPair, error) {
	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(priv),
	})
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return KeyPair{}, fmt.Errorf("marshal public key: %w", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: der,
	})
	return KeyPair{PrivateKey: privPEM, PublicKey: pubPEM}, nil
}

func (k KeyPair) clone() KeyPair {
	return KeyPair{
		PrivateKey: append([]byte(nil), k.PrivateKey...),
		PublicKey:  append([]byte(nil), k.PublicKey...),
	}
}
