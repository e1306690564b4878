package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"
)

// Hash algorithms accepted by Digest.
const (
	HashSHA256   = "sha256"
	HashSHA512   = "sha512"
	HashSHA3_256 = "sha3-256"
)

// ErrSignatureInvalid is returned when a well-formed signature does not verify.
var ErrSignatureInvalid = errors.New("keys: signature invalid")

// Digest hashes message with hashAlg.
func Digest(hashAlg string, message []byte) ([]byte, error) {
	switch hashAlg {
	case HashSHA256:
		s := sha256.Sum256(message)
		return s[:], nil
	case HashSHA512:
		s := sha512.Sum512(message)
		return s[:], nil
	case HashSHA3_256:
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %q", hashAlg)
	}
}

// SignEd25519 returns a base64 ed25519 signature over hash(message).
func SignEd25519(message []byte, hashAlg string, privateKey ed25519.PrivateKey) (string, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("missing private key")
	}
	digest, err := Digest(hashAlg, message)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ed25519.Sign(privateKey, digest)), nil
}

// SignDilithium3 returns a base64 dilithium3 signature over hash(message).
func SignDilithium3(message []byte, hashAlg string, privateKey *mode3.PrivateKey) (string, error) {
	if privateKey == nil {
		return "", fmt.Errorf("missing private key")
	}
	digest, err := Digest(hashAlg, message)
	if err != nil {
		return "", err
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(privateKey, digest, sig)
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks a base64 signature over hash(message) against a signer key
// string. It returns ErrSignatureInvalid for a signature that does not verify.
func Verify(signerKey, hashAlg string, message []byte, sigB64 string) error {
	alg, pub, err := ParseSignerKey(signerKey)
	if err != nil {
		return err
	}
	sig, err := decodeBase64(sigB64)
	if err != nil {
		return fmt.Errorf("invalid signature base64: %w", err)
	}
	digest, err := Digest(hashAlg, message)
	if err != nil {
		return err
	}
	switch alg {
	case AlgEd25519:
		if len(sig) != ed25519.SignatureSize {
			return fmt.Errorf("invalid ed25519 signature length %d", len(sig))
		}
		if !ed25519.Verify(ed25519.PublicKey(pub), digest, sig) {
			return ErrSignatureInvalid
		}
	case AlgDilithium3:
		if len(sig) != mode3.SignatureSize {
			return fmt.Errorf("invalid dilithium3 signature length %d", len(sig))
		}
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return fmt.Errorf("invalid dilithium3 public key: %w", err)
		}
		if !mode3.Verify(&pk, digest, sig) {
			return ErrSignatureInvalid
		}
	}
	return nil
}

// GenerateDilithium3Keypair returns a new Dilithium3 keypair.
func GenerateDilithium3Keypair(rand io.Reader) (*mode3.PublicKey, *mode3.PrivateKey, error) {
	return mode3.GenerateKey(rand)
}
