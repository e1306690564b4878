package keys

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

const (
	AlgEd25519    = "ed25519"
	AlgDilithium3 = "dilithium3"
)

// SignerKeyFromPublicKey encodes an Ed25519 public key as a signer key string.
func SignerKeyFromPublicKey(pub ed25519.PublicKey) (string, error) {
	if l := len(pub); l != ed25519.PublicKeySize {
		return "", fmt.Errorf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, l)
	}
	return AlgEd25519 + ":" + base64.StdEncoding.EncodeToString(pub), nil
}

// EncodeDilithium3PublicKey encodes a Dilithium3 public key as a signer key string.
func EncodeDilithium3PublicKey(pub *mode3.PublicKey) (string, error) {
	if pub == nil {
		return "", fmt.Errorf("missing dilithium3 public key")
	}
	return AlgDilithium3 + ":" + base64.StdEncoding.EncodeToString(pub.Bytes()), nil
}

// ParseSignerKey splits a signer key into its algorithm and raw public key
// bytes, checking the key decodes for that algorithm.
func ParseSignerKey(s string) (alg string, pub []byte, err error) {
	alg, enc, ok := strings.Cut(s, ":")
	if !ok {
		return "", nil, fmt.Errorf("invalid signer key %q", s)
	}
	pub, err = decodeBase64(enc)
	if err != nil {
		return "", nil, fmt.Errorf("invalid signer key base64: %w", err)
	}
	switch alg {
	case AlgEd25519:
		if len(pub) != ed25519.PublicKeySize {
			return "", nil, fmt.Errorf("invalid ed25519 public key length %d", len(pub))
		}
	case AlgDilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return "", nil, fmt.Errorf("invalid dilithium3 public key: %w", err)
		}
	default:
		return "", nil, fmt.Errorf("unsupported signer key algorithm %q", alg)
	}
	return alg, pub, nil
}

func decodeBase64(s string) ([]byte, error) {
	// Prefer standard padded encoding, but accept raw encoding too.
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
