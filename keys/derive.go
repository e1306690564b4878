package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

const kdfLabel = "xdao-c2paview-kms-lite-v1"

// SignerKeyFromSeed returns the signer key string for an Ed25519 seed.
func SignerKeyFromSeed(seed []byte) (string, error) {
	if len(seed) != ed25519.SeedSize {
		return "", fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return SignerKeyFromPublicKey(priv.Public().(ed25519.PublicKey))
}

// DeriveRoleSeed deterministically derives a role-specific Ed25519 seed from a root seed.
func DeriveRoleSeed(rootSeed []byte, role string) ([]byte, error) {
	if len(rootSeed) != ed25519.SeedSize {
		return nil, fmt.Errorf("root seed must be %d bytes", ed25519.SeedSize)
	}
	if err := CheckName(role); err != nil {
		return nil, err
	}

	h := sha256.New()
	_, _ = h.Write(rootSeed)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(kdfLabel))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("role:"))
	_, _ = h.Write([]byte(role))
	sum := h.Sum(nil)
	out := make([]byte, ed25519.SeedSize)
	copy(out, sum[:ed25519.SeedSize])
	return out, nil
}

// Dilithium3KeyFromSeed expands a 32-byte seed into a Dilithium3 keypair.
// The same stored seed can therefore sign with either algorithm.
func Dilithium3KeyFromSeed(seed []byte) (*mode3.PublicKey, *mode3.PrivateKey, error) {
	if len(seed) != mode3.SeedSize {
		return nil, nil, fmt.Errorf("seed must be %d bytes, got %d", mode3.SeedSize, len(seed))
	}
	var s [mode3.SeedSize]byte
	copy(s[:], seed)
	pub, priv := mode3.NewKeyFromSeed(&s)
	return pub, priv, nil
}
