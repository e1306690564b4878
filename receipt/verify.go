package receipt

import (
	"errors"
	"fmt"

	"xdao.co/c2paview/cidutil"
	"xdao.co/c2paview/keys"
)

// Verify checks the receipt CRYPTO signature, if present.
//
// Returns (true, nil) if the receipt is signed and the signature verifies.
// Returns (false, nil) if the receipt is unsigned (empty CRYPTO section).
// Returns (false, err) for malformed, non-canonical, or invalid signatures.
func Verify(b []byte) (bool, error) {
	canon, err := Canonicalize(b)
	if err != nil {
		return false, fmt.Errorf("canonical receipt required: %w", err)
	}
	secs, err := parseSections(string(canon))
	if err != nil {
		return false, err
	}
	crypto := secs["CRYPTO"]
	if len(crypto) == 0 {
		return false, nil
	}

	sigAlg, errAlg := single(crypto, "Signature-Alg")
	hashAlg, errHash := single(crypto, "Hash-Alg")
	signerKey, errKey := single(crypto, "Signer-Key")
	sig, errSig := single(crypto, "Signature")
	if err := errors.Join(errAlg, errHash, errKey, errSig); err != nil || len(crypto) != 4 {
		return false, errors.New("CRYPTO: incomplete signature fields")
	}

	keyAlg, _, err := keys.ParseSignerKey(signerKey)
	if err != nil {
		return false, fmt.Errorf("CRYPTO: %w", err)
	}
	if keyAlg != sigAlg {
		return false, errors.New("CRYPTO: Signer-Key alg does not match Signature-Alg")
	}

	scope, err := signatureScope(canon)
	if err != nil {
		return false, err
	}
	if err := keys.Verify(signerKey, hashAlg, scope, sig); err != nil {
		return false, fmt.Errorf("CRYPTO: %w", err)
	}
	return true, nil
}

// SignerKey returns the CRYPTO Signer-Key of a canonical receipt, or "" when
// the receipt is unsigned. It does not check the signature.
func SignerKey(b []byte) (string, error) {
	canon, err := Canonicalize(b)
	if err != nil {
		return "", fmt.Errorf("canonical receipt required: %w", err)
	}
	secs, err := parseSections(string(canon))
	if err != nil {
		return "", err
	}
	if len(secs["CRYPTO"]) == 0 {
		return "", nil
	}
	return single(secs["CRYPTO"], "Signer-Key")
}

// CID returns the CIDv1 (raw + sha2-256) of canonical receipt bytes.
func CID(b []byte) (string, error) {
	canon, err := Canonicalize(b)
	if err != nil {
		return "", fmt.Errorf("canonical receipt required: %w", err)
	}
	return cidutil.CIDv1RawSHA256(canon), nil
}

// Document is a canonical receipt and its CID.
type Document struct {
	Bytes []byte
	CID   string
}

// NewDocument canonicalizes b and computes its CID.
func NewDocument(b []byte) (*Document, error) {
	canon, err := Canonicalize(b)
	if err != nil {
		return nil, err
	}
	return &Document{Bytes: canon, CID: cidutil.CIDv1RawSHA256(canon)}, nil
}
