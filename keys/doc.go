// Package keys provides signer key helpers for summary receipts.
//
// Signer keys are written "<alg>:<base64 public key>", with alg one of
// ed25519 or dilithium3. Both algorithms expand a 32-byte seed, so a Store
// keeps one seed file per signer and derives role signers from it.
package keys
