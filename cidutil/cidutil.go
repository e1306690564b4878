// Package cidutil derives and checks the content identifiers used for
// snapshots and receipts.
package cidutil

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// CIDv1RawSHA256 returns a CIDv1 string using the "raw" multicodec
// and a sha2-256 multihash.
func CIDv1RawSHA256(data []byte) string {
	id, err := CIDv1RawSHA256CID(data)
	if err != nil {
		return ""
	}
	return id.String()
}

// CIDv1RawSHA256CID returns a CIDv1 (raw + sha2-256) derived from data.
func CIDv1RawSHA256CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// Parse decodes s and requires the raw codec with a sha2-256 multihash.
func Parse(s string) (cid.Cid, error) {
	id, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, err
	}
	if id.Version() != 1 || id.Type() != cid.Raw {
		return cid.Undef, fmt.Errorf("cid %s: want CIDv1 raw", s)
	}
	dec, err := multihash.Decode(id.Hash())
	if err != nil {
		return cid.Undef, err
	}
	if dec.Code != multihash.SHA2_256 {
		return cid.Undef, fmt.Errorf("cid %s: want sha2-256 multihash", s)
	}
	return id, nil
}

// Verify reports whether data hashes to id.
func Verify(id cid.Cid, data []byte) bool {
	got, err := CIDv1RawSHA256CID(data)
	return err == nil && got.Equals(id)
}
