package cidutil

import (
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

func TestCIDv1RawSHA256_Deterministic(t *testing.T) {
	a := CIDv1RawSHA256([]byte("snapshot"))
	b := CIDv1RawSHA256([]byte("snapshot"))
	if a == "" || a != b {
		t.Fatalf("expected stable CID, got %q and %q", a, b)
	}
	if a == CIDv1RawSHA256([]byte("other")) {
		t.Fatalf("different bytes must give different CIDs")
	}
}

func TestParse(t *testing.T) {
	s := CIDv1RawSHA256([]byte("x"))
	id, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if id.String() != s {
		t.Fatalf("round trip mismatch: %s vs %s", id, s)
	}
	if _, err := Parse("not-a-cid"); err == nil {
		t.Fatalf("expected error for garbage input")
	}

	sum, err := multihash.Sum([]byte("x"), multihash.SHA2_256, -1)
	if err != nil {
		t.Fatalf("multihash.Sum: %v", err)
	}
	if _, err := Parse(cid.NewCidV1(cid.DagCBOR, sum).String()); err == nil {
		t.Fatalf("expected error for non-raw codec")
	}
}

func TestVerify(t *testing.T) {
	id, err := CIDv1RawSHA256CID([]byte("x"))
	if err != nil {
		t.Fatalf("CIDv1RawSHA256CID: %v", err)
	}
	if !Verify(id, []byte("x")) {
		t.Fatalf("expected match")
	}
	if Verify(id, []byte("y")) {
		t.Fatalf("expected mismatch")
	}
}
