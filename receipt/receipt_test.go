package receipt

import (
	"crypto/ed25519"
	"io"
	"strings"
	"testing"
	"time"

	"xdao.co/c2paview/keys"
	"xdao.co/c2paview/manifest"
	"xdao.co/c2paview/summary"
)

type deterministicReader struct{ b byte }

func (r *deterministicReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.b
		r.b++
	}
	return len(p), nil
}

const testSnapshotCID = "bafkreigh2akiscaildcqabsyg3dfr6chu3fgpregiymsck7e7aqa4s52zy"

func sampleProjection() summary.Projection {
	return summary.Projection{
		State: summary.StateManifest,
		Sections: []summary.Section{
			summary.ContentSummary{Type: manifest.GenerativeComposite},
			summary.ProducedBy{Name: "Jane\nDoe "},
			summary.ProducedWith{ClaimGenerator: "TrustedApp/3.0 (MacOS)"},
			summary.AIToolUsed{Agents: []string{"Firefly", "DALL-E"}},
		},
	}
}

func sampleInputs() Inputs {
	return Inputs{
		SnapshotCID:  testSnapshotCID,
		SourceFormat: "image/jpeg",
		Validation: []manifest.ValidationStatus{
			{Code: "claimSignature.mismatch", Explanation: "bad", URL: "self#jumbf=/c2pa"},
			{Code: "assertion.hashedURI.mismatch"},
		},
	}
}

func TestRender_Unsigned_Snapshot(t *testing.T) {
	b, err := Render(sampleProjection(), sampleInputs(), Options{
		RenderedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := strings.Join([]string{
		Preamble,
		"META",
		"Generator: xdao-c2paview",
		"Rendered-At: 2024-05-01T12:00:00Z",
		"Spec: xdao-c2pa-summary-1",
		"Version: 1",
		"",
		"INPUTS",
		"Snapshot-CID: " + testSnapshotCID,
		"Source-Format: image/jpeg",
		"",
		"RESULT",
		"State: manifest",
		"",
		"SECTIONS",
		"Section: contentSummary",
		"Generative-Type: compositeGenerative",
		"Section: producedBy",
		"Name: Jane Doe",
		"Section: producedWith",
		"Claim-Generator: TrustedApp/3.0",
		"Section: aiToolUsed",
		"Agent: Firefly",
		"Agent: DALL-E",
		"",
		"VALIDATION",
		"Code: claimSignature.mismatch",
		"Explanation: bad",
		"URL: self#jumbf=/c2pa",
		"Code: assertion.hashedURI.mismatch",
		"",
		"CRYPTO",
		"",
		Postamble,
		"",
	}, "\n")
	if string(b) != want {
		t.Fatalf("snapshot mismatch:\n%s", b)
	}

	ok, err := Verify(b)
	if err != nil || ok {
		t.Fatalf("unsigned receipt: got ok=%v err=%v", ok, err)
	}
	if _, err := Canonicalize(b); err != nil {
		t.Fatalf("Render output not canonical: %v", err)
	}
}

func TestRender_Deterministic(t *testing.T) {
	a, err := Render(sampleProjection(), sampleInputs(), Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	b, err := Render(sampleProjection(), sampleInputs(), Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("expected deterministic output")
	}
	ca, err := CID(a)
	if err != nil {
		t.Fatalf("CID: %v", err)
	}
	_, cb, err := RenderWithCID(sampleProjection(), sampleInputs(), Options{})
	if err != nil || ca != cb {
		t.Fatalf("RenderWithCID: %s vs %s (%v)", ca, cb, err)
	}
}

func TestRender_TerminalStates(t *testing.T) {
	for _, p := range []summary.Projection{
		summary.Project(nil, summary.Options{}),
		{State: summary.StateError, Sections: []summary.Section{summary.ManifestError{}}},
	} {
		b, err := Render(p, Inputs{SnapshotCID: testSnapshotCID}, Options{})
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
		if !strings.Contains(string(b), "State: "+string(p.State)+"\n") {
			t.Fatalf("missing state line:\n%s", b)
		}
		if _, err := Canonicalize(b); err != nil {
			t.Fatalf("not canonical: %v", err)
		}
	}
	if _, err := Render(sampleProjection(), Inputs{}, Options{}); err == nil {
		t.Fatalf("expected error without snapshot cid")
	}
}

func TestRender_SignedEd25519_Verifies(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	priv := ed25519.NewKeyFromSeed(seed)

	for _, h := range []string{"", keys.HashSHA512, keys.HashSHA3_256} {
		b, err := Render(sampleProjection(), sampleInputs(), Options{
			SignatureAlg: keys.AlgEd25519,
			HashAlg:      h,
			Ed25519Key:   priv,
		})
		if err != nil {
			t.Fatalf("Render(%q): %v", h, err)
		}
		ok, err := Verify(b)
		if err != nil || !ok {
			t.Fatalf("Verify(%q): ok=%v err=%v", h, ok, err)
		}

		tampered := strings.Replace(string(b), "Name: Jane Doe", "Name: Mallory", 1)
		if ok, err := Verify([]byte(tampered)); err == nil || ok {
			t.Fatalf("tampered receipt verified (hash %q)", h)
		}
	}
}

func TestSignerKey(t *testing.T) {
	unsigned, err := Render(sampleProjection(), sampleInputs(), Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if k, err := SignerKey(unsigned); err != nil || k != "" {
		t.Fatalf("unsigned: %q %v", k, err)
	}

	s, err := keys.NewSigner(keys.AlgDilithium3, make([]byte, ed25519.SeedSize))
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	priv, err := s.Dilithium3()
	if err != nil {
		t.Fatalf("Dilithium3: %v", err)
	}
	signed, err := Render(sampleProjection(), sampleInputs(), Options{SignatureAlg: s.Alg, Dilithium3Key: priv})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want, _ := s.SignerKey()
	if k, err := SignerKey(signed); err != nil || k != want {
		t.Fatalf("signed: %q %v, want %q", k, err, want)
	}
}

func TestRender_SignedDilithium3_Verifies(t *testing.T) {
	_, sk, err := keys.GenerateDilithium3Keypair(io.Reader(&deterministicReader{}))
	if err != nil {
		t.Fatalf("GenerateDilithium3Keypair: %v", err)
	}
	b, err := Render(sampleProjection(), sampleInputs(), Options{
		SignatureAlg:  keys.AlgDilithium3,
		HashAlg:       keys.HashSHA3_256,
		Dilithium3Key: sk,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(string(b), "Signer-Key: dilithium3:") {
		t.Fatalf("missing dilithium3 signer key")
	}
	ok, err := Verify(b)
	if err != nil || !ok {
		t.Fatalf("Verify: ok=%v err=%v", ok, err)
	}
}

func TestRender_SigningErrors(t *testing.T) {
	cases := []Options{
		{SignatureAlg: keys.AlgEd25519},
		{SignatureAlg: keys.AlgDilithium3},
		{SignatureAlg: "rsa"},
		{SignatureAlg: keys.AlgEd25519, HashAlg: "md5", Ed25519Key: ed25519.NewKeyFromSeed(make([]byte, ed25519.SeedSize))},
	}
	for _, opts := range cases {
		if _, err := Render(sampleProjection(), sampleInputs(), opts); err == nil {
			t.Fatalf("expected error for %+v", opts.SignatureAlg)
		}
	}
}

func TestCanonicalize_Rejects(t *testing.T) {
	good, err := Render(sampleProjection(), sampleInputs(), Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	s := string(good)
	cases := map[string]string{
		"crlf":             strings.ReplaceAll(s, "\n", "\r\n"),
		"no trailing nl":   strings.TrimSuffix(s, "\n"),
		"trailing space":   strings.Replace(s, "State: manifest", "State: manifest ", 1),
		"bom":              "\xEF\xBB\xBF" + s,
		"swapped sections": strings.Replace(s, "RESULT\nState: manifest\n\nSECTIONS", "SECTIONS\nState: manifest\n\nRESULT", 1),
		"unsorted meta":    strings.Replace(s, "Generator: xdao-c2paview\nSpec", "Spec: x\nGenerator: xdao-c2paview\nSpec", 1),
		"bad line":         strings.Replace(s, "Agent: Firefly", "Agent Firefly", 1),
		"missing state":    strings.Replace(s, "State: manifest\n", "", 1),
		"empty":            "",
	}
	for name, in := range cases {
		if _, err := Canonicalize([]byte(in)); err == nil {
			t.Fatalf("%s: expected canonicalization error", name)
		}
		if _, err := CID([]byte(in)); err == nil {
			t.Fatalf("%s: expected CID error", name)
		}
	}

	doc, err := NewDocument(good)
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	if want, _ := CID(good); doc.CID != want {
		t.Fatalf("Document CID mismatch")
	}
}
