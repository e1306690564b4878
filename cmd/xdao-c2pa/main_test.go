package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testSeedHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// setup isolates config and key store state and returns a localfs dir.
func setup(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("C2PAVIEW_BACKEND", "localfs")
	t.Setenv("C2PAVIEW_LOG_LEVEL", "error")
	t.Setenv("C2PAVIEW_SIGNER_SEED_HEX", "")
	t.Setenv("C2PAVIEW_MIRROR_DIR", "")
	dir := t.TempDir()
	t.Setenv("C2PAVIEW_LOCALFS_DIR", dir)
	return dir
}

func runOK(t *testing.T, args ...string) string {
	t.Helper()
	var out, errOut bytes.Buffer
	if code := run(args, &out, &errOut); code != 0 {
		t.Fatalf("run %v: exit %d: %s", args, code, errOut.String())
	}
	return out.String()
}

func putSnapshot(t *testing.T) string {
	t.Helper()
	return strings.TrimSpace(runOK(t, "put", filepath.Join("testdata", "snapshot.json")))
}

func TestRunUsage(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run(nil, &out, &errOut); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
	if code := run([]string{"bogus"}, &out, &errOut); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
	if !strings.Contains(errOut.String(), "unknown command: bogus") {
		t.Fatalf("unexpected stderr: %s", errOut.String())
	}
	out.Reset()
	if code := run([]string{"help"}, &out, &errOut); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(out.String(), "xdao-c2pa summary") {
		t.Fatalf("usage missing summary: %s", out.String())
	}
}

func TestPutMatchesCID(t *testing.T) {
	setup(t)
	id := putSnapshot(t)
	want := strings.TrimSpace(runOK(t, "cid", filepath.Join("testdata", "snapshot.json")))
	if id != want {
		t.Fatalf("put CID %s != cid %s", id, want)
	}
}

func TestPutRejectsInvalidSnapshot(t *testing.T) {
	setup(t)
	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{"manifestStore":[1]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	var out, errOut bytes.Buffer
	if code := run([]string{"put", bad}, &out, &errOut); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if code := run([]string{"put", "--raw", bad}, &out, &errOut); code != 0 {
		t.Fatalf("raw put: exit %d: %s", code, errOut.String())
	}
}

func TestSummaryText(t *testing.T) {
	setup(t)
	id := putSnapshot(t)

	got := runOK(t, "summary", "--cid", id, "--view-more-url", "https://verify.example/"+id)
	want := "Produced by\n  Acme\nApp or device used\n  TrustedApp/3.0\nView more: https://verify.example/" + id + "\n"
	if got != want {
		t.Fatalf("summary mismatch\n--- got\n%s--- want\n%s", got, want)
	}

	fr := runOK(t, "summary", "--cid", id, "--locale", "fr-FR")
	if !strings.HasPrefix(fr, "Produit par\n") {
		t.Fatalf("expected French headers, got %q", fr)
	}
}

func TestSummaryJSONAndHTML(t *testing.T) {
	setup(t)
	id := putSnapshot(t)

	var resp struct {
		SnapshotCID string `json:"snapshotCID"`
		State       string `json:"state"`
		Sections    []struct {
			Kind string `json:"kind"`
		} `json:"sections"`
	}
	if err := json.Unmarshal([]byte(runOK(t, "summary", "--cid", id, "--format", "json")), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SnapshotCID != id || resp.State != "manifest" || len(resp.Sections) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	html := runOK(t, "summary", "--cid", id, "--format", "html")
	if !strings.Contains(html, `data-state="manifest"`) || !strings.Contains(html, "<h3>Produced by</h3>") {
		t.Fatalf("unexpected html: %s", html)
	}
}

func TestSummaryErrors(t *testing.T) {
	setup(t)
	var out, errOut bytes.Buffer
	if code := run([]string{"summary"}, &out, &errOut); code != 2 {
		t.Fatalf("missing --cid: expected 2, got %d", code)
	}
	if code := run([]string{"summary", "--cid", "x", "--format", "pdf"}, &out, &errOut); code != 2 {
		t.Fatalf("bad format: expected 2, got %d", code)
	}
	errOut.Reset()
	if code := run([]string{"summary", "--cid", "not-a-cid"}, &out, &errOut); code != 2 {
		t.Fatalf("bad cid: expected 2, got %d", code)
	}
	if !strings.Contains(errOut.String(), "INVALID_CID") {
		t.Fatalf("expected INVALID_CID, got %s", errOut.String())
	}

	missing := strings.TrimSpace(runOK(t, "cid", filepath.Join("testdata", "snapshot.json")))
	errOut.Reset()
	if code := run([]string{"summary", "--cid", missing}, &out, &errOut); code != 1 {
		t.Fatalf("not found: expected 1, got %d", code)
	}
	if !strings.Contains(errOut.String(), "NOT_FOUND") {
		t.Fatalf("expected NOT_FOUND, got %s", errOut.String())
	}
}

func TestDetailsText(t *testing.T) {
	setup(t)
	id := putSnapshot(t)
	got := runOK(t, "details", "--cid", id)
	for _, want := range []string{"photo.jpg", "Acme CA", "Sep 21, 2022", "claimSignature.validated"} {
		if !strings.Contains(got, want) {
			t.Fatalf("details missing %q:\n%s", want, got)
		}
	}
}

func TestReceiptRenderVerify(t *testing.T) {
	setup(t)
	id := putSnapshot(t)
	dir := t.TempDir()

	for _, alg := range []string{"ed25519", "dilithium3"} {
		path := filepath.Join(dir, alg+".txt")
		receiptCID := strings.TrimSpace(runOK(t, "receipt", "render", "--cid", id, "--sig-alg", alg, "--seed-hex", testSeedHex, "--out", path))
		if got := strings.TrimSpace(runOK(t, "receipt", "cid", path)); got != receiptCID {
			t.Fatalf("%s: receipt cid %s != %s", alg, got, receiptCID)
		}
		if got := runOK(t, "receipt", "verify", "--require-signed", path); got != "OK\n" {
			t.Fatalf("%s: verify output %q", alg, got)
		}

		b, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		tampered := filepath.Join(dir, alg+"-tampered.txt")
		if err := os.WriteFile(tampered, bytes.Replace(b, []byte("Acme"), []byte("Acmf"), 1), 0o644); err != nil {
			t.Fatal(err)
		}
		var out, errOut bytes.Buffer
		if code := run([]string{"receipt", "verify", tampered}, &out, &errOut); code != 1 {
			t.Fatalf("%s: tampered receipt verified (exit %d)", alg, code)
		}
	}
}

func TestReceiptUnsignedIsDeterministic(t *testing.T) {
	setup(t)
	id := putSnapshot(t)
	a := runOK(t, "receipt", "render", "--cid", id)
	b := runOK(t, "receipt", "render", "--cid", id)
	if a != b {
		t.Fatalf("expected identical unsigned receipts")
	}
	if !strings.HasPrefix(a, "-----BEGIN XDAO SUMMARY-----\n") {
		t.Fatalf("unexpected receipt:\n%s", a)
	}

	path := filepath.Join(t.TempDir(), "r.txt")
	if err := os.WriteFile(path, []byte(a), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := runOK(t, "receipt", "verify", path); got != "OK (unsigned)\n" {
		t.Fatalf("verify output %q", got)
	}
	var out, errOut bytes.Buffer
	if code := run([]string{"receipt", "verify", "--require-signed", path}, &out, &errOut); code != 1 {
		t.Fatalf("expected unsigned receipt to fail --require-signed")
	}
}

func TestKeyLifecycleSignsReceipt(t *testing.T) {
	setup(t)
	runOK(t, "key", "init", "--name", "ops", "--alg", "dilithium3", "--seed-hex", testSeedHex)
	if got := runOK(t, "key", "derive", "--from", "ops", "--role", "receipts"); !strings.HasPrefix(got, "Derived signer: ops/receipts (dilithium3)\n") {
		t.Fatalf("key derive: %q", got)
	}

	if got := runOK(t, "key", "list"); got != "ops\tdilithium3\nops/receipts\tdilithium3\n" {
		t.Fatalf("key list: %q", got)
	}
	signerKey := strings.TrimSpace(runOK(t, "key", "export", "--signer", "ops/receipts"))
	if !strings.HasPrefix(signerKey, "dilithium3:") {
		t.Fatalf("unexpected signer key %q", signerKey)
	}

	id := putSnapshot(t)
	path := filepath.Join(t.TempDir(), "receipt.txt")
	runOK(t, "receipt", "render", "--cid", id, "--signer", "ops/receipts", "--out", path)
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "Signer-Key: "+signerKey+"\n") {
		t.Fatalf("receipt not signed by exported key:\n%s", b)
	}
	if got := runOK(t, "receipt", "verify", path); got != "OK (signer ops/receipts)\n" {
		t.Fatalf("verify output %q", got)
	}

	var out, errOut bytes.Buffer
	if code := run([]string{"receipt", "render", "--cid", id, "--signer", "ops", "--sig-alg", "ed25519"}, &out, &errOut); code != 2 {
		t.Fatalf("algorithm mismatch: exit %d", code)
	}
	if code := run([]string{"receipt", "render", "--cid", id, "--signer", "nobody"}, &out, &errOut); code != 2 {
		t.Fatalf("unknown signer: exit %d", code)
	}
}

func TestBackendsListsCLIBackends(t *testing.T) {
	got := runOK(t, "backends")
	if !strings.Contains(got, "grpc\t") || !strings.Contains(got, "localfs\t") {
		t.Fatalf("unexpected backends: %q", got)
	}
}

func TestMirrorDirServesReads(t *testing.T) {
	setup(t)
	mirror := t.TempDir()
	id := strings.TrimSpace(runOK(t, "put", "--mirror-dir", mirror, filepath.Join("testdata", "snapshot.json")))

	empty := t.TempDir()
	got := runOK(t, "summary", "--cid", id, "--localfs-dir", empty, "--mirror-dir", mirror)
	if !strings.HasPrefix(got, "Produced by\n") {
		t.Fatalf("expected summary from mirror, got %q", got)
	}
}

func TestBundleRoundTrip(t *testing.T) {
	setup(t)
	thumbPath := filepath.Join(t.TempDir(), "thumb.bin")
	if err := os.WriteFile(thumbPath, []byte("thumbnail bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	thumb := strings.TrimSpace(runOK(t, "put", "--raw", thumbPath))

	snap := filepath.Join(t.TempDir(), "snap.json")
	doc := `{"manifestStore":{"activeManifest":{"title":"a.jpg"}},"source":{"name":"a.jpg","thumbnailCID":"` + thumb + `"}}`
	if err := os.WriteFile(snap, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	id := strings.TrimSpace(runOK(t, "put", snap))

	tarPath := filepath.Join(t.TempDir(), "out.tar")
	first := runOK(t, "bundle", "export", "--cid", id, "--out", tarPath)
	second := runOK(t, "bundle", "export", "--cid", id, "--out", tarPath)
	if first != second {
		t.Fatalf("bundle export not deterministic: %s vs %s", first, second)
	}

	fresh := t.TempDir()
	got := runOK(t, "bundle", "import", "--localfs-dir", fresh, tarPath)
	lines := strings.Fields(got)
	if len(lines) != 2 {
		t.Fatalf("expected two imported objects, got %q", got)
	}
	runOK(t, "summary", "--cid", id, "--localfs-dir", fresh)
}
