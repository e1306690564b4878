package reader

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"xdao.co/c2paview/cidutil"
	"xdao.co/c2paview/manifest"
	"xdao.co/c2paview/storage"
	"xdao.co/c2paview/storage/testkit"
)

const snapshotJSON = `{
  "manifestStore": {
    "activeManifest": {
      "title": "photo.jpg",
      "format": "image/jpeg",
      "claimGenerator": "TrustedApp/3.0 (MacOS)"
    },
    "claimGenerator": "TrustedApp/3.0 (MacOS)"
  },
  "source": {"name": "photo.jpg", "format": "image/jpeg"}
}`

func TestIngestAndRead(t *testing.T) {
	ctx := context.Background()
	cas := testkit.NewMemory()

	id, err := Ingest(ctx, cas, []byte(snapshotJSON))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	r := &CASReader{CAS: cas, Logger: zaptest.NewLogger(t, zaptest.Level(zap.DebugLevel))}
	store, src, err := r.Read(ctx, id.String())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if store.ActiveManifest == nil || store.ActiveManifest.Title != "photo.jpg" {
		t.Fatalf("unexpected store: %+v", store)
	}
	if src.CID != id || src.Format != "image/jpeg" || src.Name != "photo.jpg" {
		t.Fatalf("unexpected source: %+v", src)
	}
}

func TestIngest_RejectsInvalidSnapshots(t *testing.T) {
	ctx := context.Background()
	cas := testkit.NewMemory()
	for _, in := range []string{``, `{`, `{"source":{}}`, `{"manifestStore":null}`, `{"manifestStore":"x"}`} {
		_, err := Ingest(ctx, cas, []byte(in))
		if KindOf(err) != KindDecode {
			t.Fatalf("Ingest(%q): got %v want Decode", in, err)
		}
	}
	if _, err := Ingest(ctx, nil, []byte(snapshotJSON)); KindOf(err) != KindMissingCAS {
		t.Fatalf("expected MissingCAS, got %v", err)
	}
}

func TestRead_ErrorKinds(t *testing.T) {
	ctx := context.Background()
	cas := testkit.NewMemory()
	r := &CASReader{CAS: cas}

	if _, _, err := r.Read(ctx, "nope"); KindOf(err) != KindInvalidRef {
		t.Fatalf("expected InvalidRef, got %v", err)
	}

	missing, err := cidutil.CIDv1RawSHA256CID([]byte("missing"))
	if err != nil {
		t.Fatalf("CIDv1RawSHA256CID: %v", err)
	}
	_, _, err = r.Read(ctx, missing.String())
	if KindOf(err) != KindNotFound || !storage.IsNotFound(err) {
		t.Fatalf("expected NotFound wrapping storage.ErrNotFound, got %v", err)
	}

	cas.Corrupt(missing, []byte("tampered"))
	if _, _, err := r.Read(ctx, missing.String()); KindOf(err) != KindIntegrity {
		t.Fatalf("expected Integrity, got %v", err)
	}

	// A snapshot whose store fails manifest decoding keeps the manifest error in the chain.
	bad, err := cas.Put(ctx, []byte(`{"manifestStore":[1]}`))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	_, _, err = r.Read(ctx, bad.String())
	if KindOf(err) != KindDecode || !manifest.IsKind(err, manifest.KindDecode) {
		t.Fatalf("expected Decode wrapping manifest decode error, got %v", err)
	}

	// Stored but not a snapshot.
	raw, err := cas.Put(ctx, []byte("not json"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	_, _, err = r.Read(ctx, raw.String())
	if KindOf(err) != KindDecode {
		t.Fatalf("expected Decode, got %v", err)
	}

	if _, _, err := (&CASReader{}).Read(ctx, raw.String()); KindOf(err) != KindMissingCAS {
		t.Fatalf("expected MissingCAS, got %v", err)
	}
}

func TestThumbnail(t *testing.T) {
	ctx := context.Background()
	cas := testkit.NewMemory()
	r := &CASReader{CAS: cas}

	b, err := r.Thumbnail(ctx, &Source{})
	if err != nil || b != nil {
		t.Fatalf("expected no thumbnail, got %v, %v", b, err)
	}
	id, err := cas.Put(ctx, []byte("\x89PNG"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	b, err = r.Thumbnail(ctx, &Source{ThumbnailCID: id.String()})
	if err != nil || string(b) != "\x89PNG" {
		t.Fatalf("Thumbnail: %q, %v", b, err)
	}
}
