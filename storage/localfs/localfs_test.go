package localfs

import (
	"context"
	"os"
	"testing"

	"xdao.co/c2paview/cidutil"
	"xdao.co/c2paview/storage"
	"xdao.co/c2paview/storage/casregistry"
	"xdao.co/c2paview/storage/testkit"
)

func TestLocalFS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		t.Helper()
		cas, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		return cas
	})
}

func TestLocalFS_RejectMutationByOverwrite(t *testing.T) {
	ctx := context.Background()
	cas, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	orig := []byte(`{"manifestStore":{"activeManifest":{}}}`)
	id, err := cas.Put(ctx, orig)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Corrupt the stored object out-of-band.
	path := cas.pathFor(id)
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatalf("Chmod failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("corrupted"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := cas.Get(ctx, id); err != storage.ErrCIDMismatch {
		t.Fatalf("Get mismatch: got %v want %v", err, storage.ErrCIDMismatch)
	}
	if _, err := cas.Put(ctx, orig); err != storage.ErrImmutable {
		t.Fatalf("Put after corruption: got %v want %v", err, storage.ErrImmutable)
	}
	if !cidutil.Verify(id, orig) {
		t.Fatalf("CID no longer matches original bytes")
	}
}

func TestLocalFS_CanceledContext(t *testing.T) {
	cas, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := cas.Put(ctx, []byte("x")); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestLocalFS_Registered(t *testing.T) {
	ctx := context.Background()
	if _, _, err := casregistry.Open(ctx, "localfs", casregistry.UsageCLI, casregistry.Settings{}); err == nil {
		t.Fatalf("expected error without %s", SettingDir)
	}
	cas, closeFn, err := casregistry.Open(ctx, "localfs", casregistry.UsageDaemon, casregistry.Settings{SettingDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()
	if _, ok := cas.(*CAS); !ok {
		t.Fatalf("expected *localfs.CAS, got %T", cas)
	}
}
