package grpccas

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/c2paview/cidutil"
	"xdao.co/c2paview/storage"
	"xdao.co/c2paview/storage/localfs"
	"xdao.co/c2paview/storage/testkit"
)

func startServer(t *testing.T, backing storage.CAS, maxBytes int) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterSnapshotStoreServer(srv, &Server{CAS: backing, MaxObjectBytes: maxBytes})
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.DialContext(ctx) }
	cc, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close() })
	return &Client{cc: cc, client: NewSnapshotStoreClient(cc), Timeout: 2 * time.Second}
}

func TestGRPCCAS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		cas, err := localfs.New(t.TempDir())
		if err != nil {
			t.Fatalf("localfs.New: %v", err)
		}
		return startServer(t, cas, 0)
	})
}

func TestGRPCCAS_ErrorMapping(t *testing.T) {
	ctx := context.Background()
	mem := testkit.NewMemory()
	client := startServer(t, mem, 16)

	if _, err := client.Put(ctx, make([]byte, 17)); err == nil {
		t.Fatalf("expected size limit error")
	}

	id, err := cidutil.CIDv1RawSHA256CID([]byte("gone"))
	if err != nil {
		t.Fatalf("CIDv1RawSHA256CID: %v", err)
	}
	if _, err := client.Get(ctx, id); err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	mem.Corrupt(id, []byte("other"))
	if _, err := client.Get(ctx, id); err != storage.ErrCIDMismatch {
		t.Fatalf("expected ErrCIDMismatch, got %v", err)
	}
}
