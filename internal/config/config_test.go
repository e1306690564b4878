package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"xdao.co/c2paview/storage/casregistry"

	"xdao.co/c2paview/cidutil"
	"xdao.co/c2paview/storage/grpccas"
	"xdao.co/c2paview/storage/localfs"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != "localfs" || cfg.Locale != "en-US" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.GRPCTimeout != 10*time.Second {
		t.Fatalf("unexpected grpc timeout %s", cfg.GRPCTimeout)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("C2PAVIEW_BACKEND", "grpc")
	t.Setenv("C2PAVIEW_GRPC_TARGET", "127.0.0.1:9999")
	t.Setenv("C2PAVIEW_LOG_JSON", "true")
	t.Setenv("C2PAVIEW_LOCALFS_DIR", "/var/lib/c2paview")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != "grpc" || !cfg.LogJSON {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	s := cfg.StorageSettings()
	if s.Get(grpccas.SettingTarget) != "127.0.0.1:9999" || s.Get(localfs.SettingDir) != "/var/lib/c2paview" {
		t.Fatalf("unexpected settings: %v", s)
	}
	if s.Get(grpccas.SettingTimeout) != "10s" {
		t.Fatalf("unexpected timeout setting %q", s.Get(grpccas.SettingTimeout))
	}
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("C2PAVIEW_LOG_JSON", "not-a-bool")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}

func TestLoadRejectsNegativeObjectLimit(t *testing.T) {
	t.Setenv("C2PAVIEW_MAX_OBJECT_BYTES", "-1")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestOpenCASMirrorsWrites(t *testing.T) {
	primaryDir, mirrorDir := t.TempDir(), t.TempDir()
	cfg := Config{Backend: "localfs", LocalFSDir: primaryDir, MirrorDir: mirrorDir}

	ctx := context.Background()
	cas, closeFn, err := cfg.OpenCAS(ctx, casregistry.UsageDaemon)
	if err != nil {
		t.Fatalf("OpenCAS: %v", err)
	}
	defer func() { _ = closeFn() }()

	data := []byte(`{"manifestStore":{}}`)
	id, err := cas.Put(ctx, data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if id.String() != cidutil.CIDv1RawSHA256(data) {
		t.Fatalf("unexpected CID %s", id)
	}

	for _, dir := range []string{primaryDir, mirrorDir} {
		one, err := localfs.New(dir)
		if err != nil {
			t.Fatalf("localfs.New: %v", err)
		}
		if !one.Has(ctx, id) {
			t.Fatalf("expected %s to hold %s", dir, id)
		}
	}
}

func TestOpenCASUnknownBackend(t *testing.T) {
	cfg := Config{Backend: "nope"}
	if _, _, err := cfg.OpenCAS(context.Background(), casregistry.UsageCLI); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}
