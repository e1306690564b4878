// Package config loads process configuration from C2PAVIEW_* environment
// variables. Command-line flags take precedence over these values.
package config

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"

	"xdao.co/c2paview/storage"
	"xdao.co/c2paview/storage/casregistry"
	"xdao.co/c2paview/storage/grpccas"
	"xdao.co/c2paview/storage/ipfs"
	"xdao.co/c2paview/storage/localfs"
)

type Config struct {
	Backend     string        `env:"C2PAVIEW_BACKEND" envDefault:"localfs"`
	LocalFSDir  string        `env:"C2PAVIEW_LOCALFS_DIR"`
	GRPCTarget  string        `env:"C2PAVIEW_GRPC_TARGET"`
	GRPCTimeout time.Duration `env:"C2PAVIEW_GRPC_TIMEOUT" envDefault:"10s"`
	IPFSBin     string        `env:"C2PAVIEW_IPFS_BIN"`
	IPFSPath    string        `env:"C2PAVIEW_IPFS_PATH"`
	// MirrorDir, when set, adds a localfs replica: writes go to both stores
	// and reads fall back to the mirror.
	MirrorDir string `env:"C2PAVIEW_MIRROR_DIR"`

	Locale      string `env:"C2PAVIEW_LOCALE" envDefault:"en-US"`
	// ViewMoreURL is the view-more link target. The daemon treats it as a
	// prefix and appends the snapshot CID.
	ViewMoreURL string `env:"C2PAVIEW_VIEW_MORE_URL"`

	LogLevel string `env:"C2PAVIEW_LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"C2PAVIEW_LOG_JSON"`

	HTTPAddr       string `env:"C2PAVIEW_HTTP_ADDR" envDefault:"127.0.0.1:8080"`
	GRPCAddr       string `env:"C2PAVIEW_GRPC_ADDR" envDefault:"127.0.0.1:7070"`
	MaxObjectBytes int    `env:"C2PAVIEW_MAX_OBJECT_BYTES" envDefault:"16777216"`

	// SignerSeedHex is an Ed25519 seed used to sign receipts when set.
	SignerSeedHex string `env:"C2PAVIEW_SIGNER_SEED_HEX"`
}

// ParseEnv parses environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load returns the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.MaxObjectBytes < 0 {
		return Config{}, fmt.Errorf("C2PAVIEW_MAX_OBJECT_BYTES must be >= 0, got %d", cfg.MaxObjectBytes)
	}
	return cfg, nil
}

// StorageSettings returns the backend settings for casregistry.Open.
func (c Config) StorageSettings() casregistry.Settings {
	s := casregistry.Settings{
		localfs.SettingDir:    c.LocalFSDir,
		grpccas.SettingTarget: c.GRPCTarget,
		ipfs.SettingBin:       c.IPFSBin,
		ipfs.SettingRepoPath:  c.IPFSPath,
	}
	if c.GRPCTimeout > 0 {
		s[grpccas.SettingTimeout] = c.GRPCTimeout.String()
	}
	if c.MaxObjectBytes > 0 {
		// Leave room for message framing around the largest object.
		s[grpccas.SettingMaxMsgBytes] = strconv.Itoa(c.MaxObjectBytes + 1<<16)
	}
	return s
}

// OpenCAS opens the configured backend for usage, wrapping it with the
// localfs mirror when MirrorDir is set.
func (c Config) OpenCAS(ctx context.Context, usage casregistry.Usage) (storage.CAS, func() error, error) {
	primary, closeFn, err := casregistry.Open(ctx, c.Backend, usage, c.StorageSettings())
	if err != nil {
		return nil, nil, err
	}
	if c.MirrorDir == "" {
		return primary, closeFn, nil
	}
	mirror, err := localfs.New(c.MirrorDir)
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("open mirror: %w", err), closeFn())
	}
	return storage.MultiCAS{Adapters: []storage.CAS{primary, mirror}, Replicate: true}, closeFn, nil
}
