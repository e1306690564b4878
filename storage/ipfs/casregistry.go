package ipfs

import (
	"context"

	"xdao.co/c2paview/storage"
	"xdao.co/c2paview/storage/casregistry"
)

const (
	SettingBin      = "ipfs.bin"
	SettingRepoPath = "ipfs.path"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "ipfs",
		Description: "Local Kubo repo via the ipfs CLI (offline)",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		Open: func(_ context.Context, s casregistry.Settings) (storage.CAS, func() error, error) {
			return New(Options{Bin: s.Get(SettingBin), RepoPath: s.Get(SettingRepoPath)}), nil, nil
		},
	})
}
