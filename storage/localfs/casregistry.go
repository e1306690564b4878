package localfs

import (
	"context"

	"xdao.co/c2paview/storage"
	"xdao.co/c2paview/storage/casregistry"
)

// SettingDir names the root directory setting.
const SettingDir = "localfs.dir"

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "localfs",
		Description: "Local filesystem CAS (directory)",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		Open: func(_ context.Context, s casregistry.Settings) (storage.CAS, func() error, error) {
			dir, err := s.Require("localfs", SettingDir)
			if err != nil {
				return nil, nil, err
			}
			cas, err := New(dir)
			return cas, nil, err
		},
	})
}
