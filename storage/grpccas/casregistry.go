package grpccas

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"xdao.co/c2paview/storage"
	"xdao.co/c2paview/storage/casregistry"
)

const (
	SettingTarget      = "grpc.target"
	SettingTimeout     = "grpc.timeout"
	SettingMaxMsgBytes = "grpc.max_msg_bytes"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "grpc",
		Description: "gRPC snapshot store client (talks to xdao-c2pad)",
		Usage:       casregistry.UsageCLI,
		Open: func(_ context.Context, s casregistry.Settings) (storage.CAS, func() error, error) {
			target, err := s.Require("grpc", SettingTarget)
			if err != nil {
				return nil, nil, err
			}
			opts := DialOptions{}
			if v := s.Get(SettingTimeout); v != "" {
				d, err := time.ParseDuration(v)
				if err != nil {
					return nil, nil, fmt.Errorf("grpc: invalid %s %q: %w", SettingTimeout, v, err)
				}
				opts.Timeout = d
			}
			if v := s.Get(SettingMaxMsgBytes); v != "" {
				n, err := strconv.Atoi(v)
				if err != nil || n < 0 {
					return nil, nil, fmt.Errorf("grpc: invalid %s %q", SettingMaxMsgBytes, v)
				}
				opts.MaxMsgBytes = n
			}
			client, err := Dial(target, opts)
			if err != nil {
				return nil, nil, err
			}
			return client, client.Close, nil
		},
	})
}
