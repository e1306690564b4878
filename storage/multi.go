package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/c2paview/cidutil"
)

// MultiCAS provides deterministic, ordered fallback across multiple CAS adapters.
//
// Reads try Adapters in slice order. Put writes only to the first adapter
// unless Replicate is set, in which case every adapter must accept the bytes
// under the same CID.
type MultiCAS struct {
	Adapters  []CAS
	Replicate bool
}

var _ CAS = MultiCAS{}

func (m MultiCAS) Put(ctx context.Context, bytes []byte) (cid.Cid, error) {
	if len(m.Adapters) == 0 {
		return cid.Undef, errors.New("storage: MultiCAS has no adapters")
	}
	if !m.Replicate {
		return m.Adapters[0].Put(ctx, bytes)
	}
	want, err := cidutil.CIDv1RawSHA256CID(bytes)
	if err != nil {
		return cid.Undef, err
	}
	for i, cas := range m.Adapters {
		if cas == nil {
			return cid.Undef, fmt.Errorf("storage: nil CAS at index %d", i)
		}
		got, err := cas.Put(ctx, bytes)
		if err != nil {
			return cid.Undef, err
		}
		if got != want {
			return cid.Undef, ErrCIDMismatch
		}
	}
	return want, nil
}

func (m MultiCAS) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	for _, cas := range m.Adapters {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := cas.Get(ctx, id)
		if err == nil {
			return b, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func (m MultiCAS) Has(ctx context.Context, id cid.Cid) bool {
	for _, cas := range m.Adapters {
		if cas.Has(ctx, id) {
			return true
		}
	}
	return false
}
