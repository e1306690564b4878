package testkit

import (
	"context"
	"sync"

	"github.com/ipfs/go-cid"

	"xdao.co/c2paview/cidutil"
	"xdao.co/c2paview/storage"
)

// Memory is a map-backed CAS. It honors the full storage.CAS contract.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ storage.CAS = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{objects: map[string][]byte{}}
}

func (m *Memory) Put(_ context.Context, b []byte) (cid.Cid, error) {
	id, err := cidutil.CIDv1RawSHA256CID(b)
	if err != nil {
		return cid.Undef, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[id.KeyString()]; !ok {
		m.objects[id.KeyString()] = append([]byte(nil), b...)
	}
	return id, nil
}

func (m *Memory) Get(_ context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[id.KeyString()]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if !cidutil.Verify(id, b) {
		return nil, storage.ErrCIDMismatch
	}
	return append([]byte(nil), b...), nil
}

func (m *Memory) Has(_ context.Context, id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[id.KeyString()]
	return ok
}

// Corrupt replaces the bytes stored under id without recomputing the CID.
func (m *Memory) Corrupt(id cid.Cid, b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[id.KeyString()] = append([]byte(nil), b...)
}
