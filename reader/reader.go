// Package reader resolves an asset reference to its manifest store.
//
// The manifest verifier runs elsewhere; its output is kept as a snapshot
// document in a CAS and read back here by CID.
package reader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/ipfs/go-cid"
	"go.uber.org/zap"

	"xdao.co/c2paview/cidutil"
	"xdao.co/c2paview/manifest"
	"xdao.co/c2paview/storage"
)

// Source describes the asset a snapshot was read from.
type Source struct {
	// CID is the snapshot CID the store was read from.
	CID cid.Cid

	Name   string
	Format string

	// ThumbnailCID optionally names the thumbnail bytes in the same CAS.
	ThumbnailCID string
}

// Reader yields the manifest store and source for an asset reference.
type Reader interface {
	Read(ctx context.Context, ref string) (*manifest.Store, *Source, error)
}

// Snapshot is the stored document shape.
type Snapshot struct {
	ManifestStore json.RawMessage `json:"manifestStore"`
	Source        SnapshotSource  `json:"source,omitempty"`
}

type SnapshotSource struct {
	Name         string `json:"name,omitempty"`
	Format       string `json:"format,omitempty"`
	ThumbnailCID string `json:"thumbnailCID,omitempty"`
}

// CASReader reads snapshots whose reference is their CID.
type CASReader struct {
	CAS    storage.CAS
	Logger *zap.Logger
}

var _ Reader = (*CASReader)(nil)

func (r *CASReader) log() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *CASReader) Read(ctx context.Context, ref string) (*manifest.Store, *Source, error) {
	if r.CAS == nil {
		return nil, nil, &Error{Kind: KindMissingCAS, Ref: ref, Message: "no CAS configured"}
	}
	id, err := cidutil.Parse(ref)
	if err != nil {
		return nil, nil, &Error{Kind: KindInvalidRef, Ref: ref, Message: "invalid snapshot cid", Cause: err}
	}
	b, err := r.CAS.Get(ctx, id)
	if err != nil {
		return nil, nil, storageError(ref, err)
	}
	r.log().Debug("snapshot read", zap.String("cid", ref), zap.Int("bytes", len(b)))

	store, src, err := decodeSnapshot(b)
	if err != nil {
		return nil, nil, &Error{Kind: KindDecode, Ref: ref, Message: "invalid snapshot", Cause: err}
	}
	src.CID = id
	return store, src, nil
}

// Thumbnail returns the thumbnail bytes referenced by src, or nil when the
// source has none.
func (r *CASReader) Thumbnail(ctx context.Context, src *Source) ([]byte, error) {
	if src == nil || src.ThumbnailCID == "" {
		return nil, nil
	}
	if r.CAS == nil {
		return nil, &Error{Kind: KindMissingCAS, Ref: src.ThumbnailCID, Message: "no CAS configured"}
	}
	id, err := cidutil.Parse(src.ThumbnailCID)
	if err != nil {
		return nil, &Error{Kind: KindInvalidRef, Ref: src.ThumbnailCID, Message: "invalid thumbnail cid", Cause: err}
	}
	b, err := r.CAS.Get(ctx, id)
	if err != nil {
		return nil, storageError(src.ThumbnailCID, err)
	}
	return b, nil
}

// Ingest validates a snapshot document and stores it, returning its CID.
func Ingest(ctx context.Context, cas storage.CAS, snapshot []byte) (cid.Cid, error) {
	if cas == nil {
		return cid.Undef, &Error{Kind: KindMissingCAS, Message: "no CAS configured"}
	}
	if _, _, err := decodeSnapshot(snapshot); err != nil {
		return cid.Undef, &Error{Kind: KindDecode, Message: "invalid snapshot", Cause: err}
	}
	id, err := cas.Put(ctx, snapshot)
	if err != nil {
		return cid.Undef, storageError("", err)
	}
	return id, nil
}

func decodeSnapshot(b []byte) (*manifest.Store, *Source, error) {
	var snap Snapshot
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&snap); err != nil {
		return nil, nil, err
	}
	if len(bytes.TrimSpace(snap.ManifestStore)) == 0 || bytes.Equal(bytes.TrimSpace(snap.ManifestStore), []byte("null")) {
		return nil, nil, errors.New("snapshot missing manifestStore")
	}
	store, err := manifest.DecodeStore(snap.ManifestStore)
	if err != nil {
		return nil, nil, err
	}
	return store, &Source{
		Name:         snap.Source.Name,
		Format:       snap.Source.Format,
		ThumbnailCID: snap.Source.ThumbnailCID,
	}, nil
}

func storageError(ref string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return &Error{Kind: KindNotFound, Ref: ref, Message: "snapshot not found", Cause: err}
	case errors.Is(err, storage.ErrInvalidCID):
		return &Error{Kind: KindInvalidRef, Ref: ref, Message: "invalid snapshot cid", Cause: err}
	case errors.Is(err, storage.ErrCIDMismatch), errors.Is(err, storage.ErrImmutable):
		return &Error{Kind: KindIntegrity, Ref: ref, Message: "stored bytes do not match cid", Cause: err}
	default:
		return &Error{Kind: KindInternal, Ref: ref, Message: "storage failure", Cause: err}
	}
}
