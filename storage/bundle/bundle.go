// Package bundle moves snapshot objects between stores as a deterministic TAR
// archive. Every object is written under objects/<cid> and checked against its
// CID on both export and import.
package bundle

import (
	"archive/tar"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/c2paview/cidutil"
	"xdao.co/c2paview/storage"
)

// FormatVersion is the current index.json schema version.
const FormatVersion = 1

const (
	objectPrefix = "objects/"
	indexName    = "index.json"
)

var epoch0 = time.Unix(0, 0).UTC()

// ExportOptions controls bundle export.
type ExportOptions struct {
	// Labels maps names (e.g. asset file names) to exported CIDs. They are
	// informational and ignored on import.
	Labels map[string]cid.Cid
	// IncludeIndex writes index.json after the objects.
	IncludeIndex bool
}

// Export writes the objects named by ids to w. Duplicate ids are written once
// and entries are ordered by CID string, so the same set always yields the
// same bytes.
func Export(ctx context.Context, w io.Writer, cas storage.CAS, ids []cid.Cid, opts ExportOptions) (err error) {
	if cas == nil {
		return errors.New("bundle: nil CAS")
	}

	uniq := make(map[string]cid.Cid, len(ids))
	for _, id := range ids {
		if !id.Defined() {
			return storage.ErrInvalidCID
		}
		uniq[id.String()] = id
	}
	names := make([]string, 0, len(uniq))
	for s := range uniq {
		names = append(names, s)
	}
	sort.Strings(names)

	tw := tar.NewWriter(w)
	defer func() {
		if cerr := tw.Close(); err == nil {
			err = cerr
		}
	}()

	objects := make([]indexObject, 0, len(names))
	for _, s := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		id := uniq[s]
		b, err := cas.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("bundle: get %s: %w", s, err)
		}
		if !cidutil.Verify(id, b) {
			return storage.ErrCIDMismatch
		}
		if err := writeFile(tw, objectPrefix+s, b); err != nil {
			return err
		}
		objects = append(objects, indexObject{CID: s, Size: len(b)})
	}

	if !opts.IncludeIndex {
		return nil
	}
	idx := index{
		Version:   FormatVersion,
		CIDCodec:  "raw",
		Multihash: "sha2-256",
		Objects:   objects,
	}
	labelNames := make([]string, 0, len(opts.Labels))
	for k := range opts.Labels {
		labelNames = append(labelNames, k)
	}
	sort.Strings(labelNames)
	for _, k := range labelNames {
		if k == "" {
			return errors.New("bundle: empty label")
		}
		v := opts.Labels[k]
		if _, ok := uniq[v.String()]; !ok || !v.Defined() {
			return fmt.Errorf("bundle: label %q names an object that is not exported", k)
		}
		idx.Labels = append(idx.Labels, indexLabel{Name: k, CID: v.String()})
	}
	b, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	return writeFile(tw, indexName, append(b, '\n'))
}

// ImportOptions controls bundle import.
type ImportOptions struct {
	// IgnoreUnknown skips entries other than objects and the index instead
	// of failing.
	IgnoreUnknown bool
}

// Import stores every object in r into cas and returns their CIDs in archive
// order. The first invalid entry aborts the import; objects stored before it
// remain in cas.
func Import(ctx context.Context, r io.Reader, cas storage.CAS, opts ImportOptions) ([]cid.Cid, error) {
	if cas == nil {
		return nil, errors.New("bundle: nil CAS")
	}

	tr := tar.NewReader(r)
	seen := map[string]struct{}{}
	var imported []cid.Cid

	for {
		if err := ctx.Err(); err != nil {
			return imported, err
		}
		h, err := tr.Next()
		if err == io.EOF {
			return imported, nil
		}
		if err != nil {
			return imported, err
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return imported, fmt.Errorf("bundle: invalid entry path: %q", h.Name)
		}
		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return imported, fmt.Errorf("bundle: unexpected tar entry type %v (%s)", h.Typeflag, name)
		}
		if name == indexName {
			continue
		}
		if !strings.HasPrefix(name, objectPrefix) {
			if opts.IgnoreUnknown {
				continue
			}
			return imported, fmt.Errorf("bundle: unknown entry: %s", name)
		}

		id, err := cidutil.Parse(strings.TrimPrefix(name, objectPrefix))
		if err != nil {
			return imported, storage.ErrInvalidCID
		}
		if _, dup := seen[id.KeyString()]; dup {
			return imported, fmt.Errorf("bundle: duplicate object: %s", id)
		}
		seen[id.KeyString()] = struct{}{}

		payload, err := io.ReadAll(tr)
		if err != nil {
			return imported, err
		}
		if !cidutil.Verify(id, payload) {
			return imported, storage.ErrCIDMismatch
		}
		got, err := cas.Put(ctx, payload)
		if err != nil {
			return imported, err
		}
		if !got.Equals(id) {
			return imported, storage.ErrCIDMismatch
		}
		imported = append(imported, id)
	}
}

type index struct {
	Version   int           `json:"version"`
	CIDCodec  string        `json:"cidCodec"`
	Multihash string        `json:"multihash"`
	Objects   []indexObject `json:"objects"`
	Labels    []indexLabel  `json:"labels,omitempty"`
}

type indexObject struct {
	CID  string `json:"cid"`
	Size int    `json:"size"`
}

type indexLabel struct {
	Name string `json:"name"`
	CID  string `json:"cid"`
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
		Format:   tar.FormatUSTAR,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := tw.Write(content)
	return err
}

func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}
	parts := strings.Split(name, "/")
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}
