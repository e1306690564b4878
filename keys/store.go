package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

const signerExt = ".signer"

// ErrSignerNotFound is returned when a store holds no signer for a Ref.
var ErrSignerNotFound = errors.New("keys: signer not found")

// Ref names a stored receipt signer: a root name and an optional derived
// role. Its string form is "name" or "name/role".
type Ref struct {
	Name string
	Role string
}

// ParseRef parses "name" or "name/role".
func ParseRef(s string) (Ref, error) {
	name, role, hasRole := strings.Cut(strings.TrimSpace(s), "/")
	if hasRole && role == "" {
		return Ref{}, fmt.Errorf("signer role: empty name in %q", s)
	}
	r := Ref{Name: name, Role: role}
	if err := r.Validate(); err != nil {
		return Ref{}, err
	}
	return r, nil
}

func (r Ref) String() string {
	if r.Role == "" {
		return r.Name
	}
	return r.Name + "/" + r.Role
}

func (r Ref) Validate() error {
	if err := CheckName(r.Name); err != nil {
		return fmt.Errorf("signer name: %w", err)
	}
	if r.Role != "" {
		if err := CheckName(r.Role); err != nil {
			return fmt.Errorf("signer role: %w", err)
		}
	}
	return nil
}

// CheckName accepts ASCII letters, digits, '-' and '_'.
func CheckName(s string) error {
	if s == "" {
		return errors.New("empty name")
	}
	for _, c := range s {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in %q", c, s)
	}
	return nil
}

// ParseSeedHex decodes a 32-byte seed written as hex, with an optional 0x.
func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimPrefix(strings.TrimSpace(seedHex), "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(data))
	}
	return data, nil
}

// Signer is a receipt signing seed bound to its algorithm. Both ed25519 and
// dilithium3 expand the same 32-byte seed.
type Signer struct {
	Ref  Ref
	Alg  string
	seed []byte
}

func NewSigner(alg string, seed []byte) (*Signer, error) {
	switch alg {
	case AlgEd25519, AlgDilithium3:
	default:
		return nil, fmt.Errorf("unsupported signature algorithm %q", alg)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Signer{Alg: alg, seed: append([]byte(nil), seed...)}, nil
}

// SignerKey returns the value a receipt signed by s carries in Signer-Key.
func (s *Signer) SignerKey() (string, error) {
	if s.Alg == AlgDilithium3 {
		pub, _, err := Dilithium3KeyFromSeed(s.seed)
		if err != nil {
			return "", err
		}
		return EncodeDilithium3PublicKey(pub)
	}
	return SignerKeyFromSeed(s.seed)
}

// Ed25519 returns the private key, or nil for a dilithium3 signer.
func (s *Signer) Ed25519() ed25519.PrivateKey {
	if s.Alg != AlgEd25519 {
		return nil
	}
	return ed25519.NewKeyFromSeed(s.seed)
}

// Dilithium3 returns the private key, or nil for an ed25519 signer.
func (s *Signer) Dilithium3() (*mode3.PrivateKey, error) {
	if s.Alg != AlgDilithium3 {
		return nil, nil
	}
	_, priv, err := Dilithium3KeyFromSeed(s.seed)
	return priv, err
}

func (s *Signer) marshal() []byte {
	return []byte("Alg: " + s.Alg + "\nSeed: " + hex.EncodeToString(s.seed) + "\n")
}

// ReadSignerFile loads a signer file. A file holding only a hex seed is read
// as an ed25519 signer.
func ReadSignerFile(path string) (*Signer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseSigner(string(b))
}

func parseSigner(doc string) (*Signer, error) {
	doc = strings.TrimSpace(doc)
	if !strings.Contains(doc, ":") {
		seed, err := ParseSeedHex(doc)
		if err != nil {
			return nil, err
		}
		return NewSigner(AlgEd25519, seed)
	}
	fields := map[string]string{}
	for _, line := range strings.Split(doc, "\n") {
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("signer file: malformed line %q", line)
		}
		k = strings.TrimSpace(k)
		if _, dup := fields[k]; dup {
			return nil, fmt.Errorf("signer file: duplicate %s", k)
		}
		fields[k] = strings.TrimSpace(v)
	}
	if len(fields) != 2 || fields["Alg"] == "" || fields["Seed"] == "" {
		return nil, errors.New("signer file: want exactly Alg and Seed")
	}
	seed, err := ParseSeedHex(fields["Seed"])
	if err != nil {
		return nil, fmt.Errorf("signer file: %w", err)
	}
	return NewSigner(fields["Alg"], seed)
}

// Store keeps receipt signers as files under Dir: "<name>.signer" for roots
// and "<name>@<role>.signer" for derived roles. Roles inherit the algorithm
// of their root.
type Store struct {
	Dir string
}

func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".xdao", "c2paview", "signers"), nil
}

// OpenStore returns the store at dir, or at DefaultDir when dir is empty.
func OpenStore(dir string) (*Store, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}
	return &Store{Dir: dir}, nil
}

func (st *Store) path(r Ref) string {
	name := r.Name
	if r.Role != "" {
		name += "@" + r.Role
	}
	return filepath.Join(st.Dir, name+signerExt)
}

// Create stores a root signer and returns it with its file path.
func (st *Store) Create(name, alg string, seed []byte, overwrite bool) (*Signer, string, error) {
	r := Ref{Name: name}
	if err := r.Validate(); err != nil {
		return nil, "", err
	}
	s, err := NewSigner(alg, seed)
	if err != nil {
		return nil, "", err
	}
	s.Ref = r
	p, err := st.write(s, overwrite)
	return s, p, err
}

// Derive stores the role signer derived from the root signer name.
func (st *Store) Derive(name, role string, overwrite bool) (*Signer, string, error) {
	r := Ref{Name: name, Role: role}
	if role == "" {
		return nil, "", errors.New("signer role: empty name")
	}
	if err := r.Validate(); err != nil {
		return nil, "", err
	}
	root, err := st.Load(Ref{Name: name})
	if err != nil {
		return nil, "", err
	}
	seed, err := DeriveRoleSeed(root.seed, role)
	if err != nil {
		return nil, "", err
	}
	s := &Signer{Ref: r, Alg: root.Alg, seed: seed}
	p, err := st.write(s, overwrite)
	return s, p, err
}

func (st *Store) write(s *Signer, overwrite bool) (string, error) {
	p := st.path(s.Ref)
	if err := os.MkdirAll(st.Dir, 0o700); err != nil {
		return "", err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(p, flags, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("signer %s already exists", s.Ref)
		}
		return "", err
	}
	if _, err := f.Write(s.marshal()); err != nil {
		_ = f.Close()
		return "", err
	}
	return p, f.Close()
}

// Load reads the signer named by r.
func (st *Store) Load(r Ref) (*Signer, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	s, err := ReadSignerFile(st.path(r))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSignerNotFound, r)
	}
	if err != nil {
		return nil, fmt.Errorf("signer %s: %w", r, err)
	}
	s.Ref = r
	return s, nil
}

// List returns every stored signer ordered by Ref string. Files that do not
// follow the naming scheme are skipped.
func (st *Store) List() ([]*Signer, error) {
	entries, err := os.ReadDir(st.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []*Signer
	for _, e := range entries {
		base, ok := strings.CutSuffix(e.Name(), signerExt)
		if e.IsDir() || !ok {
			continue
		}
		name, role, _ := strings.Cut(base, "@")
		r := Ref{Name: name, Role: role}
		if r.Validate() != nil {
			continue
		}
		s, err := st.Load(r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref.String() < out[j].Ref.String() })
	return out, nil
}

// Lookup finds the stored signer whose key matches a receipt Signer-Key.
func (st *Store) Lookup(signerKey string) (*Signer, bool, error) {
	all, err := st.List()
	if err != nil {
		return nil, false, err
	}
	for _, s := range all {
		k, err := s.SignerKey()
		if err != nil {
			return nil, false, err
		}
		if k == signerKey {
			return s, true, nil
		}
	}
	return nil, false, nil
}
