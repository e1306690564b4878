// Package receipt renders a summary projection as a canonical, optionally
// signed text document that can be stored by CID and re-verified later.
package receipt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"xdao.co/c2paview/keys"
	"xdao.co/c2paview/manifest"
	"xdao.co/c2paview/summary"
)

const (
	Preamble  = "-----BEGIN XDAO SUMMARY-----"
	Postamble = "-----END XDAO SUMMARY-----"

	SpecID = "xdao-c2pa-summary-1"

	signaturePlaceholder = "Signature: 0"
)

// Inputs binds a receipt to the snapshot it summarizes.
type Inputs struct {
	SnapshotCID  string
	SourceFormat string
	Validation   []manifest.ValidationStatus
}

// Options controls rendering and signing.
type Options struct {
	GeneratorID string
	RenderedAt  time.Time // informational only; zero means omit

	// SignatureAlg selects signing: "" (unsigned), ed25519 or dilithium3.
	SignatureAlg string
	// HashAlg defaults to sha256 when signing.
	HashAlg string

	Ed25519Key    ed25519.PrivateKey
	Dilithium3Key *mode3.PrivateKey
}

// Render produces a canonical receipt for p. Sections appear in projection
// order; META and CRYPTO lines are sorted.
func Render(p summary.Projection, in Inputs, opts Options) ([]byte, error) {
	if strings.TrimSpace(in.SnapshotCID) == "" {
		return nil, errors.New("receipt: snapshot cid is required")
	}
	generator := opts.GeneratorID
	if generator == "" {
		generator = "xdao-c2paview"
	}

	signerKey, hashAlg, err := signerFor(opts)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString(Preamble + "\n")

	// META
	meta := []string{
		field("Generator", generator),
		field("Spec", SpecID),
		field("Version", "1"),
	}
	if !opts.RenderedAt.IsZero() {
		meta = append(meta, field("Rendered-At", opts.RenderedAt.UTC().Format(time.RFC3339)))
	}
	writeSection(&sb, "META", sortedNonEmpty(meta))

	// INPUTS
	writeSection(&sb, "INPUTS", nonEmpty([]string{
		field("Snapshot-CID", in.SnapshotCID),
		field("Source-Format", in.SourceFormat),
	}))

	// RESULT
	writeSection(&sb, "RESULT", []string{field("State", string(p.State))})

	// SECTIONS
	var secLines []string
	for _, s := range p.Sections {
		secLines = append(secLines, field("Section", string(s.Kind())))
		secLines = append(secLines, nonEmpty(sectionFields(s))...)
	}
	writeSection(&sb, "SECTIONS", secLines)

	// VALIDATION
	var valLines []string
	for _, v := range in.Validation {
		code := clean(v.Code)
		if code == "" {
			code = "-"
		}
		valLines = append(valLines, field("Code", code))
		valLines = append(valLines, nonEmpty([]string{
			field("Explanation", v.Explanation),
			field("URL", v.URL),
		})...)
	}
	writeSection(&sb, "VALIDATION", valLines)

	// CRYPTO
	var cryptoLines []string
	if signerKey != "" {
		cryptoLines = []string{
			field("Hash-Alg", hashAlg),
			field("Signature-Alg", opts.SignatureAlg),
			field("Signer-Key", signerKey),
			signaturePlaceholder,
		}
		sort.Strings(cryptoLines)
	}
	writeSection(&sb, "CRYPTO", cryptoLines)

	sb.WriteString(Postamble + "\n")
	out := []byte(sb.String())

	if signerKey == "" {
		return out, nil
	}
	scope, err := signatureScope(out)
	if err != nil {
		return nil, err
	}
	var sig string
	switch opts.SignatureAlg {
	case keys.AlgEd25519:
		sig, err = keys.SignEd25519(scope, hashAlg, opts.Ed25519Key)
	case keys.AlgDilithium3:
		sig, err = keys.SignDilithium3(scope, hashAlg, opts.Dilithium3Key)
	}
	if err != nil {
		return nil, fmt.Errorf("receipt: sign: %w", err)
	}
	return []byte(strings.Replace(string(out), signaturePlaceholder, "Signature: "+sig, 1)), nil
}

// RenderWithCID renders a receipt and returns its CID.
func RenderWithCID(p summary.Projection, in Inputs, opts Options) ([]byte, string, error) {
	b, err := Render(p, in, opts)
	if err != nil {
		return nil, "", err
	}
	id, err := CID(b)
	if err != nil {
		return nil, "", err
	}
	return b, id, nil
}

func signerFor(opts Options) (signerKey, hashAlg string, err error) {
	if opts.SignatureAlg == "" {
		return "", "", nil
	}
	hashAlg = opts.HashAlg
	if hashAlg == "" {
		hashAlg = keys.HashSHA256
	}
	if _, err := keys.Digest(hashAlg, nil); err != nil {
		return "", "", fmt.Errorf("receipt: %w", err)
	}
	switch opts.SignatureAlg {
	case keys.AlgEd25519:
		if len(opts.Ed25519Key) != ed25519.PrivateKeySize {
			return "", "", errors.New("receipt: ed25519 signing requires a private key")
		}
		signerKey, err = keys.SignerKeyFromPublicKey(opts.Ed25519Key.Public().(ed25519.PublicKey))
	case keys.AlgDilithium3:
		if opts.Dilithium3Key == nil {
			return "", "", errors.New("receipt: dilithium3 signing requires a private key")
		}
		signerKey, err = keys.EncodeDilithium3PublicKey(opts.Dilithium3Key.Public().(*mode3.PublicKey))
	default:
		return "", "", fmt.Errorf("receipt: unsupported signature algorithm %q", opts.SignatureAlg)
	}
	return signerKey, hashAlg, err
}

func sectionFields(s summary.Section) []string {
	switch v := s.(type) {
	case summary.ContentSummary:
		return []string{field("Generative-Type", string(v.Type))}
	case summary.ProducedBy:
		return []string{field("Name", v.Name)}
	case summary.ProducedWith:
		return []string{field("Claim-Generator", manifest.DisplayClaimGenerator(v.ClaimGenerator))}
	case summary.SocialMedia:
		out := make([]string, 0, len(v.Accounts))
		for _, a := range v.Accounts {
			if a.URL != "" {
				out = append(out, field("Account", a.URL))
			} else {
				out = append(out, field("Account", a.Name))
			}
		}
		return out
	case summary.AIToolUsed:
		out := make([]string, 0, len(v.Agents))
		for _, a := range v.Agents {
			out = append(out, field("Agent", a))
		}
		return out
	case summary.Web3:
		var out []string
		for _, a := range v.Web3.Ethereum {
			out = append(out, field("Ethereum", a))
		}
		for _, a := range v.Web3.Solana {
			out = append(out, field("Solana", a))
		}
		return out
	}
	return nil
}

func writeSection(sb *strings.Builder, name string, lines []string) {
	sb.WriteString(name + "\n")
	for _, l := range lines {
		sb.WriteString(l + "\n")
	}
	sb.WriteString("\n")
}

// field renders "Key: value" with the value folded onto one line. An empty
// value yields "".
func field(key, value string) string {
	value = clean(value)
	if value == "" {
		return ""
	}
	return key + ": " + value
}

func clean(s string) string {
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ").Replace(s)
	return strings.TrimSpace(s)
}

func nonEmpty(lines []string) []string {
	out := lines[:0:0]
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func sortedNonEmpty(lines []string) []string {
	out := nonEmpty(lines)
	sort.Strings(out)
	return out
}

// signatureScope returns the receipt bytes without the Signature: line.
func signatureScope(b []byte) ([]byte, error) {
	lines := strings.Split(string(b), "\n")
	out := make([]string, 0, len(lines))
	removed := false
	for _, l := range lines {
		if strings.HasPrefix(l, "Signature: ") {
			if removed {
				return nil, errors.New("receipt: multiple Signature lines")
			}
			removed = true
			continue
		}
		out = append(out, l)
	}
	if !removed {
		return nil, errors.New("receipt: missing Signature line")
	}
	return []byte(strings.Join(out, "\n")), nil
}
