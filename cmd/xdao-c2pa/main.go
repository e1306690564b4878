package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ipfs/go-cid"
	"go.uber.org/zap"

	"xdao.co/c2paview/cidutil"
	"xdao.co/c2paview/i18n"
	"xdao.co/c2paview/internal/config"
	"xdao.co/c2paview/internal/logging"
	"xdao.co/c2paview/keys"
	"xdao.co/c2paview/model"
	"xdao.co/c2paview/reader"
	"xdao.co/c2paview/receipt"
	"xdao.co/c2paview/render"
	"xdao.co/c2paview/storage"
	"xdao.co/c2paview/storage/bundle"
	"xdao.co/c2paview/storage/casregistry"
	_ "xdao.co/c2paview/storage/grpccas"
	_ "xdao.co/c2paview/storage/ipfs"
	_ "xdao.co/c2paview/storage/localfs"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "put":
		return cmdPut(args[1:], out, errOut)
	case "summary":
		return cmdSummary(args[1:], out, errOut)
	case "details":
		return cmdDetails(args[1:], out, errOut)
	case "receipt":
		return cmdReceipt(args[1:], out, errOut)
	case "cid":
		return cmdCID(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "bundle":
		return cmdBundle(args[1:], out, errOut)
	case "backends":
		return cmdBackends(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "xdao-c2pa: C2PA manifest summary tool")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  xdao-c2pa put [--raw] <file>")
	fmt.Fprintln(w, "  xdao-c2pa summary --cid <cid> [--format text|html|json] [--hide-content-summary] [--locale <tag>] [--view-more-url <url>]")
	fmt.Fprintln(w, "  xdao-c2pa details --cid <cid> [--format text|html|json] [--locale <tag>]")
	fmt.Fprintln(w, "  xdao-c2pa receipt render --cid <cid> [--out <file>] [--signer <name[/role]> | --key-file <path> | --sig-alg ed25519|dilithium3 [--seed-hex <64hex>]]")
	fmt.Fprintln(w, "  xdao-c2pa receipt verify <file>")
	fmt.Fprintln(w, "  xdao-c2pa receipt cid <file>")
	fmt.Fprintln(w, "  xdao-c2pa cid <file>")
	fmt.Fprintln(w, "  xdao-c2pa key init|derive|list|export ...")
	fmt.Fprintln(w, "  xdao-c2pa bundle export --cid <cid> [--cid <cid> ...] --out <file.tar>")
	fmt.Fprintln(w, "  xdao-c2pa bundle import <file.tar>")
	fmt.Fprintln(w, "  xdao-c2pa backends")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Storage flags (put, summary, details, receipt render):")
	fmt.Fprintln(w, "  --backend <name>       CAS backend (default from C2PAVIEW_BACKEND, else localfs)")
	fmt.Fprintln(w, "  --localfs-dir <dir>    localfs root directory")
	fmt.Fprintln(w, "  --grpc-target <addr>   gRPC snapshot store target")
	fmt.Fprintln(w, "  --mirror-dir <dir>     localfs replica written alongside the backend")
}

// env carries what every storage-backed subcommand needs.
type env struct {
	cfg    config.Config
	logger *zap.Logger
	cas    storage.CAS
	close  func() error
}

type storageFlags struct {
	backend    string
	localfsDir string
	grpcTarget string
	mirrorDir  string
}

func (s *storageFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&s.backend, "backend", "", "CAS backend name (see 'xdao-c2pa backends')")
	fs.StringVar(&s.localfsDir, "localfs-dir", "", "localfs root directory")
	fs.StringVar(&s.grpcTarget, "grpc-target", "", "gRPC snapshot store target")
	fs.StringVar(&s.mirrorDir, "mirror-dir", "", "localfs replica written alongside the backend")
}

// open loads the environment configuration, applies flag overrides and opens
// the selected backend. Failures are reported on errOut.
func (s *storageFlags) open(ctx context.Context, errOut io.Writer) (*env, bool) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return nil, false
	}
	if s.backend != "" {
		cfg.Backend = s.backend
	}
	if s.localfsDir != "" {
		cfg.LocalFSDir = s.localfsDir
	}
	if s.grpcTarget != "" {
		cfg.GRPCTarget = s.grpcTarget
	}
	if s.mirrorDir != "" {
		cfg.MirrorDir = s.mirrorDir
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		fmt.Fprintf(errOut, "logging: %v\n", err)
		return nil, false
	}
	cas, closeFn, err := cfg.OpenCAS(ctx, casregistry.UsageCLI)
	if err != nil {
		fmt.Fprintf(errOut, "open backend: %v\n", err)
		_ = logger.Sync()
		return nil, false
	}
	return &env{cfg: cfg, logger: logger, cas: cas, close: closeFn}, true
}

func (e *env) Close() {
	_ = e.close()
	_ = e.logger.Sync()
}

func (e *env) summarizeOptions() model.SummarizeOptions {
	return model.SummarizeOptions{
		Reader: &reader.CASReader{CAS: e.cas, Logger: e.logger},
		Logger: e.logger,
	}
}

func (e *env) localizer(flagLocale string) i18n.Localizer {
	locale := e.cfg.Locale
	if flagLocale != "" {
		locale = flagLocale
	}
	return i18n.Default().Localizer(locale)
}

func reportError(errOut io.Writer, err error) int {
	ce := model.AsCodedError(err)
	fmt.Fprintf(errOut, "%s\n", ce.Error())
	if ce.Code == model.ErrInvalidRequest || ce.Code == model.ErrInvalidCID {
		return 2
	}
	return 1
}

func cmdPut(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var sf storageFlags
	var raw bool
	sf.register(fs)
	fs.BoolVar(&raw, "raw", false, "Store the file as raw bytes (e.g. a thumbnail) without snapshot validation")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: xdao-c2pa put [--raw] <file>")
		return 2
	}
	path := fs.Arg(0)
	b, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(path), err)
		return 1
	}

	ctx := context.Background()
	e, ok := sf.open(ctx, errOut)
	if !ok {
		return 1
	}
	defer e.Close()

	var id cid.Cid
	if raw {
		id, err = e.cas.Put(ctx, b)
	} else {
		id, err = reader.Ingest(ctx, e.cas, b)
	}
	if err != nil {
		fmt.Fprintf(errOut, "put: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, id.String())
	return 0
}

func cmdSummary(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var sf storageFlags
	var cidStr string
	var format string
	var hide bool
	var locale string
	var viewMore string
	sf.register(fs)
	fs.StringVar(&cidStr, "cid", "", "Snapshot CID")
	fs.StringVar(&format, "format", "text", "Output format: text, html or json")
	fs.BoolVar(&hide, "hide-content-summary", false, "Omit the content summary section")
	fs.StringVar(&locale, "locale", "", "Display locale (BCP 47 tag)")
	fs.StringVar(&viewMore, "view-more-url", "", "Target of the view-more link")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if cidStr == "" {
		fmt.Fprintln(errOut, "missing --cid")
		return 2
	}
	if !validFormat(format) {
		fmt.Fprintf(errOut, "invalid --format: %s\n", format)
		return 2
	}

	ctx := context.Background()
	e, ok := sf.open(ctx, errOut)
	if !ok {
		return 1
	}
	defer e.Close()

	req := model.SummaryRequest{SnapshotCID: cidStr, HideContentSummary: hide}
	if format == "json" {
		resp, err := model.Summarize(ctx, req, e.summarizeOptions())
		if err != nil {
			return reportError(errOut, err)
		}
		return writeJSON(out, errOut, resp)
	}

	res, err := model.Evaluate(ctx, req, e.summarizeOptions())
	if err != nil {
		return reportError(errOut, err)
	}
	cfg := render.Config{HideContentSummary: hide, ViewMoreURL: e.cfg.ViewMoreURL}
	if viewMore != "" {
		cfg.ViewMoreURL = viewMore
	}
	loc := e.localizer(locale)
	if format == "html" {
		err = render.ManifestSummary(res.Projection, cfg, loc).Render(ctx, out)
	} else {
		err = render.WriteText(out, res.Projection, cfg, loc)
	}
	if err != nil {
		fmt.Fprintf(errOut, "render: %v\n", err)
		return 1
	}
	return 0
}

func cmdDetails(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("details", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var sf storageFlags
	var cidStr string
	var format string
	var locale string
	sf.register(fs)
	fs.StringVar(&cidStr, "cid", "", "Snapshot CID")
	fs.StringVar(&format, "format", "text", "Output format: text, html or json")
	fs.StringVar(&locale, "locale", "", "Display locale (BCP 47 tag)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if cidStr == "" {
		fmt.Fprintln(errOut, "missing --cid")
		return 2
	}
	if !validFormat(format) {
		fmt.Fprintf(errOut, "invalid --format: %s\n", format)
		return 2
	}

	ctx := context.Background()
	e, ok := sf.open(ctx, errOut)
	if !ok {
		return 1
	}
	defer e.Close()

	res, err := model.Evaluate(ctx, model.SummaryRequest{SnapshotCID: cidStr, IncludeDetails: true}, e.summarizeOptions())
	if err != nil {
		return reportError(errOut, err)
	}
	loc := e.localizer(locale)
	switch format {
	case "json":
		return writeJSON(out, errOut, model.FromDetails(res.Details))
	case "html":
		err = render.DetailsTable(res.Details, loc).Render(ctx, out)
	default:
		err = render.WriteDetailsText(out, res.Details, loc)
	}
	if err != nil {
		fmt.Fprintf(errOut, "render: %v\n", err)
		return 1
	}
	return 0
}

func cmdReceipt(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printReceiptUsage(errOut)
		return 2
	}
	switch args[0] {
	case "render":
		return cmdReceiptRender(args[1:], out, errOut)
	case "verify":
		return cmdReceiptVerify(args[1:], out, errOut)
	case "cid":
		return cmdReceiptCID(args[1:], out, errOut)
	case "help", "-h", "--help":
		printReceiptUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown receipt subcommand: %s\n\n", args[0])
		printReceiptUsage(errOut)
		return 2
	}
}

func printReceiptUsage(w io.Writer) {
	fmt.Fprintln(w, "xdao-c2pa receipt: canonical summary receipts")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  xdao-c2pa receipt render --cid <cid> [--out <file>] [--generator-id <id>] [--rendered-at <RFC3339>]")
	fmt.Fprintln(w, "      [--sig-alg ed25519|dilithium3] [--hash-alg sha256|sha512|sha3-256]")
	fmt.Fprintln(w, "      [--signer <name[/role]> | --key-file <path> | --seed-hex <64hex>]")
	fmt.Fprintln(w, "  xdao-c2pa receipt verify <file>")
	fmt.Fprintln(w, "  xdao-c2pa receipt cid <file>")
}

func cmdReceiptRender(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("receipt render", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var sf storageFlags
	var cidStr string
	var outPath string
	var generatorID string
	var renderedAt string
	var sigAlg string
	var hashAlg string
	var seedHex string
	var signer string
	var keyFile string
	var hide bool
	sf.register(fs)
	fs.StringVar(&cidStr, "cid", "", "Snapshot CID")
	fs.StringVar(&outPath, "out", "", "Write the receipt to this file instead of stdout")
	fs.StringVar(&generatorID, "generator-id", "xdao-c2pa", "Generator-ID recorded in META")
	fs.StringVar(&renderedAt, "rendered-at", "", "Optional RFC3339 timestamp for META Rendered-At (omit for deterministic output)")
	fs.StringVar(&sigAlg, "sig-alg", "", "Signature algorithm: ed25519 or dilithium3 (defaults to the signer's)")
	fs.StringVar(&hashAlg, "hash-alg", keys.HashSHA256, "Hash algorithm used before signing")
	fs.StringVar(&seedHex, "seed-hex", "", "Signer seed as 64 hex chars")
	fs.StringVar(&signer, "signer", "", "Stored signer as name or name/role")
	fs.StringVar(&keyFile, "key-file", "", "Path to a signer file or bare hex seed")
	fs.BoolVar(&hide, "hide-content-summary", false, "Omit the content summary section")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if cidStr == "" {
		fmt.Fprintln(errOut, "missing --cid")
		return 2
	}

	opts := receipt.Options{GeneratorID: generatorID, SignatureAlg: sigAlg, HashAlg: hashAlg}
	if renderedAt != "" {
		t, err := time.Parse(time.RFC3339, renderedAt)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --rendered-at: %v\n", err)
			return 2
		}
		opts.RenderedAt = t
	}

	ctx := context.Background()
	e, ok := sf.open(ctx, errOut)
	if !ok {
		return 1
	}
	defer e.Close()

	sg, code := loadSigner(e, sigAlg, seedHex, signer, keyFile, errOut)
	if code != 0 {
		return code
	}
	if sg != nil {
		opts.SignatureAlg = sg.Alg
		opts.Ed25519Key = sg.Ed25519()
		priv, err := sg.Dilithium3()
		if err != nil {
			fmt.Fprintf(errOut, "load signer: %v\n", err)
			return 2
		}
		opts.Dilithium3Key = priv
	}

	so := e.summarizeOptions()
	so.ReceiptOptions = opts
	res, err := model.Evaluate(ctx, model.SummaryRequest{SnapshotCID: cidStr, HideContentSummary: hide, IncludeReceipt: true}, so)
	if err != nil {
		return reportError(errOut, err)
	}

	if outPath != "" {
		if err := os.WriteFile(outPath, res.Receipt.Bytes, 0o644); err != nil {
			fmt.Fprintf(errOut, "write %s: %v\n", filepath.Base(outPath), err)
			return 1
		}
		_, _ = fmt.Fprintln(out, res.Receipt.CID)
		return 0
	}
	_, _ = out.Write(res.Receipt.Bytes)
	return 0
}

// loadSigner resolves the receipt signer from, in order, a stored signer, a
// signer file, or a seed with --sig-alg (falling back to the configured seed).
// A nil signer with code 0 means the receipt stays unsigned.
func loadSigner(e *env, sigAlg, seedHex, signer, keyFile string, errOut io.Writer) (*keys.Signer, int) {
	var sg *keys.Signer
	var err error
	switch {
	case signer != "":
		var ref keys.Ref
		if ref, err = keys.ParseRef(signer); err != nil {
			fmt.Fprintf(errOut, "invalid --signer: %v\n", err)
			return nil, 2
		}
		var st *keys.Store
		if st, err = keys.OpenStore(""); err == nil {
			sg, err = st.Load(ref)
		}
	case keyFile != "":
		sg, err = keys.ReadSignerFile(keyFile)
	case seedHex != "" || sigAlg != "" || e.cfg.SignerSeedHex != "":
		if seedHex == "" {
			seedHex = e.cfg.SignerSeedHex
		}
		alg := sigAlg
		if alg == "" {
			alg = keys.AlgEd25519
		}
		var seed []byte
		if seed, err = keys.ParseSeedHex(seedHex); err == nil {
			sg, err = keys.NewSigner(alg, seed)
		}
	default:
		return nil, 0
	}
	if err != nil {
		fmt.Fprintf(errOut, "load signer: %v\n", err)
		return nil, 2
	}
	if sigAlg != "" && sigAlg != sg.Alg {
		fmt.Fprintf(errOut, "--sig-alg %s does not match signer algorithm %s\n", sigAlg, sg.Alg)
		return nil, 2
	}
	return sg, 0
}

func cmdReceiptVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("receipt verify", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var requireSigned bool
	fs.BoolVar(&requireSigned, "require-signed", false, "Fail when the receipt carries no signature")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: xdao-c2pa receipt verify [--require-signed] <file>")
		return 2
	}
	b, ok := readArg(fs.Arg(0), errOut)
	if !ok {
		return 1
	}
	signed, err := receipt.Verify(b)
	if err != nil {
		if errors.Is(err, keys.ErrSignatureInvalid) {
			fmt.Fprintln(errOut, "INVALID: signature does not match")
			return 1
		}
		fmt.Fprintf(errOut, "INVALID: %v\n", err)
		return 1
	}
	if !signed {
		if requireSigned {
			fmt.Fprintln(errOut, "INVALID: receipt is unsigned")
			return 1
		}
		_, _ = fmt.Fprintln(out, "OK (unsigned)")
		return 0
	}
	// Name the signer when it is one of ours.
	if key, err := receipt.SignerKey(b); err == nil {
		if st, err := keys.OpenStore(""); err == nil {
			if sg, ok, err := st.Lookup(key); err == nil && ok {
				_, _ = fmt.Fprintf(out, "OK (signer %s)\n", sg.Ref)
				return 0
			}
		}
	}
	_, _ = fmt.Fprintln(out, "OK")
	return 0
}

func cmdReceiptCID(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("receipt cid", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: xdao-c2pa receipt cid <file>")
		return 2
	}
	b, ok := readArg(fs.Arg(0), errOut)
	if !ok {
		return 1
	}
	id, err := receipt.CID(b)
	if err != nil {
		fmt.Fprintf(errOut, "receipt: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, id)
	return 0
}

func cmdCID(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("cid", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: xdao-c2pa cid <file>")
		return 2
	}
	b, ok := readArg(fs.Arg(0), errOut)
	if !ok {
		return 1
	}
	_, _ = fmt.Fprintln(out, cidutil.CIDv1RawSHA256(b))
	return 0
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func cmdBundle(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: xdao-c2pa bundle export|import ...")
		return 2
	}
	switch args[0] {
	case "export":
		return cmdBundleExport(args[1:], out, errOut)
	case "import":
		return cmdBundleImport(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown bundle subcommand: %s\n", args[0])
		return 2
	}
}

// cmdBundleExport writes each snapshot together with its thumbnail.
func cmdBundleExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("bundle export", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var sf storageFlags
	var cids stringList
	var outPath string
	var noIndex bool
	sf.register(fs)
	fs.Var(&cids, "cid", "Snapshot CID (repeatable)")
	fs.StringVar(&outPath, "out", "", "Bundle file to write")
	fs.BoolVar(&noIndex, "no-index", false, "Omit index.json")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if len(cids) == 0 {
		fmt.Fprintln(errOut, "missing --cid")
		return 2
	}
	if outPath == "" {
		fmt.Fprintln(errOut, "missing --out")
		return 2
	}

	ctx := context.Background()
	e, ok := sf.open(ctx, errOut)
	if !ok {
		return 1
	}
	defer e.Close()

	r := &reader.CASReader{CAS: e.cas, Logger: e.logger}
	var ids []cid.Cid
	labels := map[string]cid.Cid{}
	for _, ref := range cids {
		_, src, err := r.Read(ctx, ref)
		if err != nil {
			return reportError(errOut, err)
		}
		ids = append(ids, src.CID)
		if src.Name != "" {
			labels[src.Name] = src.CID
		}
		if src.ThumbnailCID == "" {
			continue
		}
		thumb, err := cidutil.Parse(src.ThumbnailCID)
		if err != nil {
			fmt.Fprintf(errOut, "snapshot %s: invalid thumbnail CID: %v\n", ref, err)
			return 1
		}
		if !e.cas.Has(ctx, thumb) {
			e.logger.Warn("thumbnail not in store; exporting snapshot without it", zap.String("snapshot_cid", ref), zap.String("thumbnail_cid", src.ThumbnailCID))
			continue
		}
		ids = append(ids, thumb)
	}

	f, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(errOut, "create %s: %v\n", filepath.Base(outPath), err)
		return 1
	}
	err = bundle.Export(ctx, f, e.cas, ids, bundle.ExportOptions{IncludeIndex: !noIndex, Labels: labels})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(errOut, "bundle export: %v\n", err)
		return 1
	}
	b, ok := readArg(outPath, errOut)
	if !ok {
		return 1
	}
	_, _ = fmt.Fprintln(out, cidutil.CIDv1RawSHA256(b))
	return 0
}

func cmdBundleImport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("bundle import", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var sf storageFlags
	var ignoreUnknown bool
	sf.register(fs)
	fs.BoolVar(&ignoreUnknown, "ignore-unknown", false, "Skip unrecognized archive entries")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: xdao-c2pa bundle import [--ignore-unknown] <file.tar>")
		return 2
	}
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "open %s: %v\n", filepath.Base(fs.Arg(0)), err)
		return 1
	}
	defer f.Close()

	ctx := context.Background()
	e, ok := sf.open(ctx, errOut)
	if !ok {
		return 1
	}
	defer e.Close()

	ids, err := bundle.Import(ctx, f, e.cas, bundle.ImportOptions{IgnoreUnknown: ignoreUnknown})
	if err != nil {
		fmt.Fprintf(errOut, "bundle import: %v\n", err)
		return 1
	}
	for _, id := range ids {
		_, _ = fmt.Fprintln(out, id.String())
	}
	return 0
}

func cmdBackends(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("backends", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	for _, b := range casregistry.List(casregistry.UsageCLI) {
		fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
	}
	return 0
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printKeyUsage(errOut)
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	case "derive":
		return cmdKeyDerive(args[1:], out, errOut)
	case "list":
		return cmdKeyList(args[1:], out, errOut)
	case "export":
		return cmdKeyExport(args[1:], out, errOut)
	case "help", "-h", "--help":
		printKeyUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n\n", args[0])
		printKeyUsage(errOut)
		return 2
	}
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "xdao-c2pa key: receipt signers")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  xdao-c2pa key init --name <name> [--alg ed25519|dilithium3] [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  xdao-c2pa key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  xdao-c2pa key list")
	fmt.Fprintln(w, "  xdao-c2pa key export --signer <name[/role]>")
}

func openSignerStore(errOut io.Writer) (*keys.Store, bool) {
	st, err := keys.OpenStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return nil, false
	}
	return st, true
}

func printSigner(out io.Writer, errOut io.Writer, verb string, sg *keys.Signer, path string) int {
	key, err := sg.SignerKey()
	if err != nil {
		fmt.Fprintf(errOut, "signer key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "%s signer: %s (%s)\n", verb, sg.Ref, sg.Alg)
	fmt.Fprintf(out, "Signer-Key: %s\n", key)
	fmt.Fprintf(out, "Stored at: %s\n", path)
	return 0
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key init", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	var alg string
	var seedHex string
	var force bool
	fs.StringVar(&name, "name", "", "Signer name (file under ~/.xdao/c2paview/signers)")
	fs.StringVar(&alg, "alg", keys.AlgEd25519, "Signature algorithm: ed25519 or dilithium3")
	fs.StringVar(&seedHex, "seed-hex", "", "Optional seed as 64 hex chars (for reproducible receipts)")
	fs.BoolVar(&force, "force", false, "Overwrite an existing signer")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	if err := keys.CheckName(name); err != nil {
		fmt.Fprintf(errOut, "invalid --name: %v\n", err)
		return 2
	}

	var seed []byte
	var err error
	if seedHex != "" {
		seed, err = keys.ParseSeedHex(seedHex)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", err)
			return 2
		}
	} else {
		seed = make([]byte, ed25519.SeedSize)
		if _, err := rand.Read(seed); err != nil {
			fmt.Fprintf(errOut, "rand: %v\n", err)
			return 1
		}
	}

	st, ok := openSignerStore(errOut)
	if !ok {
		return 1
	}
	sg, path, err := st.Create(name, alg, seed, force)
	if err != nil {
		fmt.Fprintf(errOut, "create signer: %v\n", err)
		return 1
	}
	return printSigner(out, errOut, "Created", sg, path)
}

func cmdKeyDerive(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key derive", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var from string
	var role string
	var force bool
	fs.StringVar(&from, "from", "", "Root signer name")
	fs.StringVar(&role, "role", "", "Role identifier (e.g. receipts, daemon)")
	fs.BoolVar(&force, "force", false, "Overwrite an existing role signer")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if from == "" || role == "" {
		fmt.Fprintln(errOut, "missing --from or --role")
		return 2
	}
	if err := (keys.Ref{Name: from, Role: role}).Validate(); err != nil {
		fmt.Fprintf(errOut, "invalid signer: %v\n", err)
		return 2
	}
	st, ok := openSignerStore(errOut)
	if !ok {
		return 1
	}
	sg, path, err := st.Derive(from, role, force)
	if err != nil {
		fmt.Fprintf(errOut, "derive signer: %v\n", err)
		return 1
	}
	return printSigner(out, errOut, "Derived", sg, path)
}

func cmdKeyList(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key list", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	st, ok := openSignerStore(errOut)
	if !ok {
		return 1
	}
	signers, err := st.List()
	if err != nil {
		fmt.Fprintf(errOut, "list signers: %v\n", err)
		return 1
	}
	for _, sg := range signers {
		fmt.Fprintf(out, "%s\t%s\n", sg.Ref, sg.Alg)
	}
	return 0
}

func cmdKeyExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key export", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var signer string
	fs.StringVar(&signer, "signer", "", "Stored signer as name or name/role")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	ref, err := keys.ParseRef(signer)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --signer: %v\n", err)
		return 2
	}
	st, ok := openSignerStore(errOut)
	if !ok {
		return 1
	}
	sg, err := st.Load(ref)
	if err != nil {
		fmt.Fprintf(errOut, "export signer: %v\n", err)
		return 1
	}
	key, err := sg.SignerKey()
	if err != nil {
		fmt.Fprintf(errOut, "export signer: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, key)
	return 0
}

func validFormat(f string) bool {
	switch f {
	case "text", "html", "json":
		return true
	}
	return false
}

func writeJSON(out io.Writer, errOut io.Writer, v any) int {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(errOut, "encode: %v\n", err)
		return 1
	}
	return 0
}

func readArg(path string, errOut io.Writer) ([]byte, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(path), err)
		return nil, false
	}
	return b, true
}
