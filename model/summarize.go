package model

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"xdao.co/c2paview/manifest"
	"xdao.co/c2paview/reader"
	"xdao.co/c2paview/receipt"
	"xdao.co/c2paview/summary"
)

type SummarizeOptions struct {
	Reader reader.Reader
	Logger *zap.Logger

	DateFormatter summary.DateFormatter
	Types         manifest.TypeClassifier
	Agents        manifest.AgentClassifier

	// ThumbnailURL maps a thumbnail CID to the reference shown in details.
	// Nil passes the CID through.
	ThumbnailURL func(cid string) string

	ReceiptOptions receipt.Options
}

// Result is the Go-friendly view of one summary evaluation.
type Result struct {
	Store      *manifest.Store
	Source     *reader.Source
	Projection summary.Projection
	Details    *summary.ManifestDetails

	// Receipt is set when the request asked for one.
	Receipt *receipt.Document
}

// Evaluate reads the snapshot and runs the projections the request asks for.
// Details are computed for every store in the manifest state.
func Evaluate(ctx context.Context, req SummaryRequest, opts SummarizeOptions) (*Result, error) {
	if strings.TrimSpace(req.SnapshotCID) == "" {
		return nil, NewError(ErrInvalidRequest, "missing snapshotCID")
	}
	if opts.Reader == nil {
		return nil, NewError(ErrMissingCAS, "no reader configured")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store, src, err := opts.Reader.Read(ctx, req.SnapshotCID)
	if err != nil {
		return nil, AsCodedError(err)
	}

	p := summary.Project(store, summary.Options{
		HideContentSummary: req.HideContentSummary,
		Types:              opts.Types,
		Agents:             opts.Agents,
		Logger:             logger,
	})

	thumb := ""
	if src != nil && src.ThumbnailCID != "" {
		thumb = src.ThumbnailCID
		if opts.ThumbnailURL != nil {
			thumb = opts.ThumbnailURL(src.ThumbnailCID)
		}
	}
	// The error tag is terminal: nothing else is read from an error store.
	var d *summary.ManifestDetails
	if p.State == summary.StateManifest {
		d, err = summary.Details(store, summary.DetailsOptions{DateFormatter: opts.DateFormatter, ThumbnailRef: thumb})
		if err != nil {
			return nil, AsCodedError(err)
		}
	}

	res := &Result{Store: store, Source: src, Projection: p, Details: d}
	if req.IncludeReceipt {
		in := receipt.Inputs{SnapshotCID: req.SnapshotCID}
		if src != nil {
			in.SourceFormat = src.Format
		}
		if d != nil {
			in.Validation = d.Validation
		}
		b, id, err := receipt.RenderWithCID(p, in, opts.ReceiptOptions)
		if err != nil {
			return nil, NewError(ErrInternal, err.Error())
		}
		res.Receipt = &receipt.Document{Bytes: b, CID: id}
	}
	logger.Info("summary evaluated",
		zap.String("snapshot_cid", req.SnapshotCID),
		zap.String("state", string(p.State)),
		zap.Int("sections", len(p.Sections)),
	)
	return res, nil
}

// Summarize evaluates req and returns the JSON boundary response.
func Summarize(ctx context.Context, req SummaryRequest, opts SummarizeOptions) (*SummaryResponse, error) {
	res, err := Evaluate(ctx, req, opts)
	if err != nil {
		return nil, err
	}
	resp := &SummaryResponse{
		SnapshotCID: req.SnapshotCID,
		State:       string(res.Projection.State),
		Sections:    FromProjection(res.Projection),
	}
	if req.IncludeDetails {
		resp.Details = FromDetails(res.Details)
	}
	if res.Receipt != nil {
		resp.Receipt = &ReceiptDocument{Bytes: res.Receipt.Bytes, CID: res.Receipt.CID}
	}
	return resp, nil
}

// FromProjection converts sections to DTOs, preserving order.
func FromProjection(p summary.Projection) []Section {
	out := make([]Section, 0, len(p.Sections))
	for _, s := range p.Sections {
		dto := Section{Kind: string(s.Kind())}
		switch v := s.(type) {
		case summary.ContentSummary:
			dto.GenerativeType = string(v.Type)
		case summary.ProducedBy:
			dto.Name = v.Name
		case summary.ProducedWith:
			dto.ClaimGenerator = manifest.DisplayClaimGenerator(v.ClaimGenerator)
		case summary.SocialMedia:
			for _, a := range v.Accounts {
				dto.Accounts = append(dto.Accounts, SocialAccount{Name: a.Name, URL: a.URL, Provider: a.Provider})
			}
		case summary.AIToolUsed:
			dto.Agents = append([]string(nil), v.Agents...)
		case summary.Web3:
			dto.Ethereum = append([]string(nil), v.Web3.Ethereum...)
			dto.Solana = append([]string(nil), v.Web3.Solana...)
		}
		out = append(out, dto)
	}
	return out
}

// FromDetails converts the details view; nil stays nil.
func FromDetails(d *summary.ManifestDetails) *Details {
	if d == nil {
		return nil
	}
	out := &Details{
		Title:           d.Title,
		Format:          d.Format,
		ClaimGenerator:  d.ClaimGenerator,
		Producer:        d.Producer,
		Thumbnail:       d.Thumbnail,
		Ingredients:     d.Ingredients,
		SignatureIssuer: d.SignatureIssuer,
		SignatureDate:   d.SignatureDate,
		Validation:      make([]ValidationRow, 0, len(d.Validation)),
	}
	for _, v := range d.Validation {
		out.Validation = append(out.Validation, ValidationRow{Code: v.Code, Explanation: v.Explanation, URL: v.URL})
	}
	return out
}
