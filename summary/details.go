package summary

import (
	"time"

	"xdao.co/c2paview/manifest"
)

// DateFormatter renders a parsed signing time for display.
type DateFormatter func(time.Time) string

// DefaultDateFormatter renders the UTC calendar date, e.g. "Sep 21, 2022".
func DefaultDateFormatter(t time.Time) string {
	return t.UTC().Format("Jan 2, 2006")
}

// DetailsOptions controls Details.
type DetailsOptions struct {
	DateFormatter DateFormatter

	// ThumbnailRef is an opaque reference to the asset thumbnail supplied by
	// the reader; it is passed through unchanged.
	ThumbnailRef string
}

// ManifestDetails is the flat property view of the active manifest.
type ManifestDetails struct {
	Title           string
	Format          string
	ClaimGenerator  string
	Producer        string
	Thumbnail       string
	Ingredients     string
	SignatureIssuer string
	SignatureDate   string
	Validation      []manifest.ValidationStatus
}

// Details projects the active manifest onto display properties.
//
// It returns (nil, nil) when the store has no active manifest. A malformed
// signing time is returned as a manifest.KindDateParse error.
func Details(store *manifest.Store, opts DetailsOptions) (*ManifestDetails, error) {
	if store == nil || store.ActiveManifest == nil {
		return nil, nil
	}
	format := opts.DateFormatter
	if format == nil {
		format = DefaultDateFormatter
	}
	m := store.ActiveManifest

	date, err := signatureDate(m, format)
	if err != nil {
		return nil, err
	}
	d := &ManifestDetails{
		Title:          m.Title,
		Format:         m.Format,
		ClaimGenerator: manifest.DisplayClaimGenerator(m.ClaimGenerator),
		Producer:       manifest.ProducerName(m),
		Thumbnail:      opts.ThumbnailRef,
		Ingredients:    manifest.JoinIngredients(m),
		SignatureDate:  date,
		Validation:     manifest.ValidationRows(store),
	}
	if m.SignatureInfo != nil {
		d.SignatureIssuer = m.SignatureInfo.Issuer
	}
	return d, nil
}

func signatureDate(m *manifest.Manifest, format DateFormatter) (string, error) {
	if m.SignatureInfo == nil || m.SignatureInfo.Time == "" {
		return manifest.NoDateAvailable, nil
	}
	t, err := manifest.ParseSignatureTime(m.SignatureInfo.Time)
	if err != nil {
		return "", err
	}
	return format(t), nil
}
