package summary

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"xdao.co/c2paview/manifest"
)

func TestDetails_NoManifest(t *testing.T) {
	d, err := Details(&manifest.Store{}, DetailsOptions{})
	if err != nil || d != nil {
		t.Fatalf("expected (nil, nil), got (%+v, %v)", d, err)
	}
}

func TestDetails_Full(t *testing.T) {
	s := &manifest.Store{
		ActiveManifest: &manifest.Manifest{
			Title:          "photo.jpg",
			Format:         "image/jpeg",
			ClaimGenerator: "TrustedApp/3.0 (MacOS)",
			Ingredients:    []manifest.Ingredient{{Title: "X"}, {Title: "Y"}},
			SignatureInfo:  &manifest.SignatureInfo{Issuer: "Test CA", Time: "2022-09-21T14:50:58+00:00"},
			Producer:       &manifest.Producer{Name: "Acme"},
		},
		ValidationStatus: []manifest.ValidationStatus{
			{Code: "A", Explanation: "first", URL: "u1"},
			{Code: "B", Explanation: "second", URL: "u2"},
		},
	}
	var formatted time.Time
	d, err := Details(s, DetailsOptions{
		ThumbnailRef: "bafy-thumb",
		DateFormatter: func(t time.Time) string {
			formatted = t
			return "formatted"
		},
	})
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if !formatted.Equal(time.Date(2022, 9, 21, 14, 50, 58, 0, time.UTC)) {
		t.Fatalf("formatter received %s", formatted)
	}
	want := &ManifestDetails{
		Title:           "photo.jpg",
		Format:          "image/jpeg",
		ClaimGenerator:  "TrustedApp/3.0",
		Producer:        "Acme",
		Thumbnail:       "bafy-thumb",
		Ingredients:     "X, Y",
		SignatureIssuer: "Test CA",
		SignatureDate:   "formatted",
		Validation:      s.ValidationStatus,
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Fatalf("details mismatch (-want +got):\n%s", diff)
	}
}

func TestDetails_Fallbacks(t *testing.T) {
	s := &manifest.Store{ActiveManifest: &manifest.Manifest{ClaimGenerator: "Foo/1.0"}}
	d, err := Details(s, DetailsOptions{})
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if d.Producer != manifest.UnknownProducer {
		t.Fatalf("expected Unknown producer, got %q", d.Producer)
	}
	if d.SignatureDate != manifest.NoDateAvailable {
		t.Fatalf("expected no-date marker, got %q", d.SignatureDate)
	}
	if d.ClaimGenerator != "Foo/1.0" || d.Ingredients != "" || len(d.Validation) != 0 {
		t.Fatalf("unexpected details: %+v", d)
	}
}

func TestDetails_InvalidDatePropagates(t *testing.T) {
	s := &manifest.Store{ActiveManifest: &manifest.Manifest{
		SignatureInfo: &manifest.SignatureInfo{Issuer: "CA", Time: "not-a-date"},
	}}
	d, err := Details(s, DetailsOptions{})
	if err == nil {
		t.Fatalf("expected error, got %+v", d)
	}
	if !manifest.IsKind(err, manifest.KindDateParse) {
		t.Fatalf("expected KindDateParse, got %v", err)
	}
}

func TestDefaultDateFormatter(t *testing.T) {
	got := DefaultDateFormatter(time.Date(2022, 9, 21, 23, 0, 0, 0, time.FixedZone("x", -3600)))
	if got != "Sep 22, 2022" {
		t.Fatalf("unexpected format %q", got)
	}
}
