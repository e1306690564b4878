package manifest

import (
	"testing"
	"time"
)

func TestParseSignatureTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2022-09-21T14:50:58+00:00", time.Date(2022, 9, 21, 14, 50, 58, 0, time.UTC)},
		{"2022-09-21T14:50:58.123Z", time.Date(2022, 9, 21, 14, 50, 58, 123000000, time.UTC)},
		{"2022-09-21T14:50:58+0000", time.Date(2022, 9, 21, 14, 50, 58, 0, time.UTC)},
		{"2022-09-21T14:50:58", time.Date(2022, 9, 21, 14, 50, 58, 0, time.UTC)},
		{"2022-09-21", time.Date(2022, 9, 21, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := ParseSignatureTime(tc.in)
		if err != nil {
			t.Fatalf("ParseSignatureTime(%q): %v", tc.in, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("ParseSignatureTime(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestParseSignatureTime_Invalid(t *testing.T) {
	for _, in := range []string{"not-a-date", "", "2022-13-40"} {
		_, err := ParseSignatureTime(in)
		if err == nil {
			t.Fatalf("ParseSignatureTime(%q): expected error", in)
		}
		if !IsKind(err, KindDateParse) {
			t.Fatalf("ParseSignatureTime(%q): expected KindDateParse, got %v", in, err)
		}
	}
}
