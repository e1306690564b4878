package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"xdao.co/c2paview/i18n"
	"xdao.co/c2paview/manifest"
	"xdao.co/c2paview/summary"
)

// WriteText writes a plain-text rendering of p, one section per block.
func WriteText(w io.Writer, p summary.Projection, cfg Config, loc i18n.Localizer) error {
	var b strings.Builder
	switch p.State {
	case summary.StateNoManifest:
		b.WriteString(loc.Message("manifest-summary.noProvenance") + "\n")
	case summary.StateError:
		b.WriteString(loc.Message("manifest-summary.error") + "\n")
	default:
		for _, s := range p.Sections {
			if cfg.HideContentSummary && s.Kind() == summary.KindContentSummary {
				continue
			}
			b.WriteString(loc.Message(headerKey(s.Kind())) + "\n")
			for _, line := range sectionLines(s, loc) {
				b.WriteString("  " + line + "\n")
			}
		}
	}
	if p.State != summary.StateNoManifest && cfg.ViewMoreURL != "" {
		fmt.Fprintf(&b, "%s: %s\n", loc.Message("manifest-summary.viewMore"), cfg.ViewMoreURL)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func sectionLines(s summary.Section, loc i18n.Localizer) []string {
	switch v := s.(type) {
	case summary.ContentSummary:
		return []string{loc.Message("content-summary." + string(v.Type))}
	case summary.ProducedBy:
		return []string{v.Name}
	case summary.ProducedWith:
		return []string{manifest.DisplayClaimGenerator(v.ClaimGenerator)}
	case summary.SocialMedia:
		out := make([]string, 0, len(v.Accounts))
		for _, a := range v.Accounts {
			switch {
			case a.Name != "" && a.URL != "":
				out = append(out, a.Name+" <"+a.URL+">")
			case a.Name != "":
				out = append(out, a.Name)
			default:
				out = append(out, a.URL)
			}
		}
		return out
	case summary.AIToolUsed:
		return append([]string(nil), v.Agents...)
	case summary.Web3:
		var out []string
		for _, a := range v.Web3.Ethereum {
			out = append(out, loc.Message("web3.ethereum")+": "+a)
		}
		for _, a := range v.Web3.Solana {
			out = append(out, loc.Message("web3.solana")+": "+a)
		}
		return out
	}
	return nil
}

// WriteDetailsText writes the details table as aligned key/value columns.
func WriteDetailsText(w io.Writer, d *summary.ManifestDetails, loc i18n.Localizer) error {
	if d == nil {
		_, err := fmt.Fprintln(w, loc.Message("manifest-summary.noProvenance"))
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, row := range detailRows(d) {
		fmt.Fprintf(tw, "%s\t%s\n", loc.Message(row.key), row.value)
	}
	for _, v := range d.Validation {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", v.Code, v.Explanation, v.URL)
	}
	return tw.Flush()
}
