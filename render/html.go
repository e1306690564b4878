package render

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"xdao.co/c2paview/i18n"
	"xdao.co/c2paview/manifest"
	"xdao.co/c2paview/summary"
)

type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) attr(name, value string) {
	h.raw(" " + name + "=\"" + templ.EscapeString(value) + "\"")
}

// url writes a URL attribute sanitized by templ.URL. Unsafe schemes such as
// javascript: become templ.FailedSanitizationURL.
func (h *htmlWriter) url(name, value string) {
	h.attr(name, string(templ.URL(value)))
}

// ManifestSummary renders the summary container for p.
func ManifestSummary(p summary.Projection, cfg Config, loc i18n.Localizer) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div class="manifest-summary"`)
		h.attr("data-state", string(p.State))
		h.raw(">")

		switch p.State {
		case summary.StateNoManifest:
			h.raw(`<p class="no-provenance">`)
			h.text(loc.Message("manifest-summary.noProvenance"))
			h.raw("</p>")
		case summary.StateError:
			h.raw(`<p class="error">`)
			h.text(loc.Message("manifest-summary.error"))
			h.raw("</p>")
		default:
			for _, s := range p.Sections {
				if cfg.HideContentSummary && s.Kind() == summary.KindContentSummary {
					continue
				}
				writeSection(h, s, loc)
			}
		}

		if p.State != summary.StateNoManifest {
			h.raw(`<div class="view-more">`)
			if cfg.ViewMoreURL != "" {
				h.raw("<a")
				h.url("href", cfg.ViewMoreURL)
				h.raw(` target="_blank" rel="noopener">`)
			} else {
				h.raw(`<a aria-disabled="true">`)
			}
			h.text(loc.Message("manifest-summary.viewMore"))
			h.raw("</a></div>")
		}
		h.raw("</div>")
		return h.err
	})
}

func writeSection(h *htmlWriter, s summary.Section, loc i18n.Localizer) {
	h.raw("<section")
	h.attr("class", string(s.Kind()))
	h.raw("><h3>")
	h.text(loc.Message(headerKey(s.Kind())))
	h.raw("</h3>")

	switch v := s.(type) {
	case summary.ContentSummary:
		h.raw("<p>")
		h.text(loc.Message("content-summary." + string(v.Type)))
		h.raw("</p>")
	case summary.ProducedBy:
		h.raw("<p>")
		h.text(v.Name)
		h.raw("</p>")
	case summary.ProducedWith:
		h.raw("<p>")
		h.text(manifest.DisplayClaimGenerator(v.ClaimGenerator))
		h.raw("</p>")
	case summary.SocialMedia:
		h.raw("<ul>")
		for _, a := range v.Accounts {
			h.raw("<li>")
			label := a.Name
			if label == "" {
				label = a.URL
			}
			if a.URL != "" {
				h.raw("<a")
				h.url("href", a.URL)
				h.raw(">")
				h.text(label)
				h.raw("</a>")
			} else {
				h.text(label)
			}
			h.raw("</li>")
		}
		h.raw("</ul>")
	case summary.AIToolUsed:
		h.raw("<ul>")
		for _, a := range v.Agents {
			h.raw("<li>")
			h.text(a)
			h.raw("</li>")
		}
		h.raw("</ul>")
	case summary.Web3:
		writeAddresses(h, loc.Message("web3.ethereum"), v.Web3.Ethereum)
		writeAddresses(h, loc.Message("web3.solana"), v.Web3.Solana)
	}
	h.raw("</section>")
}

func writeAddresses(h *htmlWriter, label string, addrs []string) {
	if len(addrs) == 0 {
		return
	}
	h.raw("<dl><dt>")
	h.text(label)
	h.raw("</dt>")
	for _, a := range addrs {
		h.raw("<dd>")
		h.text(a)
		h.raw("</dd>")
	}
	h.raw("</dl>")
}

// DetailsTable renders the active manifest property table. A nil d renders a
// single no-provenance row.
func DetailsTable(d *summary.ManifestDetails, loc i18n.Localizer) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<table class="manifest-details">`)
		if d == nil {
			h.raw(`<tr><td colspan="2">`)
			h.text(loc.Message("manifest-summary.noProvenance"))
			h.raw("</td></tr></table>")
			return h.err
		}
		for _, row := range detailRows(d) {
			h.raw("<tr><th>")
			h.text(loc.Message(row.key))
			h.raw("</th><td>")
			if row.key == "details.thumbnail" && row.value != "" {
				h.raw("<img")
				h.url("src", row.value)
				h.raw(` alt="">`)
			} else {
				h.text(row.value)
			}
			h.raw("</td></tr>")
		}
		for _, v := range d.Validation {
			h.raw(`<tr class="validation"><td>`)
			h.text(v.Code)
			h.raw("</td><td>")
			h.text(v.Explanation)
			if v.URL != "" {
				h.raw(" <a")
				h.url("href", v.URL)
				h.raw(">")
				h.text(loc.Message("details.url"))
				h.raw("</a>")
			}
			h.raw("</td></tr>")
		}
		h.raw("</table>")
		return h.err
	})
}

type detailRow struct {
	key   string
	value string
}

func detailRows(d *summary.ManifestDetails) []detailRow {
	return []detailRow{
		{"details.title", d.Title},
		{"details.format", d.Format},
		{"details.claimGenerator", d.ClaimGenerator},
		{"details.producer", d.Producer},
		{"details.thumbnail", d.Thumbnail},
		{"details.ingredients", d.Ingredients},
		{"details.signatureIssuer", d.SignatureIssuer},
		{"details.signatureDate", d.SignatureDate},
	}
}
