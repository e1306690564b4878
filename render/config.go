// Package render draws summary projections as HTML (templ components) and
// plain text.
package render

import (
	"go.uber.org/zap"

	"xdao.co/c2paview/summary"
)

// Config carries the display options a host passes to the summary view.
type Config struct {
	DateFormatter      summary.DateFormatter
	HideContentSummary bool

	// ViewMoreURL is the target of the "view more" link. Empty disables it.
	ViewMoreURL string
}

// ProjectOptions returns the projection options implied by cfg.
func (c Config) ProjectOptions(logger *zap.Logger) summary.Options {
	return summary.Options{HideContentSummary: c.HideContentSummary, Logger: logger}
}

// DetailsOptions returns the details options implied by cfg.
func (c Config) DetailsOptions(thumbnailRef string) summary.DetailsOptions {
	return summary.DetailsOptions{DateFormatter: c.DateFormatter, ThumbnailRef: thumbnailRef}
}

func headerKey(k summary.Kind) string {
	switch k {
	case summary.KindContentSummary:
		return "content-summary.header"
	case summary.KindProducedBy:
		return "produced-by.header"
	case summary.KindProducedWith:
		return "produced-with.header"
	case summary.KindSocialMedia:
		return "social-media.header"
	case summary.KindAIToolUsed:
		return "ai-tool-used.header"
	case summary.KindWeb3:
		return "web3.header"
	}
	return string(k)
}
