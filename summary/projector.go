// Package summary projects a validated manifest store onto the ordered set of
// display sections a manifest summary renders.
//
// Project is pure: it reads only its argument, allocates fresh output and may
// be called concurrently. Tracker adds the explicit state-update boundary used
// by long-lived views.
package summary

import (
	"go.uber.org/zap"

	"xdao.co/c2paview/manifest"
)

// State is the top-level outcome of a projection.
type State string

const (
	StateNoManifest State = "noManifest"
	StateError      State = "error"
	StateManifest   State = "manifest"
)

// Options controls a projection. The zero value uses the default classifiers
// and a no-op logger.
type Options struct {
	// HideContentSummary suppresses the content summary section even when
	// generative data is available.
	HideContentSummary bool

	Types  manifest.TypeClassifier
	Agents manifest.AgentClassifier

	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Types == nil {
		o.Types = manifest.DefaultTypeClassifier
	}
	if o.Agents == nil {
		o.Agents = manifest.DefaultAgentClassifier
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Projection is the ordered list of present sections for one store snapshot.
type Projection struct {
	State    State
	Sections []Section
}

// Lookup returns the section of the given kind, if present.
func (p Projection) Lookup(kind Kind) (Section, bool) {
	for _, s := range p.Sections {
		if s.Kind() == kind {
			return s, true
		}
	}
	return nil, false
}

// Kinds returns the kinds of the present sections in order.
func (p Projection) Kinds() []Kind {
	out := make([]Kind, 0, len(p.Sections))
	for _, s := range p.Sections {
		out = append(out, s.Kind())
	}
	return out
}

// Project derives the display sections for store.
//
// A store without an active manifest yields only NoProvenance. A store
// flagged with the error tag yields only ManifestError, whatever else it
// carries. Otherwise each content section is computed independently, in
// ContentOrder. Classifier failures omit the affected section.
func Project(store *manifest.Store, opts Options) Projection {
	if store == nil || store.ActiveManifest == nil {
		return Projection{State: StateNoManifest, Sections: []Section{NoProvenance{}}}
	}
	if store.HasError() {
		return Projection{State: StateError, Sections: []Section{ManifestError{}}}
	}
	opts = opts.withDefaults()

	var sections []Section
	if s, ok := contentSummary(store, opts); ok {
		sections = append(sections, s)
	}
	if store.Producer != nil && store.Producer.Name != "" {
		sections = append(sections, ProducedBy{Name: store.Producer.Name})
	}
	if store.ClaimGenerator != "" {
		sections = append(sections, ProducedWith{ClaimGenerator: store.ClaimGenerator, Store: store})
	}
	if len(store.SocialAccounts) > 0 {
		sections = append(sections, SocialMedia{Accounts: append([]manifest.SocialAccount(nil), store.SocialAccounts...)})
	}
	if s, ok := aiToolUsed(store, opts); ok {
		sections = append(sections, s)
	}
	if store.Web3 != nil {
		sections = append(sections, Web3{Web3: manifest.Web3{
			Ethereum: append([]string(nil), store.Web3.Ethereum...),
			Solana:   append([]string(nil), store.Web3.Solana...),
		}})
	}
	return Projection{State: StateManifest, Sections: sections}
}

func contentSummary(store *manifest.Store, opts Options) (Section, bool) {
	if opts.HideContentSummary || store.GenerativeInfo == nil {
		return nil, false
	}
	t, ok, err := opts.Types.ClassifyType(store.GenerativeInfo)
	if err != nil {
		err = manifest.WrapError(manifest.KindClassifier, "C2PA-CLS-001", "generative type classifier failed", err)
		opts.Logger.Warn("content summary omitted", zap.Error(err))
		return nil, false
	}
	if !ok || t == "" {
		return nil, false
	}
	return ContentSummary{Type: t}, true
}

func aiToolUsed(store *manifest.Store, opts Options) (Section, bool) {
	if store.GenerativeInfo == nil {
		return nil, false
	}
	agents, err := opts.Agents.ClassifyAgents(store.GenerativeInfo)
	if err != nil {
		err = manifest.WrapError(manifest.KindClassifier, "C2PA-CLS-002", "generative agent classifier failed", err)
		opts.Logger.Warn("ai tool section omitted", zap.Error(err))
		return nil, false
	}
	if len(agents) == 0 {
		return nil, false
	}
	return AIToolUsed{Agents: append([]string(nil), agents...)}, true
}
