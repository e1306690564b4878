package summary

import (
	"slices"

	"xdao.co/c2paview/manifest"
)

// Kind names a display section.
type Kind string

const (
	KindNoProvenance   Kind = "noProvenance"
	KindManifestError  Kind = "manifestError"
	KindContentSummary Kind = "contentSummary"
	KindProducedBy     Kind = "producedBy"
	KindProducedWith   Kind = "producedWith"
	KindSocialMedia    Kind = "socialMedia"
	KindAIToolUsed     Kind = "aiToolUsed"
	KindWeb3           Kind = "web3"
)

// ContentOrder is the fixed render order of the optional content sections.
var ContentOrder = []Kind{
	KindContentSummary,
	KindProducedBy,
	KindProducedWith,
	KindSocialMedia,
	KindAIToolUsed,
	KindWeb3,
}

// Section is one present display section. The set of implementations is
// closed; switch on the concrete type to read its payload.
type Section interface {
	Kind() Kind
	equal(Section) bool
}

// NoProvenance is the terminal section for an asset without an active manifest.
type NoProvenance struct{}

// ManifestError is the terminal section for a store the verifier flagged.
type ManifestError struct{}

type ContentSummary struct {
	Type manifest.GenerativeType
}

type ProducedBy struct {
	Name string
}

// ProducedWith carries the whole store because the renderer may need
// ingredient context next to the claim generator.
type ProducedWith struct {
	ClaimGenerator string
	Store          *manifest.Store
}

type SocialMedia struct {
	Accounts []manifest.SocialAccount
}

type AIToolUsed struct {
	Agents []string
}

type Web3 struct {
	Web3 manifest.Web3
}

func (NoProvenance) Kind() Kind   { return KindNoProvenance }
func (ManifestError) Kind() Kind  { return KindManifestError }
func (ContentSummary) Kind() Kind { return KindContentSummary }
func (ProducedBy) Kind() Kind     { return KindProducedBy }
func (ProducedWith) Kind() Kind   { return KindProducedWith }
func (SocialMedia) Kind() Kind    { return KindSocialMedia }
func (AIToolUsed) Kind() Kind     { return KindAIToolUsed }
func (Web3) Kind() Kind           { return KindWeb3 }

func (NoProvenance) equal(o Section) bool {
	_, ok := o.(NoProvenance)
	return ok
}

func (ManifestError) equal(o Section) bool {
	_, ok := o.(ManifestError)
	return ok
}

func (s ContentSummary) equal(o Section) bool {
	v, ok := o.(ContentSummary)
	return ok && v == s
}

func (s ProducedBy) equal(o Section) bool {
	v, ok := o.(ProducedBy)
	return ok && v == s
}

// ProducedWith compares the claim generator and the active manifest's
// ingredient titles, the store context a renderer shows next to it.
func (s ProducedWith) equal(o Section) bool {
	v, ok := o.(ProducedWith)
	return ok && v.ClaimGenerator == s.ClaimGenerator &&
		slices.Equal(manifest.IngredientTitles(activeManifest(v.Store)), manifest.IngredientTitles(activeManifest(s.Store)))
}

func activeManifest(st *manifest.Store) *manifest.Manifest {
	if st == nil {
		return nil
	}
	return st.ActiveManifest
}

func (s SocialMedia) equal(o Section) bool {
	v, ok := o.(SocialMedia)
	return ok && slices.Equal(v.Accounts, s.Accounts)
}

func (s AIToolUsed) equal(o Section) bool {
	v, ok := o.(AIToolUsed)
	return ok && slices.Equal(v.Agents, s.Agents)
}

func (s Web3) equal(o Section) bool {
	v, ok := o.(Web3)
	return ok && slices.Equal(v.Web3.Ethereum, s.Web3.Ethereum) && slices.Equal(v.Web3.Solana, s.Web3.Solana)
}
