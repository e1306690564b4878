package manifest

import (
	"bytes"
	"encoding/json"
)

// ErrorTag is the Store.Error value that marks a store the verifier could not
// read or validate.
const ErrorTag = "error"

// Store is the validated result of reading one asset's manifest store.
//
// Nil slices mean "absent"; ValidationStatus and GenerativeInfo keep that
// distinction on the wire even though the projector treats absent and empty
// the same way.
type Store struct {
	ActiveManifest   *Manifest             `json:"activeManifest,omitempty"`
	ValidationStatus []ValidationStatus    `json:"validationStatus,omitempty"`
	Error            string                `json:"error,omitempty"`
	GenerativeInfo   []GenerativeAssertion `json:"generativeInfo,omitempty"`
	Producer         *Producer             `json:"producer,omitempty"`
	ClaimGenerator   string                `json:"claimGenerator,omitempty"`
	SocialAccounts   []SocialAccount       `json:"socialAccounts,omitempty"`
	Web3             *Web3                 `json:"web3,omitempty"`
}

// HasError reports whether the verifier flagged the store as unreadable.
func (s *Store) HasError() bool {
	return s != nil && s.Error == ErrorTag
}

type Manifest struct {
	Title          string         `json:"title,omitempty"`
	Format         string         `json:"format,omitempty"`
	ClaimGenerator string         `json:"claimGenerator,omitempty"`
	Ingredients    []Ingredient   `json:"ingredients,omitempty"`
	SignatureInfo  *SignatureInfo `json:"signatureInfo,omitempty"`
	Producer       *Producer      `json:"producer,omitempty"`
	Assertions     []Assertion    `json:"assertions,omitempty"`
}

// Ingredient is an upstream asset referenced by a manifest. ActiveManifest is
// the label of the ingredient's own manifest in the store; it is a reference,
// not an owned value.
type Ingredient struct {
	Title          string `json:"title,omitempty"`
	Format         string `json:"format,omitempty"`
	DocumentID     string `json:"documentId,omitempty"`
	InstanceID     string `json:"instanceId,omitempty"`
	ActiveManifest string `json:"activeManifest,omitempty"`
}

type SignatureInfo struct {
	Issuer           string `json:"issuer,omitempty"`
	Time             string `json:"time,omitempty"`
	CertSerialNumber string `json:"certSerialNumber,omitempty"`
}

type Producer struct {
	Name       string `json:"name,omitempty"`
	Identifier string `json:"identifier,omitempty"`
}

type SocialAccount struct {
	Name     string `json:"name,omitempty"`
	URL      string `json:"@id,omitempty"`
	Provider string `json:"provider,omitempty"`
}

type Web3 struct {
	Ethereum []string `json:"ethereum,omitempty"`
	Solana   []string `json:"solana,omitempty"`
}

// ValidationStatus is one diagnostic entry from the verification process.
type ValidationStatus struct {
	Code        string `json:"code"`
	Explanation string `json:"explanation,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Assertion is a labelled assertion payload kept as raw JSON.
type Assertion struct {
	Label string          `json:"label"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// GenerativeAssertion describes one AI-generation signal found in the
// manifest's action or legacy assertions.
type GenerativeAssertion struct {
	Assertion     string            `json:"assertion,omitempty"`
	Action        string            `json:"action,omitempty"`
	Type          DigitalSourceType `json:"type,omitempty"`
	SoftwareAgent SoftwareAgent     `json:"softwareAgent,omitempty"`
}

// SoftwareAgent names the tool that produced a generative action. On the wire
// it is either a bare string or an object carrying name and version.
type SoftwareAgent struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

func (a *SoftwareAgent) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = SoftwareAgent{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = SoftwareAgent{Name: s}
		return nil
	}
	type plain SoftwareAgent
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*a = SoftwareAgent(p)
	return nil
}
