package model

// SummaryRequest asks for the summary of one stored snapshot.
type SummaryRequest struct {
	SnapshotCID        string `json:"snapshotCID"`
	HideContentSummary bool   `json:"hideContentSummary,omitempty"`
	IncludeDetails     bool   `json:"includeDetails,omitempty"`
	IncludeReceipt     bool   `json:"includeReceipt,omitempty"`
}

type SocialAccount struct {
	Name     string `json:"name,omitempty"`
	URL      string `json:"url,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// Section is one display section. Only the fields of its Kind are set.
type Section struct {
	Kind           string          `json:"kind"`
	GenerativeType string          `json:"generativeType,omitempty"`
	Name           string          `json:"name,omitempty"`
	ClaimGenerator string          `json:"claimGenerator,omitempty"`
	Accounts       []SocialAccount `json:"accounts,omitempty"`
	Agents         []string        `json:"agents,omitempty"`
	Ethereum       []string        `json:"ethereum,omitempty"`
	Solana         []string        `json:"solana,omitempty"`
}

type ValidationRow struct {
	Code        string `json:"code"`
	Explanation string `json:"explanation"`
	URL         string `json:"url"`
}

type Details struct {
	Title           string          `json:"title"`
	Format          string          `json:"format"`
	ClaimGenerator  string          `json:"claimGenerator"`
	Producer        string          `json:"producer"`
	Thumbnail       string          `json:"thumbnail"`
	Ingredients     string          `json:"ingredients"`
	SignatureIssuer string          `json:"signatureIssuer"`
	SignatureDate   string          `json:"signatureDate"`
	Validation      []ValidationRow `json:"validation"`
}

type ReceiptDocument struct {
	Bytes []byte `json:"bytes"`
	CID   string `json:"cid"`
}

type SummaryResponse struct {
	SnapshotCID string           `json:"snapshotCID"`
	State       string           `json:"state"`
	Sections    []Section        `json:"sections"`
	Details     *Details         `json:"details,omitempty"`
	Receipt     *ReceiptDocument `json:"receipt,omitempty"`
}
