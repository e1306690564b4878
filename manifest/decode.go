package manifest

import (
	"bytes"
	"encoding/json"
)

// DecodeStore decodes the JSON manifest store emitted by the external reader.
//
// Unknown fields are ignored so newer verifier output stays readable.
func DecodeStore(data []byte) (*Store, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, NewError(KindDecode, "C2PA-DEC-001", "empty manifest store document")
	}
	var s Store
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, WrapError(KindDecode, "C2PA-DEC-002", "invalid manifest store JSON", err)
	}
	return &s, nil
}
