package manifest

import (
	"strings"

	"github.com/tidwall/gjson"
)

// UnknownProducer is displayed when no producer can be resolved.
const UnknownProducer = "Unknown"

// CreativeWorkLabel is the schema.org CreativeWork assertion label that carries
// author information.
const CreativeWorkLabel = "stds.schema-org.CreativeWork"

// SelectProducer returns the manifest's producer.
//
// An explicit Producer wins. Otherwise the first CreativeWork author without an
// "@id" (a person rather than a linked identity) is used. It never fails; a
// nil manifest or a manifest without authorship yields (nil, false).
func SelectProducer(m *Manifest) (*Producer, bool) {
	if m == nil {
		return nil, false
	}
	if m.Producer != nil && m.Producer.Name != "" {
		p := *m.Producer
		return &p, true
	}
	for _, a := range m.Assertions {
		if !isCreativeWork(a.Label) || !gjson.ValidBytes(a.Data) {
			continue
		}
		if p, ok := creativeWorkAuthor(gjson.GetBytes(a.Data, "author")); ok {
			return p, true
		}
	}
	return nil, false
}

// ProducerName returns the producer name or UnknownProducer.
func ProducerName(m *Manifest) string {
	if p, ok := SelectProducer(m); ok {
		return p.Name
	}
	return UnknownProducer
}

func isCreativeWork(label string) bool {
	if !strings.HasPrefix(label, CreativeWorkLabel) {
		return false
	}
	rest := label[len(CreativeWorkLabel):]
	// Repeated assertions carry an instance suffix, e.g. "__1".
	return rest == "" || strings.HasPrefix(rest, "__")
}

func creativeWorkAuthor(author gjson.Result) (*Producer, bool) {
	var candidates []gjson.Result
	switch {
	case author.IsArray():
		candidates = author.Array()
	case author.IsObject():
		candidates = []gjson.Result{author}
	default:
		return nil, false
	}
	for _, c := range candidates {
		if !c.IsObject() || hasKey(c, "@id") {
			continue
		}
		name := strings.TrimSpace(c.Get("name").String())
		if name == "" {
			continue
		}
		return &Producer{Name: name, Identifier: c.Get("identifier").String()}, true
	}
	return nil, false
}

func hasKey(obj gjson.Result, key string) bool {
	found := false
	obj.ForEach(func(k, _ gjson.Result) bool {
		if k.String() == key {
			found = true
			return false
		}
		return true
	})
	return found
}

// DisplayClaimGenerator strips the parenthetical platform tag from a claim
// generator string: "TrustedApp/3.0 (MacOS)" becomes "TrustedApp/3.0".
// Everything from the first "(" on is dropped and the rest is trimmed.
func DisplayClaimGenerator(s string) string {
	before, _, _ := strings.Cut(s, "(")
	return strings.TrimSpace(before)
}

// IngredientTitles returns ingredient titles in manifest order.
func IngredientTitles(m *Manifest) []string {
	if m == nil || len(m.Ingredients) == 0 {
		return nil
	}
	out := make([]string, 0, len(m.Ingredients))
	for _, in := range m.Ingredients {
		out = append(out, in.Title)
	}
	return out
}

// JoinIngredients joins ingredient titles with ", ". A manifest without
// ingredients yields "".
func JoinIngredients(m *Manifest) string {
	return strings.Join(IngredientTitles(m), ", ")
}

// ValidationRows returns a copy of the store's validation entries in source
// order. Absent and empty lists both yield no rows.
func ValidationRows(s *Store) []ValidationStatus {
	if s == nil || len(s.ValidationStatus) == 0 {
		return nil
	}
	return append([]ValidationStatus(nil), s.ValidationStatus...)
}
